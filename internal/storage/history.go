// Package storage persists reconciliation run history.
//
// Backends live in subpackages and register themselves from init(); import
// colmerge/internal/storage/all to make every backend available to New.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "colmerge_runs"

// Config selects and configures a history backend.
//
// Edge cases:
//   - Kind is matched case-insensitively after trimming.
//   - DSN is passed through to the backend; validation is backend-specific.
//   - Table may be schema-qualified ("audit.colmerge_runs") where the backend
//     supports it.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// TableName returns cfg.Table or DefaultTable.
func (cfg Config) TableName() string {
	if t := strings.TrimSpace(cfg.Table); t != "" {
		return t
	}
	return DefaultTable
}

// RunRepository stores one row per reconciliation run.
type RunRepository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTable creates the history table if it does not exist.
	EnsureTable(ctx context.Context) error

	// InsertRun appends rec and returns the generated row id.
	InsertRun(ctx context.Context, rec RunRecord) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (RunRepository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// NormalizeKind canonicalizes a backend kind for registry lookups.
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// Register registers a history backend under kind.
//
// Panics if kind is empty, f is nil, or kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	kind = NormalizeKind(kind)
	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the backend registered for cfg.Kind.
//
// Errors:
//   - cfg.Kind empty or not registered.
//   - whatever the backend factory returns (connection, ping).
func New(ctx context.Context, cfg Config) (RunRepository, error) {
	kind := NormalizeKind(cfg.Kind)
	if kind == "" {
		return nil, fmt.Errorf("storage: missing history kind")
	}

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported history kind=%s (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Open is New followed by EnsureTable. The repository is closed again when
// the table cannot be created.
func Open(ctx context.Context, cfg Config) (RunRepository, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureTable(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("storage: ensure %s: %w", cfg.TableName(), err)
	}
	return repo, nil
}
