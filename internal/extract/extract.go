// Package extract selects and runs the column extractor for a source format.
//
// Every format registers exactly one Factory. Callers never branch on the
// format themselves: they ask For(format) and use the Extractor interface, so
// adding a format means adding a parser and one Register call.
package extract

import (
	"context"
	"fmt"
	"sync"

	"colmerge/internal/config"
	"colmerge/internal/schema"
	"colmerge/internal/source"
)

// Extractor reads the ordered column list of one source. Implementations read
// the source once and release it before returning.
type Extractor interface {
	Extract(ctx context.Context, src source.Source) ([]schema.Column, error)
}

// Factory builds an Extractor from the parser options of its format.
type Factory func(opt config.Options) Extractor

var (
	mu        sync.RWMutex
	factories = map[source.Format]Factory{}
)

// Register installs the factory for a format.
//
// Panics:
//   - If f is FormatUnknown.
//   - If fn is nil.
//   - If the format is already registered.
func Register(f source.Format, fn Factory) {
	mu.Lock()
	defer mu.Unlock()

	if f == source.FormatUnknown {
		panic("extract: Register called with FormatUnknown")
	}
	if fn == nil {
		panic("extract: Register called with nil factory")
	}
	if _, exists := factories[f]; exists {
		panic(fmt.Sprintf("extract: factory already registered for format=%s", f))
	}
	factories[f] = fn
}

// For returns the extractor for format f configured with opt.
func For(f source.Format, opt config.Options) (Extractor, error) {
	mu.RLock()
	fn := factories[f]
	mu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("%w: no extractor for format %s", schema.ErrUnsupportedFormat, f)
	}
	if opt == nil {
		opt = config.Options{}
	}
	return fn(opt), nil
}

// Schema extracts src with the extractor registered for its format, using the
// parser options from cfg. Failures are wrapped in *schema.SourceError.
func Schema(ctx context.Context, src source.Source, cfg config.Config) (schema.Schema, error) {
	fail := func(err error) (schema.Schema, error) {
		return schema.Schema{}, &schema.SourceError{Path: src.Path, Format: src.Format.String(), Op: "extract", Err: err}
	}

	ex, err := For(src.Format, cfg.ParserOptions(src.Format.String()))
	if err != nil {
		return fail(err)
	}
	cols, err := ex.Extract(ctx, src)
	if err != nil {
		return fail(err)
	}
	return schema.Schema{Source: src.Path, Format: src.Format.String(), Columns: cols}, nil
}
