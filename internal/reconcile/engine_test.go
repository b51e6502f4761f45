package reconcile

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"colmerge/internal/config"
	"colmerge/internal/metrics"
	"colmerge/internal/schema"
)

// fixture writes files into a fresh directory and returns their paths in the
// order given.
func fixture(t *testing.T, files ...[2]string) (dir string, paths []string) {
	t.Helper()
	dir = t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, f[0])
		if err := os.WriteFile(p, []byte(f[1]), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return dir, paths
}

func newEngine(t *testing.T, cfg config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

func TestRun_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		files      [][2]string
		wantPct    float64
		wantMerged bool
		wantFile   string
		wantName   string
	}{
		{
			name:       "A identical delimited headers",
			files:      [][2]string{{"a.csv", "id,name,email\n1,x,y\n"}, {"b.csv", "id,name,email\n"}},
			wantPct:    100,
			wantMerged: true,
			wantFile:   "email,id,name\r\n",
			wantName:   "a_b_merged.csv",
		},
		{
			name:     "B partial overlap refused",
			files:    [][2]string{{"a.csv", "id,name\n"}, {"b.csv", "id,email\n"}},
			wantPct:  100.0 / 3,
			wantFile: "Matching percentage is 33.33%. Not merging.\r\n\r\n",
			wantName: "a_b_merged.csv",
		},
		{
			name:       "C three sources two thirds",
			files:      [][2]string{{"x.csv", "a,b,c\n"}, {"y.csv", "a,b,c\n"}, {"z.csv", "a,b\n"}},
			wantPct:    200.0 / 3,
			wantMerged: true,
			wantFile:   "a,b,c\r\n",
			wantName:   "x_y_z_merged.csv",
		},
		{
			name:     "exact half is refused",
			files:    [][2]string{{"p.csv", "a,b\n"}, {"q.csv", "a,b,c,d\n"}},
			wantPct:  50,
			wantFile: "Matching percentage is 50.00%. Not merging.\r\n\r\n",
			wantName: "p_q_merged.csv",
		},
		{
			name:     "all empty schemas",
			files:    [][2]string{{"e1.json", "[]"}, {"e2.json", "[{}]"}},
			wantPct:  0,
			wantFile: "Matching percentage is 0.00%. Not merging.\r\n\r\n",
			wantName: "e1_e2_merged.csv",
		},
		{
			name:       "single source matches itself",
			files:      [][2]string{{"solo.json", `[{"b":1,"a":2,"b":3}]`}},
			wantPct:    100,
			wantMerged: true,
			wantFile:   "a,b\r\n",
			wantName:   "solo_merged.csv",
		},
		{
			name:       "duplicates inside one schema collapse",
			files:      [][2]string{{"d1.csv", "b,a,b,a\n"}, {"d2.csv", "a,b\n"}},
			wantPct:    100,
			wantMerged: true,
			wantFile:   "a,b\r\n",
			wantName:   "d1_d2_merged.csv",
		},
		{
			name: "mixed formats",
			files: [][2]string{
				{"m.csv", "customer name,region\n"},
				{"m.json", `[{"customer name":"x","region":"y","extra":1}]`},
				{"m.xml", `<saw:report xmlns:saw="com.siebel.analytics.web/report/v1.1" xmlns:sawx="com.siebel.analytics.web/expression/v1.1" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
				  <saw:column><sawx:expr xsi:type="sawx:sqlExpression">"Customer Name"</sawx:expr></saw:column>
				  <saw:column><sawx:expr xsi:type="sawx:sqlExpression">"Region"</sawx:expr></saw:column>
				</saw:report>`},
			},
			wantPct:    200.0 / 3,
			wantMerged: true,
			wantFile:   "customer name,extra,region\r\n",
			wantName:   "m_m_m_merged.csv",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir, paths := fixture(t, tt.files...)
			e := newEngine(t, config.Config{OutputDir: dir})

			res, err := e.Run(context.Background(), paths)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if math.Abs(res.Percentage-tt.wantPct) > 1e-9 {
				t.Fatalf("percentage = %v, want %v", res.Percentage, tt.wantPct)
			}
			if res.Outcome.Merged() != tt.wantMerged {
				t.Fatalf("merged = %v, want %v", res.Outcome.Merged(), tt.wantMerged)
			}
			if res.Output != filepath.Join(dir, tt.wantName) {
				t.Fatalf("output = %q, want %q", res.Output, filepath.Join(dir, tt.wantName))
			}
			if got := readFile(t, res.Output); got != tt.wantFile {
				t.Fatalf("file = %q, want %q", got, tt.wantFile)
			}
			if len(res.Schemas) != len(paths) {
				t.Fatalf("schemas = %d, want %d", len(res.Schemas), len(paths))
			}
		})
	}
}

func TestRun_MergedColumnsSortedAndUnique(t *testing.T) {
	t.Parallel()

	dir, paths := fixture(t,
		[2]string{"one.csv", "zeta,alpha,mid,alpha\n"},
		[2]string{"two.csv", "mid,zeta,alpha,beta\n"},
	)
	res, err := newEngine(t, config.Config{OutputDir: dir}).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"alpha", "beta", "mid", "zeta"}
	if got := schema.Strings(res.Outcome.Columns); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %#v, want %#v", got, want)
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	dir, paths := fixture(t,
		[2]string{"a.csv", "id,name,email\n"},
		[2]string{"b.json", `[{"email":"x","id":1,"name":"n","phone":"p"}]`},
	)
	e := newEngine(t, config.Config{OutputDir: dir})

	r1, err := e.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	b1 := readFile(t, r1.Output)

	r2, err := e.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	b2 := readFile(t, r2.Output)

	if r1.Percentage != r2.Percentage || r1.Output != r2.Output || !bytes.Equal([]byte(b1), []byte(b2)) {
		t.Fatalf("runs differ:\n%+v %q\n%+v %q", r1, b1, r2, b2)
	}
	if r1.Percentage != 75 {
		t.Fatalf("percentage = %v, want 75", r1.Percentage)
	}
}

func TestRun_UniformNormalization(t *testing.T) {
	t.Parallel()

	files := [][2]string{
		{"u.csv", "ID,Name\n"},
		{"u.json", `[{"id":1,"name":"x"}]`},
	}

	dir, paths := fixture(t, files...)
	res, err := newEngine(t, config.Config{OutputDir: dir}).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("format mode Run: %v", err)
	}
	if res.Percentage != 0 || res.Outcome.Merged() {
		t.Fatalf("format mode must compare case-sensitively, got %+v", res)
	}

	dir, paths = fixture(t, files...)
	res, err = newEngine(t, config.Config{OutputDir: dir, Normalization: "uniform"}).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("uniform mode Run: %v", err)
	}
	if res.Percentage != 100 || !reflect.DeepEqual(schema.Strings(res.Outcome.Columns), []string{"id", "name"}) {
		t.Fatalf("uniform mode result: %+v", res)
	}
}

func TestRun_ConfiguredThreshold(t *testing.T) {
	t.Parallel()

	th := 70.0
	dir, paths := fixture(t, [2]string{"x.csv", "a,b,c\n"}, [2]string{"y.csv", "a,b\n"})
	e := newEngine(t, config.Config{OutputDir: dir, Threshold: &th})
	if e.Threshold() != 70 {
		t.Fatalf("Threshold() = %v", e.Threshold())
	}
	res, err := e.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Threshold != 70 {
		t.Fatalf("Result.Threshold = %v, want 70", res.Threshold)
	}
	if res.Outcome.Merged() {
		t.Fatalf("66.67%% must not merge at threshold 70: %+v", res.Outcome)
	}
}

func TestRun_FailuresWriteNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    [][2]string
		extra    []string
		wantIs   error
		wantPath string
	}{
		{
			name:     "unsupported suffix",
			files:    [][2]string{{"a.csv", "id\n"}, {"b.txt", "id\n"}},
			wantIs:   schema.ErrUnsupportedFormat,
			wantPath: "b.txt",
		},
		{
			name:     "malformed json",
			files:    [][2]string{{"a.csv", "id\n"}, {"b.json", `[{"id":`}},
			wantIs:   schema.ErrMalformedSource,
			wantPath: "b.json",
		},
		{
			name:     "empty csv",
			files:    [][2]string{{"a.csv", ""}, {"b.csv", "id\n"}},
			wantIs:   schema.ErrMalformedSource,
			wantPath: "a.csv",
		},
		{
			name:     "broken xml",
			files:    [][2]string{{"a.xml", "<report><column></report>"}},
			wantIs:   schema.ErrMalformedSource,
			wantPath: "a.xml",
		},
		{
			name:     "missing file",
			files:    [][2]string{{"a.csv", "id\n"}},
			extra:    []string{"missing.csv"},
			wantIs:   schema.ErrMalformedSource,
			wantPath: "missing.csv",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir, paths := fixture(t, tt.files...)
			for _, x := range tt.extra {
				paths = append(paths, filepath.Join(dir, x))
			}

			_, err := newEngine(t, config.Config{OutputDir: dir}).Run(context.Background(), paths)
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("err = %v, want %v", err, tt.wantIs)
			}
			var se *schema.SourceError
			if !errors.As(err, &se) || filepath.Base(se.Path) != tt.wantPath {
				t.Fatalf("error does not name %s: %v", tt.wantPath, err)
			}
			if !strings.Contains(err.Error(), tt.wantPath) {
				t.Fatalf("message %q does not name %s", err.Error(), tt.wantPath)
			}

			entries, _ := os.ReadDir(dir)
			for _, ent := range entries {
				if strings.HasSuffix(ent.Name(), "_merged.csv") {
					t.Fatalf("failed run left output %s", ent.Name())
				}
			}
		})
	}
}

func TestRun_NoSources(t *testing.T) {
	t.Parallel()

	_, err := newEngine(t, config.Config{}).Run(context.Background(), nil)
	if !errors.Is(err, schema.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	dir, paths := fixture(t, [2]string{"a.csv", "id\n"}, [2]string{"b.csv", "id\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, config.Config{OutputDir: dir}).Run(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a_b_merged.csv")); !os.IsNotExist(statErr) {
		t.Fatalf("cancelled run wrote output (stat err=%v)", statErr)
	}
}

func TestExtract_DoesNotWrite(t *testing.T) {
	t.Parallel()

	dir, paths := fixture(t, [2]string{"a.csv", "x,y\n"}, [2]string{"b.json", `[{"y":1}]`})
	schemas, err := newEngine(t, config.Config{OutputDir: dir}).Extract(context.Background(), paths)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(schemas) != 2 || schemas[1].Format != "json" || !reflect.DeepEqual(schema.Strings(schemas[0].Columns), []string{"x", "y"}) {
		t.Fatalf("schemas = %#v", schemas)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("Extract wrote files: %d entries", len(entries))
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	bad, nan := -5.0, math.NaN()
	for _, cfg := range []config.Config{
		{Threshold: &bad},
		{Threshold: &nan},
		{Normalization: "soundex"},
		{History: config.History{Kind: "oracle", DSN: "x"}},
	} {
		if _, err := New(cfg, Options{}); !errors.Is(err, schema.ErrInvalidInput) {
			t.Fatalf("New(%+v) err = %v, want ErrInvalidInput", cfg, err)
		}
	}
}

type countingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
}

func (b *countingBackend) key(name string, l metrics.Labels) string {
	return name + "|" + l["outcome"] + l["format"] + l["status"]
}

func (b *countingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[b.key(name, l)] += delta
}

func (b *countingBackend) ObserveHistogram(name string, v float64, l metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[b.key(name, l)] = append(b.samples[b.key(name, l)], v)
}

func (b *countingBackend) Flush() error { return nil }

// Not parallel: installs a process-wide metrics backend.
func TestRun_RecordsMetrics(t *testing.T) {
	be := &countingBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
	metrics.SetBackend(be)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(500 * time.Millisecond)
		return tick
	}

	dir, paths := fixture(t, [2]string{"a.csv", "id,name\n"}, [2]string{"b.json", `[{"id":1,"name":2}]`})
	e, err := New(config.Config{OutputDir: dir}, Options{now: clock})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), paths); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := e.Run(context.Background(), []string{filepath.Join(dir, "gone.xml")}); err == nil {
		t.Fatalf("expected failure for missing source")
	}

	wantCounters := map[string]float64{
		metrics.RunsTotal + "|merged":      1,
		metrics.RunsTotal + "|error":       1,
		metrics.SourcesTotal + "|csvok":    1,
		metrics.SourcesTotal + "|jsonok":   1,
		metrics.SourcesTotal + "|xmlerror": 1,
	}
	if !reflect.DeepEqual(be.counters, wantCounters) {
		t.Fatalf("counters = %#v, want %#v", be.counters, wantCounters)
	}
	if got := be.samples[metrics.RunDurationSeconds+"|ok"]; !reflect.DeepEqual(got, []float64{0.5}) {
		t.Fatalf("ok durations = %#v", got)
	}
	if got := be.samples[metrics.RunDurationSeconds+"|error"]; !reflect.DeepEqual(got, []float64{0.5}) {
		t.Fatalf("error durations = %#v", got)
	}
	if got := be.samples[metrics.MatchPercentage+"|"]; !reflect.DeepEqual(got, []float64{100}) {
		t.Fatalf("percentages = %#v", got)
	}
}
