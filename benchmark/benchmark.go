// Package benchmark provides performance metrics that bind to a portfolio.
//
// Each bound benchmark memoises its value per argument set until the
// portfolio invalidates it (after a trade or a clock tick).
package benchmark

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/merchant/portfolio"
)

// Kind is the expected type of a benchmark argument.
type Kind int

const (
	String Kind = iota
	Float
	Int
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Schema lists the arguments a benchmark accepts. All arguments are optional.
type Schema map[string]Kind

// Check verifies that every argument is declared and has the declared kind.
func (s Schema) Check(args portfolio.Args) error {
	var bad []string
	for k, v := range args {
		kind, ok := s[k]
		if !ok {
			bad = append(bad, fmt.Sprintf("unknown argument %q", k))
			continue
		}
		if !kind.accepts(v) {
			bad = append(bad, fmt.Sprintf("argument %q: want %s, got %T", k, kind, v))
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%s", strings.Join(bad, "; "))
	}
	return nil
}

func (k Kind) accepts(v any) bool {
	switch k {
	case String:
		_, ok := v.(string)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Float:
		_, ok := toFloat(v)
		return ok
	case Int:
		f, ok := toFloat(v)
		return ok && f == math.Trunc(f)
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func floatArg(args portfolio.Args, key string, def float64) float64 {
	if f, ok := toFloat(args[key]); ok {
		return f
	}
	return def
}

func intArg(args portfolio.Args, key string, def int) int {
	if f, ok := toFloat(args[key]); ok {
		return int(f)
	}
	return def
}

func stringArg(args portfolio.Args, key, def string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return def
}

// ComputeFunc computes a benchmark value for a portfolio.
type ComputeFunc func(p *portfolio.Portfolio, args portfolio.Args) (float64, error)

// Func is a benchmark defined by a name, an argument schema and a compute function.
type Func struct {
	name    string
	schema  Schema
	compute ComputeFunc
}

var _ portfolio.Benchmark = (*Func)(nil)

func New(name string, schema Schema, compute ComputeFunc) *Func {
	return &Func{name: name, schema: schema, compute: compute}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Bind(p *portfolio.Portfolio) portfolio.BoundBenchmark {
	return &bound{fn: f, p: p, cache: make(map[string]float64)}
}

type bound struct {
	fn *Func
	p  *portfolio.Portfolio

	mu    sync.Mutex
	gen   int
	cache map[string]float64
}

func (b *bound) CheckArgs(args portfolio.Args) error { return b.fn.schema.Check(args) }

// Value returns the cached value for args, computing it on first read.
func (b *bound) Value(args portfolio.Args) (float64, error) {
	key := args.Key()

	b.mu.Lock()
	v, ok := b.cache[key]
	gen := b.gen
	b.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := b.fn.compute(b.p, args)
	if err != nil {
		return 0, fmt.Errorf("benchmark %s: %w", b.fn.name, err)
	}

	b.mu.Lock()
	// an invalidation during compute makes v stale
	if gen == b.gen {
		b.cache[key] = v
	}
	b.mu.Unlock()
	return v, nil
}

func (b *bound) InvalidateCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	clear(b.cache)
}
