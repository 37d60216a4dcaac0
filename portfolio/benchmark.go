package portfolio

import (
	"fmt"
	"sort"
	"strings"
)

// Args are the named arguments a benchmark is read with.
type Args map[string]any

// Key returns a canonical string for args, suitable as a cache key.
func (a Args) Key() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", k, a[k])
	}
	return b.String()
}

// Benchmark is a named performance metric that can be bound to a portfolio.
type Benchmark interface {
	Name() string
	Bind(p *Portfolio) BoundBenchmark
}

// BoundBenchmark is a benchmark bound to one portfolio. The portfolio only
// validates arguments and invalidates caches; it never computes values itself.
type BoundBenchmark interface {
	CheckArgs(args Args) error
	Value(args Args) (float64, error)
	InvalidateCache()
}

// Registration declares a benchmark together with the argument sets it will
// be read with. Every declared set is checked when the portfolio is built.
type Registration struct {
	Benchmark Benchmark
	Args      []Args
}
