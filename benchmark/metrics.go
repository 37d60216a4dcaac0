package benchmark

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/merchant/market"
	"github.com/rustyeddy/merchant/portfolio"
)

// Names of the built-in benchmarks.
const (
	TotalReturnName = "total-return"
	RealizedPLName  = "realized-pl"
	VolatilityName  = "volatility"
	SharpeName      = "sharpe"
	MaxDrawdownName = "max-drawdown"
	WinRateName     = "win-rate"
)

// TotalReturn is the portfolio value now relative to its first recorded value.
func TotalReturn() *Func {
	return New(TotalReturnName, Schema{}, func(p *portfolio.Portfolio, _ portfolio.Args) (float64, error) {
		hist := p.ValueHistory()
		if len(hist) == 0 {
			return 0, nil
		}
		first := hist[0].Value.Quantity()
		if first.IsZero() {
			return 0, nil
		}
		now, err := p.Value(p.Market().Now())
		if err != nil {
			return 0, err
		}
		return now.Quantity().Sub(first).Div(first).InexactFloat64(), nil
	})
}

// RealizedPL sums the profit and loss of closed positions, optionally for one
// instrument symbol.
func RealizedPL() *Func {
	return New(RealizedPLName, Schema{"instrument": String}, func(p *portfolio.Portfolio, args portfolio.Args) (float64, error) {
		symbol := stringArg(args, "instrument", "")
		sum := market.NewValuation(market.Zero(p.BenchmarkInstrument()))
		for _, c := range p.ClosedPositions() {
			if symbol != "" && c.Amount.Instrument().Symbol != symbol {
				continue
			}
			var err error
			if sum, err = sum.Add(c.PL()); err != nil {
				return 0, err
			}
		}
		return sum.Quantity().InexactFloat64(), nil
	})
}

// Volatility is the sample standard deviation of per-snapshot returns,
// scaled by sqrt(periods).
func Volatility() *Func {
	return New(VolatilityName, Schema{"periods": Int}, func(p *portfolio.Portfolio, args portfolio.Args) (float64, error) {
		rets := returns(p.ValueHistory())
		if len(rets) < 2 {
			return 0, nil
		}
		sd, err := stats.StandardDeviationSample(rets)
		if err != nil {
			return 0, err
		}
		return sd * math.Sqrt(float64(intArg(args, "periods", 1))), nil
	})
}

// Sharpe is the mean excess per-snapshot return over its standard deviation,
// scaled by sqrt(periods). risk_free is the per-period risk-free return.
func Sharpe() *Func {
	return New(SharpeName, Schema{"periods": Int, "risk_free": Float}, func(p *portfolio.Portfolio, args portfolio.Args) (float64, error) {
		rets := returns(p.ValueHistory())
		if len(rets) < 2 {
			return 0, nil
		}
		mean, err := stats.Mean(rets)
		if err != nil {
			return 0, err
		}
		sd, err := stats.StandardDeviationSample(rets)
		if err != nil {
			return 0, err
		}
		if sd == 0 {
			return 0, nil
		}
		excess := mean - floatArg(args, "risk_free", 0)
		return excess / sd * math.Sqrt(float64(intArg(args, "periods", 1))), nil
	})
}

// MaxDrawdown is the largest peak-to-trough fall of the value history, as a
// positive fraction of the peak.
func MaxDrawdown() *Func {
	return New(MaxDrawdownName, Schema{}, func(p *portfolio.Portfolio, _ portfolio.Args) (float64, error) {
		var peak, worst float64
		for _, pt := range p.ValueHistory() {
			v := pt.Value.Quantity().InexactFloat64()
			if v > peak {
				peak = v
			}
			if peak > 0 {
				if dd := (peak - v) / peak; dd > worst {
					worst = dd
				}
			}
		}
		return worst, nil
	})
}

// WinRate is the fraction of closed positions with a positive P&L.
func WinRate() *Func {
	return New(WinRateName, Schema{}, func(p *portfolio.Portfolio, _ portfolio.Args) (float64, error) {
		closed := p.ClosedPositions()
		if len(closed) == 0 {
			return 0, nil
		}
		wins := 0
		for _, c := range closed {
			if c.PL().IsPositive() {
				wins++
			}
		}
		return float64(wins) / float64(len(closed)), nil
	})
}

var builtins = map[string]func() *Func{
	TotalReturnName: TotalReturn,
	RealizedPLName:  RealizedPL,
	VolatilityName:  Volatility,
	SharpeName:      Sharpe,
	MaxDrawdownName: MaxDrawdown,
	WinRateName:     WinRate,
}

// ByName returns a built-in benchmark.
func ByName(name string) (*Func, error) {
	mk, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names returns the built-in benchmark names, sorted.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for n := range builtins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// returns computes simple returns between consecutive value points,
// skipping points that follow a zero value.
func returns(hist []portfolio.ValuePoint) []float64 {
	var out []float64
	for i := 1; i < len(hist); i++ {
		prev := hist[i-1].Value.Quantity()
		if prev.IsZero() {
			continue
		}
		r := hist[i].Value.Quantity().Sub(prev).Div(prev)
		out = append(out, r.InexactFloat64())
	}
	return out
}
