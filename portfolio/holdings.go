package portfolio

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/merchant/market"
)

// StaticPortfolio is the state of a portfolio at a single point in time.
type StaticPortfolio interface {
	Get(inst market.Instrument) market.Asset
	Add(a market.Asset) error
	Remove(a market.Asset) error
	Contains(inst market.Instrument) bool
	Assets() []market.Asset
}

// Holdings maps instruments to held assets. An instrument is present only
// while its quantity is positive.
type Holdings struct {
	assets map[market.Instrument]market.Asset
}

var _ StaticPortfolio = (*Holdings)(nil)

// NewHoldings returns holdings seeded with assets. Assets of the same
// instrument are summed.
func NewHoldings(assets ...market.Asset) (*Holdings, error) {
	h := &Holdings{assets: make(map[market.Instrument]market.Asset)}
	for _, a := range assets {
		if err := h.Add(a); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Get returns the held asset, or a zero asset of inst. It never mutates.
func (h *Holdings) Get(inst market.Instrument) market.Asset {
	if a, ok := h.assets[inst]; ok {
		return a
	}
	return market.Zero(inst)
}

// Add increases the holding of a's instrument by a.
func (h *Holdings) Add(a market.Asset) error {
	if a.IsNegative() {
		return fmt.Errorf("add %s: %w", a, ErrNegativeQuantity)
	}
	sum, err := h.Get(a.Instrument()).Add(a)
	if err != nil {
		return err
	}
	if sum.IsPositive() {
		h.assets[a.Instrument()] = sum
	}
	return nil
}

// CanRemove reports whether Remove(a) would succeed, without mutating.
func (h *Holdings) CanRemove(a market.Asset) error {
	if a.IsNegative() {
		return fmt.Errorf("remove %s: %w", a, ErrNegativeQuantity)
	}
	held := h.Get(a.Instrument())
	short, err := held.LessThan(a)
	if err != nil {
		return err
	}
	if short {
		return &InsufficientBalanceError{Held: held, Requested: a}
	}
	return nil
}

// Remove decreases the holding of a's instrument by a. The entry is deleted
// when nothing remains.
func (h *Holdings) Remove(a market.Asset) error {
	if err := h.CanRemove(a); err != nil {
		return err
	}
	rest, err := h.Get(a.Instrument()).Sub(a)
	if err != nil {
		return err
	}
	if rest.IsZero() {
		delete(h.assets, a.Instrument())
		return nil
	}
	h.assets[a.Instrument()] = rest
	return nil
}

// Contains reports whether a positive quantity of inst is held.
func (h *Holdings) Contains(inst market.Instrument) bool {
	return h.Get(inst).IsPositive()
}

// Assets returns the held assets ordered by symbol.
func (h *Holdings) Assets() []market.Asset {
	out := make([]market.Asset, 0, len(h.assets))
	for _, a := range h.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument().Symbol < out[j].Instrument().Symbol
	})
	return out
}

// Len returns the number of instruments held.
func (h *Holdings) Len() int { return len(h.assets) }
