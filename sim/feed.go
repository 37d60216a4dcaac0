package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/merchant/broker"
)

// Feed yields ticks in time order. Next returns ok=false, err=nil at the end.
type Feed interface {
	Next() (tick broker.Tick, ok bool, err error)
	Close() error
}

// CSVFeed reads price rows:
//
//	time,instrument,price
//
// where time is RFC3339 or RFC3339Nano. Consecutive rows with the same time
// form one tick. A header row ("time,...") is allowed and empty or short rows
// are skipped. Rows outside [from, to) are dropped when the bounds are set.
type CSVFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	pending  *row
}

type row struct {
	time  time.Time
	price broker.Price
}

// NewCSVFeed opens path as a CSV feed.
func NewCSVFeed(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVReaderFeed(f, from, to)
	feed.c = f
	return feed, nil
}

// NewCSVReaderFeed reads CSV rows from r.
func NewCSVReaderFeed(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVFeed{r: cr, from: from, to: to}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (broker.Tick, bool, error) {
	first := f.pending
	f.pending = nil
	if first == nil {
		r, ok, err := f.readRow()
		if err != nil || !ok {
			return broker.Tick{}, false, err
		}
		first = &r
	}

	tick := broker.Tick{Time: first.time, Prices: []broker.Price{first.price}}
	for {
		r, ok, err := f.readRow()
		if err != nil {
			return broker.Tick{}, false, err
		}
		if !ok {
			return tick, true, nil
		}
		if !r.time.Equal(tick.Time) {
			f.pending = &r
			return tick, true, nil
		}
		tick.Prices = append(tick.Prices, r.price)
	}
}

func (f *CSVFeed) readRow() (row, bool, error) {
	for {
		rec, err := f.r.Read()
		if err == io.EOF {
			return row{}, false, nil
		}
		if err != nil {
			return row{}, false, err
		}
		if len(rec) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}

		r, ok, err := parsePriceRow(rec)
		if err != nil {
			return row{}, false, err
		}
		if !ok || !inRange(r.time, f.from, f.to) {
			continue
		}
		return r, true, nil
	}
}

func parsePriceRow(rec []string) (row, bool, error) {
	if len(rec) < 3 {
		return row{}, false, nil
	}

	ts := strings.TrimSpace(rec[0])
	if ts == "" {
		return row{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return row{}, false, err
	}

	inst := strings.TrimSpace(rec[1])
	if inst == "" {
		return row{}, false, nil
	}

	px, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return row{}, false, fmt.Errorf("bad price %q: %w", rec[2], err)
	}

	return row{time: t, price: broker.Price{Instrument: inst, Price: px}}, true, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", s, err)
		}
		t = t2
	}
	return t, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// SliceFeed replays ticks held in memory.
type SliceFeed struct {
	ticks []broker.Tick
	i     int
}

func NewSliceFeed(ticks ...broker.Tick) *SliceFeed {
	return &SliceFeed{ticks: ticks}
}

func (f *SliceFeed) Next() (broker.Tick, bool, error) {
	if f.i >= len(f.ticks) {
		return broker.Tick{}, false, nil
	}
	t := f.ticks[f.i]
	f.i++
	return t, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// PeekFeed reads the first tick of f without consuming it from the returned feed.
func PeekFeed(f Feed) (broker.Tick, bool, Feed, error) {
	first, ok, err := f.Next()
	if err != nil || !ok {
		return first, ok, f, err
	}
	return first, true, &peeked{first: &first, Feed: f}, nil
}

type peeked struct {
	first *broker.Tick
	Feed
}

func (p *peeked) Next() (broker.Tick, bool, error) {
	if p.first != nil {
		t := *p.first
		p.first = nil
		return t, true, nil
	}
	return p.Feed.Next()
}
