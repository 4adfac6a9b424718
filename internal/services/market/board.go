package market

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Kind = "market"

type Config struct {
	GoldPrice    decimal.Decimal `env:"MARKET_GOLD_PRICE" envDefault:"100"`
	DiamondPrice decimal.Decimal `env:"MARKET_DIAMOND_PRICE" envDefault:"500"`
	EmeraldPrice decimal.Decimal `env:"MARKET_EMERALD_PRICE" envDefault:"250"`
	MaxChange    decimal.Decimal `env:"MARKET_MAX_CHANGE" envDefault:"0.10"`
}

var (
	floorPrice = decimal.NewFromInt(10)
	trendBand  = decimal.RequireFromString("0.5")
	hundred    = decimal.NewFromInt(100)
)

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

type price struct {
	current  decimal.Decimal
	previous decimal.Decimal
}

// Quote is one symbol as shown to players.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PreviousPrice decimal.Decimal `json:"previousPrice"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Trend         int             `json:"trend"`
}

// Board holds commodity prices that drift once per in-game day.
type Board struct {
	maxChange decimal.Decimal
	dirty     DirtyMarker

	mu      sync.Mutex
	rnd     *rand.Rand
	prices  map[string]*price
	lastDay int64
}

func New(cfg Config, seed uint64, dirty DirtyMarker) *Board {
	b := &Board{
		maxChange: cfg.MaxChange,
		dirty:     dirty,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		prices:    make(map[string]*price),
		lastDay:   -1,
	}

	for sym, p := range map[string]decimal.Decimal{
		"GOLD":    cfg.GoldPrice,
		"DIAMOND": cfg.DiamondPrice,
		"EMERALD": cfg.EmeraldPrice,
	} {
		b.prices[sym] = &price{current: p, previous: p}
	}

	return b
}

// Quotes returns every symbol sorted by name.
func (b *Board) Quotes() []Quote {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Quote, 0, len(b.prices))
	for sym, p := range b.prices {
		out = append(out, quoteOf(sym, p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out
}

func quoteOf(sym string, p *price) Quote {
	change := decimal.Zero
	if !p.previous.IsZero() {
		change = p.current.Sub(p.previous).Div(p.previous).Mul(hundred).Round(2)
	}

	trend := 0
	switch {
	case change.GreaterThan(trendBand):
		trend = 1
	case change.LessThan(trendBand.Neg()):
		trend = -1
	}

	return Quote{
		Symbol:        sym,
		Price:         p.current,
		PreviousPrice: p.previous,
		ChangePercent: change,
		Trend:         trend,
	}
}

// DailyTick moves every price once per day by a random step within
// ±MaxChange, never below the floor.
func (b *Board) DailyTick(ctx context.Context, day int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if day <= b.lastDay {
		return nil
	}

	syms := make([]string, 0, len(b.prices))
	for sym := range b.prices {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	for _, sym := range syms {
		p := b.prices[sym]
		step := decimal.NewFromFloat(b.rnd.Float64()*2 - 1).Mul(b.maxChange)

		p.previous = p.current
		p.current = decimal.Max(floorPrice, p.current.Add(p.current.Mul(step)).Round(2))
	}

	b.lastDay = day
	if b.dirty != nil {
		b.dirty.MarkDirty(uuid.Nil, Kind)
	}

	slog.InfoContext(ctx, "market prices updated", "day", day)

	return nil
}

type State struct {
	LastDay int64                         `json:"lastDay"`
	Prices  map[string][2]decimal.Decimal `json:"prices"`
}

// Snapshot exports the board under the nil player id.
func (b *Board) Snapshot(owner uuid.UUID) (State, bool) {
	if owner != uuid.Nil {
		return State{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	st := State{LastDay: b.lastDay, Prices: make(map[string][2]decimal.Decimal, len(b.prices))}
	for sym, p := range b.prices {
		st.Prices[sym] = [2]decimal.Decimal{p.current, p.previous}
	}

	return st, true
}

func (b *Board) Restore(owner uuid.UUID, st State) error {
	if owner != uuid.Nil {
		return fmt.Errorf("restore market: unexpected owner %s", owner)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for sym, pair := range st.Prices {
		if !pair[0].IsPositive() {
			return fmt.Errorf("restore market: non-positive price for %s", sym)
		}

		b.prices[sym] = &price{current: pair[0], previous: pair[1]}
	}

	b.lastDay = st.LastDay

	return nil
}
