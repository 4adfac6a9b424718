package bank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/fastprodman/playerbank/internal/services/loans"
	"github.com/fastprodman/playerbank/internal/services/market"
	"github.com/fastprodman/playerbank/internal/services/orders"
	"github.com/fastprodman/playerbank/internal/services/savings"
	"github.com/fastprodman/playerbank/internal/services/slots"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Config struct {
	Ledger  ledger.Config
	Slots   slots.Config
	Savings savings.Config
	Loans   loans.Config
	Orders  orders.Config
	Market  market.Config
	// MarketSeed fixes the quote random walk; 0 seeds from the clock.
	MarketSeed uint64 `env:"MARKET_SEED" envDefault:"0"`
}

type Clock interface {
	Day() int64
}

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

type Metrics interface {
	RecordCommand(command, result string)
	RecordTaskEvents(task, event string, n int)
}

// Bank is the command surface over the per-player ledgers. Every command
// reads the current in-game day from the clock.
type Bank struct {
	clock   Clock
	metrics Metrics

	ledger  *ledger.Ledger
	wallets *ledger.Wallets
	slots   *slots.Counter
	savings *savings.Vault
	credit  *credit.Engine
	loans   *loans.Book
	orders  *orders.Scheduler
	market  *market.Board
}

func New(cfg Config, clock Clock, dirty DirtyMarker, metrics Metrics) *Bank {
	seed := cfg.MarketSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	l := ledger.New(cfg.Ledger, dirty)
	sc := slots.New(cfg.Slots)
	ce := credit.New(dirty)

	return &Bank{
		clock:   clock,
		metrics: metrics,
		ledger:  l,
		wallets: ledger.NewWallets(l, dirty),
		slots:   sc,
		savings: savings.New(cfg.Savings, l, dirty),
		credit:  ce,
		loans:   loans.New(cfg.Loans, l, ce, sc, dirty),
		orders:  orders.New(cfg.Orders, l, sc, dirty),
		market:  market.New(cfg.Market, seed, dirty),
	}
}

// Balances is attached to every command response.
type Balances struct {
	Checking               decimal.Decimal `json:"checking"`
	Cash                   decimal.Decimal `json:"cash"`
	RemainingTransferLimit decimal.Decimal `json:"remainingTransferLimit"`
}

func (b *Bank) balances(player uuid.UUID, day int64) Balances {
	checking, err := b.ledger.Balance(player)
	if err != nil {
		checking = decimal.Zero
	}

	return Balances{
		Checking:               checking,
		Cash:                   b.wallets.Cash(player),
		RemainingTransferLimit: b.ledger.RemainingLimit(player, day),
	}
}

func (b *Bank) observe(ctx context.Context, command string, player uuid.UUID, err error) {
	code := Code(err)

	if b.metrics != nil {
		b.metrics.RecordCommand(command, code)
	}

	switch code {
	case CodeOK:
		slog.DebugContext(ctx, "command done", "command", command, "player", player)
	case CodeInternal:
		slog.ErrorContext(ctx, "command failed", "command", command, "player", player, "error", err)
	default:
		slog.InfoContext(ctx, "command rejected", "command", command, "player", player, "code", code, "error", err)
	}
}

func requirePlayer(player uuid.UUID) error {
	if player == uuid.Nil {
		return fmt.Errorf("%w: empty player id", ledger.ErrValidation)
	}

	return nil
}

func (b *Bank) requireAccount(player uuid.UUID) error {
	err := requirePlayer(player)
	if err != nil {
		return err
	}

	if !b.ledger.Exists(player) {
		return fmt.Errorf("account: %w", ledger.ErrNotFound)
	}

	return nil
}

// Day is the current in-game day.
func (b *Bank) Day() int64 {
	return b.clock.Day()
}
