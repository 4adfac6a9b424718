package bank

import (
	"context"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/fastprodman/playerbank/internal/services/daily"
	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/fastprodman/playerbank/internal/services/loans"
	"github.com/fastprodman/playerbank/internal/services/market"
	"github.com/fastprodman/playerbank/internal/services/orders"
	"github.com/fastprodman/playerbank/internal/services/persist"
	"github.com/fastprodman/playerbank/internal/services/savings"
)

// RegisterDaily adds the day-rollover work in its fixed order: interest,
// loan installments, standing orders, quotes.
func (b *Bank) RegisterDaily(r *daily.Runner) {
	r.Add("savings", b.savings.DailyTick)
	r.Add("loans", b.loansTick)
	r.Add("orders", b.ordersTick)
	r.Add("market", b.market.DailyTick)
}

func (b *Bank) loansTick(ctx context.Context, day int64) error {
	rep, err := b.loans.DailyTick(ctx, day)

	b.events("loans", map[string]int{
		"paid":      rep.Paid,
		"completed": rep.Completed,
		"missed":    rep.Missed,
		"defaulted": rep.Defaulted,
	})

	return err
}

func (b *Bank) ordersTick(ctx context.Context, day int64) error {
	rep, err := b.orders.DailyTick(ctx, day)

	b.events("orders", map[string]int{
		"executed":    rep.Executed,
		"failed":      rep.Failed,
		"auto_paused": rep.AutoPaused,
	})

	return err
}

func (b *Bank) events(task string, counts map[string]int) {
	if b.metrics == nil {
		return
	}

	for event, n := range counts {
		b.metrics.RecordTaskEvents(task, event, n)
	}
}

// RegisterPersistence binds every record kind to its component.
func (b *Bank) RegisterPersistence(s *persist.Saver) {
	persist.Register(s, ledger.AccountKind, b.ledger.Snapshot, b.ledger.Restore)
	persist.Register(s, ledger.WalletKind, b.wallets.Snapshot, b.wallets.Restore)
	persist.Register(s, savings.Kind, b.savings.Snapshot, b.savings.Restore)
	persist.Register(s, orders.Kind, b.orders.Snapshot, b.orders.Restore)
	persist.Register(s, credit.Kind, b.credit.Snapshot, b.credit.Restore)
	persist.Register(s, loans.Kind, b.loans.Snapshot, b.loans.Restore)
	persist.Register(s, market.Kind, b.market.Snapshot, b.market.Restore)
}
