package loans

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Kind = "loan"

type Config struct {
	MinBalance         decimal.Decimal `env:"LOANS_MIN_BALANCE" envDefault:"1000"`
	DefaultAfterMissed int             `env:"LOANS_DEFAULT_AFTER_MISSED" envDefault:"7"`
}

type Accounts interface {
	Balance(owner uuid.UUID) (decimal.Decimal, error)
	Deposit(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error)
	Withdraw(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error)
}

type Ratings interface {
	Rating(owner uuid.UUID, day int64) credit.Rating
	CheckEligibility(owner uuid.UUID, required credit.Rating, day int64) error
	RecordOnTimePayment(owner uuid.UUID, day int64)
	RecordMissedPayment(owner uuid.UUID, day int64)
	RecordLoanCompleted(owner uuid.UUID, repaid decimal.Decimal, day int64)
	RecordDefault(owner uuid.UUID, day int64)
}

// Slots is the per-player cap shared with recurring orders.
type Slots interface {
	Reserve(owner uuid.UUID) error
	Release(owner uuid.UUID)
	Occupy(owner uuid.UUID)
}

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

type entry struct {
	mu   sync.Mutex
	loan *Loan
}

// Book issues loans and collects daily installments. A player holds at
// most one loan; the per-player entry mutex serializes issuance,
// repayment and the daily installment.
type Book struct {
	cfg      Config
	types    []Type
	accounts Accounts
	ratings  Ratings
	slots    Slots
	dirty    DirtyMarker

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

func New(cfg Config, accounts Accounts, ratings Ratings, slots Slots, dirty DirtyMarker) *Book {
	return &Book{
		cfg:      cfg,
		types:    DefaultTypes(),
		accounts: accounts,
		ratings:  ratings,
		slots:    slots,
		dirty:    dirty,
		entries:  make(map[uuid.UUID]*entry),
	}
}

func (b *Book) entryFor(owner uuid.UUID, create bool) *entry {
	b.mu.RLock()
	e, ok := b.entries[owner]
	b.mu.RUnlock()

	if ok || !create {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok = b.entries[owner]
	if !ok {
		e = &entry{}
		b.entries[owner] = e
	}

	return e
}

func (b *Book) markDirty(owner uuid.UUID) {
	if b.dirty != nil {
		b.dirty.MarkDirty(owner, Kind)
	}
}

func (b *Book) Types() []Type {
	return append([]Type(nil), b.types...)
}

// Apply issues a loan of the given type and credits its principal to
// checking.
func (b *Book) Apply(owner uuid.UUID, typeID string, day int64) (Loan, error) {
	t, ok := findType(b.types, typeID)
	if !ok {
		return Loan{}, fmt.Errorf("apply for loan: %w: unknown loan type %q", ledger.ErrValidation, typeID)
	}

	e := b.entryFor(owner, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loan != nil {
		return Loan{}, fmt.Errorf("apply for loan: %w: active loan present", ledger.ErrAlreadyExists)
	}

	bal, err := b.accounts.Balance(owner)
	if err != nil {
		return Loan{}, fmt.Errorf("apply for loan: %w", err)
	}

	if bal.LessThan(b.cfg.MinBalance) {
		return Loan{}, fmt.Errorf("apply for loan: %w: minimum balance %s required",
			ledger.ErrInsufficientFunds, b.cfg.MinBalance.StringFixed(2))
	}

	err = b.ratings.CheckEligibility(owner, t.RequiredRating, day)
	if err != nil {
		return Loan{}, fmt.Errorf("apply for loan: %w", err)
	}

	err = b.slots.Reserve(owner)
	if err != nil {
		return Loan{}, fmt.Errorf("apply for loan: %w", err)
	}

	rating := b.ratings.Rating(owner, day)
	rate, daily, total := Terms(t, rating)

	_, err = b.accounts.Deposit(owner, t.BaseAmount, ledger.TxLoanDisbursement, "loan "+t.ID)
	if err != nil {
		b.slots.Release(owner)
		return Loan{}, fmt.Errorf("apply for loan: disburse: %w", err)
	}

	e.loan = &Loan{
		ID:               uuid.New(),
		OwnerID:          owner,
		Type:             t.ID,
		Principal:        t.BaseAmount,
		Rate:             rate,
		DailyPayment:     daily,
		DurationDays:     t.DurationDays,
		StartDay:         day,
		Remaining:        total,
		Repaid:           decimal.Zero,
		LastProcessedDay: day,
	}
	b.markDirty(owner)

	slog.Info("loan issued",
		"owner", owner, "type", t.ID, "principal", t.BaseAmount.StringFixed(2),
		"rate", rate.String(), "rating", rating.String())

	return *e.loan, nil
}

// Repay pays the whole remaining amount from checking and closes the loan.
func (b *Book) Repay(owner uuid.UUID, day int64) (Loan, error) {
	e := b.entryFor(owner, false)
	if e == nil {
		return Loan{}, fmt.Errorf("repay loan: %w: no active loan", ledger.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loan == nil {
		return Loan{}, fmt.Errorf("repay loan: %w: no active loan", ledger.ErrNotFound)
	}

	l := e.loan

	_, err := b.accounts.Withdraw(owner, l.Remaining, ledger.TxLoanRepayment, "loan early payoff")
	if err != nil {
		return *l, fmt.Errorf("repay loan: %w", err)
	}

	l.Repaid = l.Repaid.Add(l.Remaining)
	l.Remaining = decimal.Zero

	b.close(e, day)

	return *l, nil
}

// close records completion and frees the slot; the caller holds e.mu.
func (b *Book) close(e *entry, day int64) {
	l := e.loan

	b.ratings.RecordLoanCompleted(l.OwnerID, l.Repaid, day)
	b.slots.Release(l.OwnerID)
	e.loan = nil
	b.markDirty(l.OwnerID)

	slog.Info("loan repaid", "owner", l.OwnerID, "loan_id", l.ID, "repaid", l.Repaid.StringFixed(2))
}

func (b *Book) Get(owner uuid.UUID) (Loan, bool) {
	e := b.entryFor(owner, false)
	if e == nil {
		return Loan{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loan == nil {
		return Loan{}, false
	}

	return *e.loan, true
}

func (b *Book) HasActiveLoan(owner uuid.UUID) bool {
	_, ok := b.Get(owner)
	return ok
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomePaid
	outcomeCompleted
	outcomeMissed
	outcomeDefaulted
)

// TickReport counts what one DailyTick did.
type TickReport struct {
	Paid      int
	Completed int
	Missed    int
	Defaulted int
}

// DailyTick collects one installment per loan per day, starting the day
// after issuance. A failed debit is recorded as a missed payment and the
// tick moves on.
func (b *Book) DailyTick(ctx context.Context, day int64) (TickReport, error) {
	b.mu.RLock()
	owners := make([]uuid.UUID, 0, len(b.entries))
	for id := range b.entries {
		owners = append(owners, id)
	}
	b.mu.RUnlock()

	var rep TickReport

	for _, owner := range owners {
		err := ctx.Err()
		if err != nil {
			return rep, fmt.Errorf("loans tick: %w", err)
		}

		switch b.collect(ctx, owner, day) {
		case outcomePaid:
			rep.Paid++
		case outcomeCompleted:
			rep.Paid++
			rep.Completed++
		case outcomeMissed:
			rep.Missed++
		case outcomeDefaulted:
			rep.Missed++
			rep.Defaulted++
		case outcomeSkipped:
		}
	}

	return rep, nil
}

func (b *Book) collect(ctx context.Context, owner uuid.UUID, day int64) outcome {
	e := b.entryFor(owner, false)
	if e == nil {
		return outcomeSkipped
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.loan
	if l == nil || day <= l.StartDay || l.LastProcessedDay >= day {
		return outcomeSkipped
	}

	l.LastProcessedDay = day
	payment := decimal.Min(l.DailyPayment, l.Remaining)

	_, err := b.accounts.Withdraw(owner, payment, ledger.TxLoanRepayment, "loan installment")
	if err != nil {
		l.MissedInRow++
		b.ratings.RecordMissedPayment(owner, day)
		b.markDirty(owner)

		slog.WarnContext(ctx, "loan installment missed",
			"owner", owner, "loan_id", l.ID, "day", day, "missed_in_row", l.MissedInRow, "error", err)

		if b.cfg.DefaultAfterMissed > 0 && l.MissedInRow >= b.cfg.DefaultAfterMissed {
			b.ratings.RecordDefault(owner, day)
			b.slots.Release(owner)
			e.loan = nil

			slog.WarnContext(ctx, "loan defaulted",
				"owner", owner, "loan_id", l.ID, "written_off", l.Remaining.StringFixed(2))

			return outcomeDefaulted
		}

		return outcomeMissed
	}

	l.Remaining = l.Remaining.Sub(payment)
	l.Repaid = l.Repaid.Add(payment)
	l.MissedInRow = 0
	b.ratings.RecordOnTimePayment(owner, day)
	b.markDirty(owner)

	if !l.Remaining.IsPositive() {
		l.Remaining = decimal.Zero
		b.close(e, day)

		return outcomeCompleted
	}

	return outcomePaid
}

func (b *Book) Snapshot(owner uuid.UUID) (Loan, bool) {
	return b.Get(owner)
}

func (b *Book) Restore(owner uuid.UUID, l Loan) error {
	if l.Remaining.IsNegative() || !l.DailyPayment.IsPositive() {
		return fmt.Errorf("restore loan %s: %w: bad amounts", owner, ledger.ErrValidation)
	}

	e := b.entryFor(owner, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loan == nil {
		b.slots.Occupy(owner)
	}

	l.OwnerID = owner
	e.loan = &l

	return nil
}
