package savings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Kind = "savings"

var ErrAccountLocked = errors.New("savings account locked")

type Config struct {
	LockWeeks    int             `env:"SAVINGS_LOCK_WEEKS" envDefault:"4"`
	WeeklyRate   decimal.Decimal `env:"SAVINGS_WEEKLY_RATE" envDefault:"0.05"`
	EarlyPenalty decimal.Decimal `env:"SAVINGS_EARLY_PENALTY" envDefault:"0.10"`
	MinDeposit   decimal.Decimal `env:"SAVINGS_MIN_DEPOSIT" envDefault:"1000"`
	MaxPerPlayer decimal.Decimal `env:"SAVINGS_MAX_PER_PLAYER" envDefault:"100000"`
}

// Accounts is the checking ledger the vault debits and credits.
type Accounts interface {
	Withdraw(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error)
	Deposit(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error)
}

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

const daysPerWeek = 7

type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"ownerId"`
	Balance        decimal.Decimal `json:"balance"`
	OpenedDay      int64           `json:"openedDay"`
	LockWeeks      int             `json:"lockWeeks"`
	Rate           decimal.Decimal `json:"rate"`
	LastAccrualDay int64           `json:"lastAccrualDay"`
}

func (a Account) UnlockDay() int64 {
	return a.OpenedDay + int64(a.LockWeeks)*daysPerWeek
}

func (a Account) Locked(day int64) bool {
	return day < a.UnlockDay()
}

// Withdrawal describes money leaving a vault. Net reaches checking;
// Penalty is forfeited.
type Withdrawal struct {
	Gross   decimal.Decimal `json:"gross"`
	Penalty decimal.Decimal `json:"penalty"`
	Net     decimal.Decimal `json:"net"`
	Balance decimal.Decimal `json:"balance"`
}

type holder struct {
	mu       sync.Mutex
	accounts []*Account
}

func (h *holder) find(id uuid.UUID) (*Account, int) {
	for i, a := range h.accounts {
		if a.ID == id {
			return a, i
		}
	}

	return nil, -1
}

func (h *holder) total() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range h.accounts {
		sum = sum.Add(a.Balance)
	}

	return sum
}

// Vault holds locked savings accounts. Each player's vaults share one
// mutex, held across the paired checking debit or credit.
type Vault struct {
	cfg      Config
	accounts Accounts
	dirty    DirtyMarker

	mu      sync.RWMutex
	holders map[uuid.UUID]*holder
}

func New(cfg Config, accounts Accounts, dirty DirtyMarker) *Vault {
	return &Vault{
		cfg:      cfg,
		accounts: accounts,
		dirty:    dirty,
		holders:  make(map[uuid.UUID]*holder),
	}
}

func (v *Vault) holderFor(owner uuid.UUID, create bool) *holder {
	v.mu.RLock()
	h, ok := v.holders[owner]
	v.mu.RUnlock()

	if ok || !create {
		return h
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	h, ok = v.holders[owner]
	if !ok {
		h = &holder{}
		v.holders[owner] = h
	}

	return h
}

func (v *Vault) markDirty(owner uuid.UUID) {
	if v.dirty != nil {
		v.dirty.MarkDirty(owner, Kind)
	}
}

func (v *Vault) checkCap(h *holder, amount decimal.Decimal) error {
	if !v.cfg.MaxPerPlayer.IsPositive() {
		return nil
	}

	if h.total().Add(amount).GreaterThan(v.cfg.MaxPerPlayer) {
		return fmt.Errorf("%w: savings would exceed %s", ledger.ErrValidation, v.cfg.MaxPerPlayer.StringFixed(2))
	}

	return nil
}

// Create debits checking and opens a vault locked for the configured
// number of weeks starting at day.
func (v *Vault) Create(owner uuid.UUID, initialDeposit decimal.Decimal, day int64) (Account, error) {
	err := ledger.ValidateAmount(initialDeposit)
	if err != nil {
		return Account{}, fmt.Errorf("create savings: %w", err)
	}

	if initialDeposit.LessThan(v.cfg.MinDeposit) {
		return Account{}, fmt.Errorf("create savings: %w: minimum deposit is %s",
			ledger.ErrValidation, v.cfg.MinDeposit.StringFixed(2))
	}

	h := v.holderFor(owner, true)

	h.mu.Lock()
	defer h.mu.Unlock()

	err = v.checkCap(h, initialDeposit)
	if err != nil {
		return Account{}, fmt.Errorf("create savings: %w", err)
	}

	_, err = v.accounts.Withdraw(owner, initialDeposit, ledger.TxSavingsDeposit, "open savings account")
	if err != nil {
		return Account{}, fmt.Errorf("create savings: %w", err)
	}

	acc := &Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Balance:        initialDeposit,
		OpenedDay:      day,
		LockWeeks:      v.cfg.LockWeeks,
		Rate:           v.cfg.WeeklyRate,
		LastAccrualDay: day,
	}
	h.accounts = append(h.accounts, acc)
	v.markDirty(owner)

	return *acc, nil
}

// Deposit moves amount from checking into an existing vault. When the
// checking debit fails nothing is credited.
func (v *Vault) Deposit(owner, id uuid.UUID, amount decimal.Decimal) (Account, error) {
	err := ledger.ValidateAmount(amount)
	if err != nil {
		return Account{}, fmt.Errorf("deposit savings: %w", err)
	}

	h := v.holderFor(owner, false)
	if h == nil {
		return Account{}, fmt.Errorf("deposit savings: %w", ledger.ErrNotFound)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acc, _ := h.find(id)
	if acc == nil {
		return Account{}, fmt.Errorf("deposit savings: %w", ledger.ErrNotFound)
	}

	err = v.checkCap(h, amount)
	if err != nil {
		return Account{}, fmt.Errorf("deposit savings: %w", err)
	}

	_, err = v.accounts.Withdraw(owner, amount, ledger.TxSavingsDeposit, "savings deposit")
	if err != nil {
		return *acc, fmt.Errorf("deposit savings: %w", err)
	}

	acc.Balance = acc.Balance.Add(amount)
	v.markDirty(owner)

	return *acc, nil
}

// Withdraw moves amount from a vault to checking. During the lock period
// it fails with ErrAccountLocked unless forced, in which case the early
// withdrawal penalty is kept back.
func (v *Vault) Withdraw(owner, id uuid.UUID, amount decimal.Decimal, forced bool, day int64) (Withdrawal, error) {
	err := ledger.ValidateAmount(amount)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("withdraw savings: %w", err)
	}

	h := v.holderFor(owner, false)
	if h == nil {
		return Withdrawal{}, fmt.Errorf("withdraw savings: %w", ledger.ErrNotFound)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acc, _ := h.find(id)
	if acc == nil {
		return Withdrawal{}, fmt.Errorf("withdraw savings: %w", ledger.ErrNotFound)
	}

	w, err := v.take(acc, amount, forced, day, "savings withdrawal")
	if err != nil {
		return w, fmt.Errorf("withdraw savings: %w", err)
	}

	return w, nil
}

// Close empties a vault into checking under the same lock rules as
// Withdraw and removes it.
func (v *Vault) Close(owner, id uuid.UUID, forced bool, day int64) (Withdrawal, error) {
	h := v.holderFor(owner, false)
	if h == nil {
		return Withdrawal{}, fmt.Errorf("close savings: %w", ledger.ErrNotFound)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acc, idx := h.find(id)
	if acc == nil {
		return Withdrawal{}, fmt.Errorf("close savings: %w", ledger.ErrNotFound)
	}

	w := Withdrawal{Gross: decimal.Zero, Penalty: decimal.Zero, Net: decimal.Zero, Balance: decimal.Zero}

	if acc.Balance.IsPositive() {
		var err error

		w, err = v.take(acc, acc.Balance, forced, day, "savings account closed")
		if err != nil {
			return w, fmt.Errorf("close savings: %w", err)
		}
	} else if acc.Locked(day) && !forced {
		return w, fmt.Errorf("close savings: %w: unlocks on day %d", ErrAccountLocked, acc.UnlockDay())
	}

	h.accounts = append(h.accounts[:idx], h.accounts[idx+1:]...)
	v.markDirty(owner)

	return w, nil
}

// take debits the vault and credits checking; the caller holds h.mu.
func (v *Vault) take(acc *Account, amount decimal.Decimal, forced bool, day int64, desc string) (Withdrawal, error) {
	locked := acc.Locked(day)
	if locked && !forced {
		return Withdrawal{}, fmt.Errorf("%w: unlocks on day %d", ErrAccountLocked, acc.UnlockDay())
	}

	if acc.Balance.LessThan(amount) {
		return Withdrawal{}, ledger.ErrInsufficientFunds
	}

	penalty := decimal.Zero
	if locked {
		penalty = ledger.Cents(amount.Mul(v.cfg.EarlyPenalty))
	}

	net := amount.Sub(penalty)

	acc.Balance = acc.Balance.Sub(amount)

	if net.IsPositive() {
		_, err := v.accounts.Deposit(acc.OwnerID, net, ledger.TxSavingsWithdrawal, desc)
		if err != nil {
			acc.Balance = acc.Balance.Add(amount)
			return Withdrawal{}, fmt.Errorf("credit checking: %w", err)
		}
	}

	v.markDirty(acc.OwnerID)

	if penalty.IsPositive() {
		slog.Info("early savings withdrawal",
			"owner", acc.OwnerID, "savings_id", acc.ID, "amount", amount.StringFixed(2), "penalty", penalty.StringFixed(2))
	}

	return Withdrawal{Gross: amount, Penalty: penalty, Net: net, Balance: acc.Balance}, nil
}

// List returns copies of owner's vaults in opening order.
func (v *Vault) List(owner uuid.UUID) []Account {
	h := v.holderFor(owner, false)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Account, 0, len(h.accounts))
	for _, a := range h.accounts {
		out = append(out, *a)
	}

	return out
}

// DailyTick credits weekly interest. Each vault's LastAccrualDay advances
// in 7 day steps, so repeated calls for the same day credit nothing and a
// late call catches up every elapsed week. Interest compounds.
func (v *Vault) DailyTick(ctx context.Context, day int64) error {
	v.mu.RLock()
	owners := make([]uuid.UUID, 0, len(v.holders))
	for id := range v.holders {
		owners = append(owners, id)
	}
	v.mu.RUnlock()

	credited := 0

	for _, owner := range owners {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("savings tick: %w", err)
		}

		credited += v.accrue(owner, day)
	}

	if credited > 0 {
		slog.InfoContext(ctx, "savings interest credited", "day", day, "accruals", credited)
	}

	return nil
}

func (v *Vault) accrue(owner uuid.UUID, day int64) int {
	h := v.holderFor(owner, false)
	if h == nil {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, a := range h.accounts {
		for day-a.LastAccrualDay >= daysPerWeek {
			interest := ledger.Cents(a.Balance.Mul(a.Rate))
			if interest.IsPositive() {
				a.Balance = a.Balance.Add(interest)
			}

			a.LastAccrualDay += daysPerWeek
			n++
		}
	}

	if n > 0 {
		v.markDirty(owner)
	}

	return n
}

func (v *Vault) Snapshot(owner uuid.UUID) ([]Account, bool) {
	list := v.List(owner)

	return list, len(list) > 0
}

func (v *Vault) Restore(owner uuid.UUID, accounts []Account) error {
	h := v.holderFor(owner, true)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.accounts = h.accounts[:0]
	for _, a := range accounts {
		if a.Balance.IsNegative() {
			return fmt.Errorf("restore savings %s: %w: negative balance", a.ID, ledger.ErrValidation)
		}

		a.OwnerID = owner
		h.accounts = append(h.accounts, &a)
	}

	return nil
}
