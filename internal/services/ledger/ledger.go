package ledger

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountKind = "account"
	WalletKind  = "wallet"
)

type Config struct {
	StartBalance       decimal.Decimal `env:"BANK_START_BALANCE" envDefault:"0"`
	DailyTransferLimit decimal.Decimal `env:"BANK_DAILY_TRANSFER_LIMIT" envDefault:"10000"`
	HistoryLimit       int             `env:"BANK_HISTORY_LIMIT" envDefault:"100"`
}

// DirtyMarker is notified after every committed mutation so the record
// can be flushed on the next save cycle.
type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

type account struct {
	mu      sync.Mutex
	balance decimal.Decimal
	history []Transaction
	limit   limitEntry
}

// Ledger holds checking accounts. Every balance change happens under the
// owning account's mutex; callers never pre-check a balance.
type Ledger struct {
	cfg    Config
	limits *LimitGuard
	dirty  DirtyMarker
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[uuid.UUID]*account
}

func New(cfg Config, dirty DirtyMarker) *Ledger {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}

	return &Ledger{
		cfg:      cfg,
		limits:   NewLimitGuard(cfg.DailyTransferLimit),
		dirty:    dirty,
		now:      time.Now,
		accounts: make(map[uuid.UUID]*account),
	}
}

func (l *Ledger) get(owner uuid.UUID) (*account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[owner]

	return acc, ok
}

func (l *Ledger) getOrCreate(owner uuid.UUID) *account {
	acc, ok := l.get(owner)
	if ok {
		return acc
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok = l.accounts[owner]
	if !ok {
		acc = &account{}
		l.accounts[owner] = acc
	}

	return acc
}

func (l *Ledger) markDirty(owner uuid.UUID) {
	if l.dirty != nil {
		l.dirty.MarkDirty(owner, AccountKind)
	}
}

// record appends to the audit log; the caller holds acc.mu.
func (l *Ledger) record(acc *account, owner uuid.UUID, typ TxType, amount decimal.Decimal, desc string) {
	acc.history = append(acc.history, Transaction{
		ID:          uuid.New(),
		OwnerID:     owner,
		Type:        typ,
		Amount:      amount,
		Description: desc,
		Timestamp:   l.now().UTC(),
	})

	if over := len(acc.history) - l.cfg.HistoryLimit; over > 0 {
		acc.history = append(acc.history[:0:0], acc.history[over:]...)
	}
}

// CreateAccount opens a checking account credited with the configured
// start balance.
func (l *Ledger) CreateAccount(owner uuid.UUID) (decimal.Decimal, error) {
	if owner == uuid.Nil {
		return decimal.Zero, fmt.Errorf("create account: %w: empty owner", ErrValidation)
	}

	l.mu.Lock()
	_, exists := l.accounts[owner]
	if exists {
		l.mu.Unlock()
		return decimal.Zero, fmt.Errorf("create account: %w", ErrAlreadyExists)
	}

	acc := &account{}
	acc.mu.Lock()
	l.accounts[owner] = acc
	l.mu.Unlock()

	defer acc.mu.Unlock()

	if l.cfg.StartBalance.IsPositive() {
		acc.balance = l.cfg.StartBalance
		l.record(acc, owner, TxStartBalance, l.cfg.StartBalance, "start balance")
	}

	l.markDirty(owner)

	return acc.balance, nil
}

// Exists reports whether owner has a checking account.
func (l *Ledger) Exists(owner uuid.UUID) bool {
	_, ok := l.get(owner)
	return ok
}

// Balance returns the checking balance, or ErrNotFound.
func (l *Ledger) Balance(owner uuid.UUID) (decimal.Decimal, error) {
	acc, ok := l.get(owner)
	if !ok {
		return decimal.Zero, fmt.Errorf("get balance: %w", ErrNotFound)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	return acc.balance, nil
}

// Deposit credits owner's account, creating it with a zero balance if
// needed, and returns the new balance.
func (l *Ledger) Deposit(owner uuid.UUID, amount decimal.Decimal, typ TxType, desc string) (decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("deposit: %w", err)
	}

	acc := l.getOrCreate(owner)

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balance = acc.balance.Add(amount)
	l.record(acc, owner, typ, amount, desc)
	l.markDirty(owner)

	return acc.balance, nil
}

// Withdraw checks and debits in one critical section. Insufficient
// balance yields ErrInsufficientFunds and leaves the account untouched.
func (l *Ledger) Withdraw(owner uuid.UUID, amount decimal.Decimal, typ TxType, desc string) (decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("withdraw: %w", err)
	}

	acc, ok := l.get(owner)
	if !ok {
		return decimal.Zero, fmt.Errorf("withdraw: %w", ErrNotFound)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.balance.LessThan(amount) {
		return acc.balance, fmt.Errorf("withdraw: %w", ErrInsufficientFunds)
	}

	acc.balance = acc.balance.Sub(amount)
	l.record(acc, owner, typ, amount, desc)
	l.markDirty(owner)

	return acc.balance, nil
}

// Transfer moves amount from one player to another, counting it against
// the sender's daily limit for day. The recipient account is created on
// demand. Returns the sender's new balance.
func (l *Ledger) Transfer(from, to uuid.UUID, amount decimal.Decimal, day int64, desc string) (decimal.Decimal, error) {
	bal, err := l.move(from, to, amount, day, desc, TxTransferOut, TxTransferIn, true)
	if err != nil {
		return bal, fmt.Errorf("transfer: %w", err)
	}

	return bal, nil
}

// Pay is Transfer for scheduled payments: same atomicity, but it does not
// consume the sender's daily transfer limit.
func (l *Ledger) Pay(from, to uuid.UUID, amount decimal.Decimal, outType, inType TxType, desc string) (decimal.Decimal, error) {
	bal, err := l.move(from, to, amount, 0, desc, outType, inType, false)
	if err != nil {
		return bal, fmt.Errorf("pay: %w", err)
	}

	return bal, nil
}

func (l *Ledger) move(
	from, to uuid.UUID,
	amount decimal.Decimal,
	day int64,
	desc string,
	outType, inType TxType,
	limited bool,
) (decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}

	if to == uuid.Nil {
		return decimal.Zero, fmt.Errorf("%w: empty target", ErrValidation)
	}

	if from == to {
		return decimal.Zero, fmt.Errorf("%w: cannot transfer to self", ErrValidation)
	}

	sender, ok := l.get(from)
	if !ok {
		return decimal.Zero, ErrNotFound
	}

	recipient := l.getOrCreate(to)

	unlock := lockPair(from, sender, to, recipient)
	defer unlock()

	if sender.balance.LessThan(amount) {
		return sender.balance, ErrInsufficientFunds
	}

	if limited {
		err = l.limits.reserve(&sender.limit, day, amount)
		if err != nil {
			return sender.balance, err
		}
	}

	sender.balance = sender.balance.Sub(amount)
	recipient.balance = recipient.balance.Add(amount)

	l.record(sender, from, outType, amount, desc)
	l.record(recipient, to, inType, amount, desc)
	l.markDirty(from)
	l.markDirty(to)

	return sender.balance, nil
}

// lockPair locks two distinct accounts in id order.
func lockPair(aID uuid.UUID, a *account, bID uuid.UUID, b *account) func() {
	first, second := a, b
	if bytes.Compare(bID[:], aID[:]) < 0 {
		first, second = b, a
	}

	first.mu.Lock()
	second.mu.Lock()

	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// History returns up to limit most recent transactions, newest first.
func (l *Ledger) History(owner uuid.UUID, limit int) ([]Transaction, error) {
	acc, ok := l.get(owner)
	if !ok {
		return nil, fmt.Errorf("get history: %w", ErrNotFound)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	n := len(acc.history)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Transaction, 0, n)
	for i := len(acc.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, acc.history[i])
	}

	return out, nil
}

// Owners lists every player holding a checking account.
func (l *Ledger) Owners() []uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(l.accounts))
	for id := range l.accounts {
		out = append(out, id)
	}

	return out
}

type AccountState struct {
	Balance   decimal.Decimal `json:"balance"`
	History   []Transaction   `json:"history"`
	LimitDay  int64           `json:"limitDay"`
	LimitUsed decimal.Decimal `json:"limitUsed"`
}

func (l *Ledger) Snapshot(owner uuid.UUID) (AccountState, bool) {
	acc, ok := l.get(owner)
	if !ok {
		return AccountState{}, false
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	return AccountState{
		Balance:   acc.balance,
		History:   append([]Transaction(nil), acc.history...),
		LimitDay:  acc.limit.day,
		LimitUsed: acc.limit.used,
	}, true
}

func (l *Ledger) Restore(owner uuid.UUID, st AccountState) error {
	if st.Balance.IsNegative() {
		return fmt.Errorf("restore account %s: %w: negative balance", owner, ErrValidation)
	}

	acc := l.getOrCreate(owner)

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balance = st.Balance
	acc.history = append([]Transaction(nil), st.History...)
	acc.limit = limitEntry{day: st.LimitDay, used: st.LimitUsed}

	return nil
}
