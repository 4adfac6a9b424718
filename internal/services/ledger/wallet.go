package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type wallet struct {
	mu   sync.Mutex
	cash decimal.Decimal
}

// Wallets is the cash-on-hand ledger. It keeps no history and has no
// limits. Moves between cash and checking lock the wallet before the
// account, always in that order.
type Wallets struct {
	ledger *Ledger
	dirty  DirtyMarker

	mu      sync.RWMutex
	wallets map[uuid.UUID]*wallet
}

func NewWallets(l *Ledger, dirty DirtyMarker) *Wallets {
	return &Wallets{
		ledger:  l,
		dirty:   dirty,
		wallets: make(map[uuid.UUID]*wallet),
	}
}

func (w *Wallets) getOrCreate(owner uuid.UUID) *wallet {
	w.mu.RLock()
	wl, ok := w.wallets[owner]
	w.mu.RUnlock()

	if ok {
		return wl
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wl, ok = w.wallets[owner]
	if !ok {
		wl = &wallet{}
		w.wallets[owner] = wl
	}

	return wl
}

func (w *Wallets) markDirty(owner uuid.UUID) {
	if w.dirty != nil {
		w.dirty.MarkDirty(owner, WalletKind)
	}
}

// Cash returns owner's cash; unknown players hold none.
func (w *Wallets) Cash(owner uuid.UUID) decimal.Decimal {
	w.mu.RLock()
	wl, ok := w.wallets[owner]
	w.mu.RUnlock()

	if !ok {
		return decimal.Zero
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	return wl.cash
}

func (w *Wallets) AddCash(owner uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("add cash: %w", err)
	}

	wl := w.getOrCreate(owner)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.cash = wl.cash.Add(amount)
	w.markDirty(owner)

	return wl.cash, nil
}

func (w *Wallets) RemoveCash(owner uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("remove cash: %w", err)
	}

	wl := w.getOrCreate(owner)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	if wl.cash.LessThan(amount) {
		return wl.cash, fmt.Errorf("remove cash: %w", ErrInsufficientFunds)
	}

	wl.cash = wl.cash.Sub(amount)
	w.markDirty(owner)

	return wl.cash, nil
}

// CashToChecking moves cash into owner's checking account as one step.
// Returns the new cash and checking balances.
func (w *Wallets) CashToChecking(owner uuid.UUID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("cash to checking: %w", err)
	}

	acc, ok := w.ledger.get(owner)
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("cash to checking: %w", ErrNotFound)
	}

	wl := w.getOrCreate(owner)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if wl.cash.LessThan(amount) {
		return wl.cash, acc.balance, fmt.Errorf("cash to checking: %w", ErrInsufficientFunds)
	}

	wl.cash = wl.cash.Sub(amount)
	acc.balance = acc.balance.Add(amount)
	w.ledger.record(acc, owner, TxCashDeposit, amount, "cash deposit")

	w.markDirty(owner)
	w.ledger.markDirty(owner)

	return wl.cash, acc.balance, nil
}

// CheckingToCash withdraws from checking into the wallet as one step.
// Returns the new cash and checking balances.
func (w *Wallets) CheckingToCash(owner uuid.UUID, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	err := ValidateAmount(amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("checking to cash: %w", err)
	}

	acc, ok := w.ledger.get(owner)
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("checking to cash: %w", ErrNotFound)
	}

	wl := w.getOrCreate(owner)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.balance.LessThan(amount) {
		return wl.cash, acc.balance, fmt.Errorf("checking to cash: %w", ErrInsufficientFunds)
	}

	acc.balance = acc.balance.Sub(amount)
	wl.cash = wl.cash.Add(amount)
	w.ledger.record(acc, owner, TxCashWithdrawal, amount, "cash withdrawal")

	w.markDirty(owner)
	w.ledger.markDirty(owner)

	return wl.cash, acc.balance, nil
}

// Owners lists every player holding a wallet.
func (w *Wallets) Owners() []uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(w.wallets))
	for id := range w.wallets {
		out = append(out, id)
	}

	return out
}

type WalletState struct {
	Cash decimal.Decimal `json:"cash"`
}

func (w *Wallets) Snapshot(owner uuid.UUID) (WalletState, bool) {
	w.mu.RLock()
	wl, ok := w.wallets[owner]
	w.mu.RUnlock()

	if !ok {
		return WalletState{}, false
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	return WalletState{Cash: wl.cash}, true
}

func (w *Wallets) Restore(owner uuid.UUID, st WalletState) error {
	if st.Cash.IsNegative() {
		return fmt.Errorf("restore wallet %s: %w: negative cash", owner, ErrValidation)
	}

	wl := w.getOrCreate(owner)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.cash = st.Cash

	return nil
}
