package ledger

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingMarker struct {
	mu    sync.Mutex
	marks map[string]int
}

func (m *recordingMarker) MarkDirty(owner uuid.UUID, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.marks == nil {
		m.marks = make(map[string]int)
	}
	m.marks[owner.String()+"/"+kind]++
}

func (m *recordingMarker) count(owner uuid.UUID, kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.marks[owner.String()+"/"+kind]
}

func newTestLedger(t *testing.T, cfg Config) *Ledger {
	t.Helper()

	if cfg.DailyTransferLimit.IsZero() {
		cfg.DailyTransferLimit = dec("10000")
	}

	return New(cfg, nil)
}

func openWith(t *testing.T, l *Ledger, owner uuid.UUID, balance string) {
	t.Helper()

	_, err := l.CreateAccount(owner)
	require.NoError(t, err)

	if b := dec(balance); b.IsPositive() {
		_, err = l.Deposit(owner, b, TxDeposit, "seed")
		require.NoError(t, err)
	}
}

func TestLedger_CreateAccount(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{StartBalance: dec("250")})
	owner := uuid.New()

	bal, err := l.CreateAccount(owner)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("250")))

	_, err = l.CreateAccount(owner)
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = l.CreateAccount(uuid.Nil)
	require.ErrorIs(t, err, ErrValidation)

	hist, err := l.History(owner, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, TxStartBalance, hist[0].Type)
}

func TestLedger_Deposit_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr error
	}{
		{name: "positive_amount", amount: "10.15", want: "110.15"},
		{name: "zero_rejected", amount: "0", want: "100", wantErr: ErrValidation},
		{name: "negative_rejected", amount: "-5", want: "100", wantErr: ErrValidation},
		{name: "three_decimals_rejected", amount: "1.005", want: "100", wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := newTestLedger(t, Config{})
			owner := uuid.New()
			openWith(t, l, owner, "100")

			_, err := l.Deposit(owner, dec(tt.amount), TxDeposit, "test")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			bal, err := l.Balance(owner)
			require.NoError(t, err)
			assert.True(t, bal.Equal(dec(tt.want)), "balance %s, want %s", bal, tt.want)
		})
	}
}

func TestLedger_Deposit_CreatesAccountLazily(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{StartBalance: dec("500")})
	owner := uuid.New()

	bal, err := l.Deposit(owner, dec("20"), TxLoanDisbursement, "loan")
	require.NoError(t, err)

	// lazily created accounts do not receive the start balance
	assert.True(t, bal.Equal(dec("20")))
}

func TestLedger_Withdraw_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    string
		amount  string
		want    string
		wantErr error
	}{
		{name: "sufficient_funds", seed: "1000", amount: "250", want: "750"},
		{name: "exact_to_zero", seed: "300", amount: "300", want: "0"},
		{name: "insufficient_funds_unchanged", seed: "200", amount: "300", want: "200", wantErr: ErrInsufficientFunds},
		{name: "invalid_amount", seed: "200", amount: "0", want: "200", wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := newTestLedger(t, Config{})
			owner := uuid.New()
			openWith(t, l, owner, tt.seed)

			_, err := l.Withdraw(owner, dec(tt.amount), TxWithdrawal, "test")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			bal, err := l.Balance(owner)
			require.NoError(t, err)
			assert.True(t, bal.Equal(dec(tt.want)), "balance %s, want %s", bal, tt.want)
		})
	}
}

func TestLedger_Withdraw_UnknownAccount(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{})

	_, err := l.Withdraw(uuid.New(), dec("1"), TxWithdrawal, "test")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_Withdraw_ConcurrentNeverNegative(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{})
	owner := uuid.New()
	openWith(t, l, owner, "1000")

	const workers = 50

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
	)

	// 50 x 30 = 1500 requested against a balance of 1000
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := l.Withdraw(owner, dec("30"), TxWithdrawal, "race")
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	bal, err := l.Balance(owner)
	require.NoError(t, err)

	assert.Equal(t, int64(33), successes.Load())
	assert.True(t, bal.Equal(dec("10")), "balance %s", bal)
	assert.False(t, bal.IsNegative())
}

func TestLedger_Transfer_Conservation(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{})
	alice, bob := uuid.New(), uuid.New()
	openWith(t, l, alice, "500")
	openWith(t, l, bob, "120")

	_, err := l.Transfer(alice, bob, dec("75.50"), 1, "rent")
	require.NoError(t, err)

	a, _ := l.Balance(alice)
	b, _ := l.Balance(bob)

	assert.True(t, a.Equal(dec("424.50")))
	assert.True(t, b.Equal(dec("195.50")))
	assert.True(t, a.Add(b).Equal(dec("620")))
}

func TestLedger_Transfer_Table(t *testing.T) {
	t.Parallel()

	alice := uuid.MustParse("00000000-0000-0000-0000-00000000000a")

	tests := []struct {
		name       string
		to         uuid.UUID
		amount     string
		wantErr    error
		wantSender string
	}{
		{name: "insufficient_funds", to: uuid.New(), amount: "150", wantErr: ErrInsufficientFunds, wantSender: "100"},
		{name: "self_transfer", to: alice, amount: "10", wantErr: ErrValidation, wantSender: "100"},
		{name: "empty_target", to: uuid.Nil, amount: "10", wantErr: ErrValidation, wantSender: "100"},
		{name: "non_positive", to: uuid.New(), amount: "-1", wantErr: ErrValidation, wantSender: "100"},
		{name: "lazy_recipient", to: uuid.New(), amount: "40", wantSender: "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := newTestLedger(t, Config{})
			openWith(t, l, alice, "100")

			_, err := l.Transfer(alice, tt.to, dec(tt.amount), 1, "test")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)

				got, berr := l.Balance(tt.to)
				require.NoError(t, berr)
				assert.True(t, got.Equal(dec(tt.amount)))
			}

			bal, err := l.Balance(alice)
			require.NoError(t, err)
			assert.True(t, bal.Equal(dec(tt.wantSender)), "sender %s, want %s", bal, tt.wantSender)
		})
	}
}

func TestLedger_Transfer_DailyLimit(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{DailyTransferLimit: dec("1000")})
	alice, bob := uuid.New(), uuid.New()
	openWith(t, l, alice, "5000")

	_, err := l.Transfer(alice, bob, dec("600"), 3, "first")
	require.NoError(t, err)
	assert.True(t, l.RemainingLimit(alice, 3).Equal(dec("400")))

	_, err = l.Transfer(alice, bob, dec("500"), 3, "second")
	require.ErrorIs(t, err, ErrLimitExceeded)

	bal, _ := l.Balance(alice)
	assert.True(t, bal.Equal(dec("4400")), "failed transfer must not debit")

	// next day the usage resets lazily
	assert.True(t, l.RemainingLimit(alice, 4).Equal(dec("1000")))

	_, err = l.Transfer(alice, bob, dec("500"), 4, "second retry")
	require.NoError(t, err)
	assert.True(t, l.RemainingLimit(alice, 4).Equal(dec("500")))
}

func TestLedger_Transfer_ConcurrentLimitNeverExceeded(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{DailyTransferLimit: dec("1000")})
	alice := uuid.New()
	openWith(t, l, alice, "100000")

	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Transfer(alice, uuid.New(), dec("100"), 7, "spray")
		}()
	}
	wg.Wait()

	bal, _ := l.Balance(alice)
	assert.True(t, bal.Equal(dec("99000")), "balance %s", bal)
	assert.True(t, l.RemainingLimit(alice, 7).IsZero())
}

func TestLedger_Transfer_ConcurrentOpposingNoDeadlock(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{DailyTransferLimit: dec("1000000")})
	alice, bob := uuid.New(), uuid.New()
	openWith(t, l, alice, "1000")
	openWith(t, l, bob, "1000")

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = l.Transfer(alice, bob, dec("7"), 1, "ab")
			} else {
				_, _ = l.Transfer(bob, alice, dec("7"), 1, "ba")
			}
		}()
	}
	wg.Wait()

	a, _ := l.Balance(alice)
	b, _ := l.Balance(bob)
	assert.True(t, a.Add(b).Equal(dec("2000")))
}

func TestLedger_Pay_IgnoresDailyLimit(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{DailyTransferLimit: dec("100")})
	alice, bob := uuid.New(), uuid.New()
	openWith(t, l, alice, "1000")
	openWith(t, l, bob, "0")

	_, err := l.Pay(alice, bob, dec("500"), TxRecurringPaymentOut, TxRecurringPaymentIn, "standing order")
	require.NoError(t, err)
	assert.True(t, l.RemainingLimit(alice, 0).Equal(dec("100")))

	hist, err := l.History(bob, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, TxRecurringPaymentIn, hist[0].Type)
}

func TestLedger_History_BoundedNewestFirst(t *testing.T) {
	t.Parallel()

	l := New(Config{HistoryLimit: 3}, nil)
	owner := uuid.New()

	for _, amt := range []string{"1", "2", "3", "4", "5"} {
		_, err := l.Deposit(owner, dec(amt), TxDeposit, amt)
		require.NoError(t, err)
	}

	hist, err := l.History(owner, 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "5", hist[0].Description)
	assert.Equal(t, "3", hist[2].Description)
}

func TestLedger_MarksDirty(t *testing.T) {
	t.Parallel()

	m := &recordingMarker{}
	l := New(Config{DailyTransferLimit: dec("1000")}, m)
	alice, bob := uuid.New(), uuid.New()

	_, err := l.Deposit(alice, dec("100"), TxDeposit, "seed")
	require.NoError(t, err)
	_, err = l.Transfer(alice, bob, dec("10"), 1, "x")
	require.NoError(t, err)

	assert.Equal(t, 2, m.count(alice, AccountKind))
	assert.Equal(t, 1, m.count(bob, AccountKind))
}

func TestLedger_SnapshotRestore(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, Config{DailyTransferLimit: dec("1000")})
	alice := uuid.New()
	openWith(t, l, alice, "300")
	_, err := l.Transfer(alice, uuid.New(), dec("50"), 9, "x")
	require.NoError(t, err)

	st, ok := l.Snapshot(alice)
	require.True(t, ok)

	restored := newTestLedger(t, Config{DailyTransferLimit: dec("1000")})
	require.NoError(t, restored.Restore(alice, st))

	bal, err := restored.Balance(alice)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("250")))
	assert.True(t, restored.RemainingLimit(alice, 9).Equal(dec("950")))

	err = restored.Restore(uuid.New(), AccountState{Balance: dec("-1")})
	require.ErrorIs(t, err, ErrValidation)
}
