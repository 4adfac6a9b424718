package savings

import (
	"context"
	"errors"
	"testing"

	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() Config {
	return Config{
		LockWeeks:    4,
		WeeklyRate:   dec("0.05"),
		EarlyPenalty: dec("0.10"),
		MinDeposit:   dec("100"),
		MaxPerPlayer: dec("10000"),
	}
}

func setup(t *testing.T, checking string) (*Vault, *ledger.Ledger, uuid.UUID) {
	t.Helper()

	l := ledger.New(ledger.Config{DailyTransferLimit: dec("10000")}, nil)
	owner := uuid.New()

	_, err := l.CreateAccount(owner)
	require.NoError(t, err)

	if c := dec(checking); c.IsPositive() {
		_, err = l.Deposit(owner, c, ledger.TxDeposit, "seed")
		require.NoError(t, err)
	}

	return New(testConfig(), l, nil), l, owner
}

func balance(t *testing.T, l *ledger.Ledger, owner uuid.UUID) decimal.Decimal {
	t.Helper()

	b, err := l.Balance(owner)
	require.NoError(t, err)

	return b
}

func TestVault_Create(t *testing.T) {
	t.Parallel()

	v, l, owner := setup(t, "150")

	acc, err := v.Create(owner, dec("100"), 10)
	require.NoError(t, err)

	assert.True(t, acc.Balance.Equal(dec("100")))
	assert.Equal(t, int64(38), acc.UnlockDay())
	assert.True(t, balance(t, l, owner).Equal(dec("50")))
	require.Len(t, v.List(owner), 1)
}

func TestVault_Create_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		checking string
		amount   string
		wantErr  error
	}{
		{name: "below_minimum", checking: "1000", amount: "99", wantErr: ledger.ErrValidation},
		{name: "above_player_cap", checking: "20000", amount: "10000.01", wantErr: ledger.ErrValidation},
		{name: "insufficient_checking", checking: "50", amount: "100", wantErr: ledger.ErrInsufficientFunds},
		{name: "non_positive", checking: "50", amount: "0", wantErr: ledger.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, l, owner := setup(t, tt.checking)

			_, err := v.Create(owner, dec(tt.amount), 0)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Empty(t, v.List(owner))
			assert.True(t, balance(t, l, owner).Equal(dec(tt.checking)))
		})
	}
}

func TestVault_Deposit(t *testing.T) {
	t.Parallel()

	v, l, owner := setup(t, "500")

	acc, err := v.Create(owner, dec("200"), 0)
	require.NoError(t, err)

	acc, err = v.Deposit(owner, acc.ID, dec("250"))
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("450")))
	assert.True(t, balance(t, l, owner).Equal(dec("50")))

	// failed debit leaves savings untouched
	_, err = v.Deposit(owner, acc.ID, dec("51"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, v.List(owner)[0].Balance.Equal(dec("450")))

	_, err = v.Deposit(owner, uuid.New(), dec("1"))
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestVault_Withdraw_LockRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		day          int64
		forced       bool
		wantErr      error
		wantNet      string
		wantChecking string
	}{
		{name: "locked_not_forced", day: 27, wantErr: ErrAccountLocked, wantChecking: "0"},
		{name: "locked_forced_penalty", day: 27, forced: true, wantNet: "90", wantChecking: "90"},
		{name: "after_lock_no_penalty", day: 28, wantNet: "100", wantChecking: "100"},
		{name: "after_lock_forced_no_penalty", day: 40, forced: true, wantNet: "100", wantChecking: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, l, owner := setup(t, "1000")

			acc, err := v.Create(owner, dec("1000"), 0)
			require.NoError(t, err)

			w, err := v.Withdraw(owner, acc.ID, dec("100"), tt.forced, tt.day)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, v.List(owner)[0].Balance.Equal(dec("1000")))
			} else {
				require.NoError(t, err)
				assert.True(t, w.Net.Equal(dec(tt.wantNet)), "net %s", w.Net)
				assert.True(t, w.Gross.Equal(dec("100")))
				assert.True(t, w.Balance.Equal(dec("900")))
			}

			assert.True(t, balance(t, l, owner).Equal(dec(tt.wantChecking)))
		})
	}
}

func TestVault_Withdraw_MoreThanBalance(t *testing.T) {
	t.Parallel()

	v, _, owner := setup(t, "100")

	acc, err := v.Create(owner, dec("100"), 0)
	require.NoError(t, err)

	_, err = v.Withdraw(owner, acc.ID, dec("100.01"), false, 100)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestVault_Close(t *testing.T) {
	t.Parallel()

	v, l, owner := setup(t, "300")

	acc, err := v.Create(owner, dec("300"), 0)
	require.NoError(t, err)

	_, err = v.Close(owner, acc.ID, false, 5)
	require.ErrorIs(t, err, ErrAccountLocked)

	w, err := v.Close(owner, acc.ID, true, 5)
	require.NoError(t, err)
	assert.True(t, w.Penalty.Equal(dec("30")))
	assert.True(t, balance(t, l, owner).Equal(dec("270")))
	assert.Empty(t, v.List(owner))

	_, err = v.Close(owner, acc.ID, true, 5)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestVault_DailyTick_WeeklyCompounding(t *testing.T) {
	t.Parallel()

	v, _, owner := setup(t, "100")

	acc, err := v.Create(owner, dec("100"), 0)
	require.NoError(t, err)

	ctx := context.Background()

	for day := int64(1); day <= 28; day++ {
		require.NoError(t, v.DailyTick(ctx, day))
		// same day again must not credit twice
		require.NoError(t, v.DailyTick(ctx, day))
	}

	got := v.List(owner)[0]
	// 100 -> 105 -> 110.25 -> 115.76 -> 121.55
	assert.True(t, got.Balance.Equal(dec("121.55")), "balance %s", got.Balance)
	assert.Equal(t, int64(28), got.LastAccrualDay)
	assert.Equal(t, acc.ID, got.ID)
}

func TestVault_DailyTick_CatchesUpMissedWeeks(t *testing.T) {
	t.Parallel()

	v, _, owner := setup(t, "100")

	_, err := v.Create(owner, dec("100"), 0)
	require.NoError(t, err)

	require.NoError(t, v.DailyTick(context.Background(), 30))

	got := v.List(owner)[0]
	assert.True(t, got.Balance.Equal(dec("121.55")), "balance %s", got.Balance)
	assert.Equal(t, int64(28), got.LastAccrualDay)
}

func TestVault_DailyTick_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	v, _, owner := setup(t, "100")

	_, err := v.Create(owner, dec("100"), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = v.DailyTick(ctx, 7)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, v.List(owner)[0].Balance.Equal(dec("100")))
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Withdraw(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error) {
	args := m.Called(owner, amount, typ, desc)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockAccounts) Deposit(owner uuid.UUID, amount decimal.Decimal, typ ledger.TxType, desc string) (decimal.Decimal, error) {
	args := m.Called(owner, amount, typ, desc)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestVault_Withdraw_CreditFailureRestoresSavings(t *testing.T) {
	t.Parallel()

	accounts := new(mockAccounts)
	owner := uuid.New()

	accounts.On("Withdraw", owner, mock.Anything, ledger.TxSavingsDeposit, mock.Anything).
		Return(decimal.Zero, nil).Once()
	accounts.On("Deposit", owner, mock.Anything, ledger.TxSavingsWithdrawal, mock.Anything).
		Return(decimal.Zero, errors.New("boom")).Once()

	v := New(testConfig(), accounts, nil)

	acc, err := v.Create(owner, dec("500"), 0)
	require.NoError(t, err)

	_, err = v.Withdraw(owner, acc.ID, dec("200"), false, 100)
	require.Error(t, err)

	assert.True(t, v.List(owner)[0].Balance.Equal(dec("500")))
	accounts.AssertExpectations(t)
}

func TestVault_SnapshotRestore(t *testing.T) {
	t.Parallel()

	v, _, owner := setup(t, "1000")

	_, err := v.Create(owner, dec("400"), 3)
	require.NoError(t, err)

	st, ok := v.Snapshot(owner)
	require.True(t, ok)

	other := New(testConfig(), nil, nil)
	require.NoError(t, other.Restore(owner, st))
	assert.Equal(t, st, other.List(owner))

	_, ok = New(testConfig(), nil, nil).Snapshot(owner)
	assert.False(t, ok)
}
