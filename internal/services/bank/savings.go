package bank

import (
	"context"

	"github.com/fastprodman/playerbank/internal/services/savings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SavingsResult struct {
	Balances
	Savings    *savings.Account    `json:"savings,omitempty"`
	Withdrawal *savings.Withdrawal `json:"withdrawal,omitempty"`
}

type SavingsList struct {
	Day      int64             `json:"day"`
	Accounts []savings.Account `json:"accounts"`
}

func (b *Bank) savingsAccount(player, id uuid.UUID) *savings.Account {
	for _, a := range b.savings.List(player) {
		if a.ID == id {
			return &a
		}
	}

	return nil
}

func (b *Bank) CreateSavings(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (_ SavingsResult, err error) {
	defer func() { b.observe(ctx, "create_savings", player, err) }()

	err = b.requireAccount(player)
	if err != nil {
		return SavingsResult{}, err
	}

	day := b.clock.Day()

	acc, err := b.savings.Create(player, amount, day)
	if err != nil {
		return SavingsResult{Balances: b.balances(player, day)}, err
	}

	return SavingsResult{Balances: b.balances(player, day), Savings: &acc}, nil
}

func (b *Bank) ListSavings(ctx context.Context, player uuid.UUID) (_ SavingsList, err error) {
	defer func() { b.observe(ctx, "list_savings", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return SavingsList{}, err
	}

	return SavingsList{Day: b.clock.Day(), Accounts: b.savings.List(player)}, nil
}

func (b *Bank) DepositSavings(ctx context.Context, player, id uuid.UUID, amount decimal.Decimal) (_ SavingsResult, err error) {
	defer func() { b.observe(ctx, "deposit_savings", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return SavingsResult{}, err
	}

	day := b.clock.Day()

	acc, err := b.savings.Deposit(player, id, amount)
	if err != nil {
		return SavingsResult{Balances: b.balances(player, day)}, err
	}

	return SavingsResult{Balances: b.balances(player, day), Savings: &acc}, nil
}

// WithdrawSavings moves amount to checking. forced accepts the early
// withdrawal penalty while the vault is locked.
func (b *Bank) WithdrawSavings(ctx context.Context, player, id uuid.UUID, amount decimal.Decimal, forced bool) (_ SavingsResult, err error) {
	defer func() { b.observe(ctx, "withdraw_savings", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return SavingsResult{}, err
	}

	day := b.clock.Day()

	w, err := b.savings.Withdraw(player, id, amount, forced, day)
	if err != nil {
		return SavingsResult{Balances: b.balances(player, day)}, err
	}

	return SavingsResult{
		Balances:   b.balances(player, day),
		Savings:    b.savingsAccount(player, id),
		Withdrawal: &w,
	}, nil
}

func (b *Bank) CloseSavings(ctx context.Context, player, id uuid.UUID, forced bool) (_ SavingsResult, err error) {
	defer func() { b.observe(ctx, "close_savings", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return SavingsResult{}, err
	}

	day := b.clock.Day()

	w, err := b.savings.Close(player, id, forced, day)
	if err != nil {
		return SavingsResult{Balances: b.balances(player, day)}, err
	}

	return SavingsResult{Balances: b.balances(player, day), Withdrawal: &w}, nil
}
