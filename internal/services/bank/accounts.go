package bank

import (
	"context"
	"fmt"

	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultHistory = 20

type Overview struct {
	Balances
	Day     int64                `json:"day"`
	History []ledger.Transaction `json:"history"`
}

// CreateAccount opens the player's checking account and starts the credit
// history at today.
func (b *Bank) CreateAccount(ctx context.Context, player uuid.UUID) (_ Balances, err error) {
	defer func() { b.observe(ctx, "create_account", player, err) }()

	day := b.clock.Day()

	_, err = b.ledger.CreateAccount(player)
	if err != nil {
		return Balances{}, err
	}

	b.credit.Open(player, day)

	return b.balances(player, day), nil
}

func (b *Bank) Overview(ctx context.Context, player uuid.UUID, limit int) (_ Overview, err error) {
	defer func() { b.observe(ctx, "account_overview", player, err) }()

	if limit <= 0 {
		limit = defaultHistory
	}

	day := b.clock.Day()

	history, err := b.ledger.History(player, limit)
	if err != nil {
		return Overview{}, err
	}

	return Overview{Balances: b.balances(player, day), Day: day, History: history}, nil
}

// Deposit moves cash from the wallet into checking.
func (b *Bank) Deposit(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (_ Balances, err error) {
	defer func() { b.observe(ctx, "deposit", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return Balances{}, err
	}

	_, _, err = b.wallets.CashToChecking(player, amount)
	if err != nil {
		return b.balances(player, b.clock.Day()), err
	}

	return b.balances(player, b.clock.Day()), nil
}

// Withdraw moves money from checking into the wallet.
func (b *Bank) Withdraw(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (_ Balances, err error) {
	defer func() { b.observe(ctx, "withdraw", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return Balances{}, err
	}

	_, _, err = b.wallets.CheckingToCash(player, amount)
	if err != nil {
		return b.balances(player, b.clock.Day()), err
	}

	return b.balances(player, b.clock.Day()), nil
}

// Transfer pays target from the player's checking account, counted
// against today's transfer limit.
func (b *Bank) Transfer(ctx context.Context, player, target uuid.UUID, amount decimal.Decimal) (_ Balances, err error) {
	defer func() { b.observe(ctx, "transfer", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return Balances{}, err
	}

	day := b.clock.Day()

	desc := fmt.Sprintf("transfer to %s", target)

	_, err = b.ledger.Transfer(player, target, amount, day, desc)
	if err != nil {
		return b.balances(player, day), err
	}

	return b.balances(player, day), nil
}

// AddCash credits the wallet, for game systems that pay out cash.
func (b *Bank) AddCash(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (_ Balances, err error) {
	defer func() { b.observe(ctx, "add_cash", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return Balances{}, err
	}

	_, err = b.wallets.AddCash(player, amount)
	if err != nil {
		return b.balances(player, b.clock.Day()), err
	}

	return b.balances(player, b.clock.Day()), nil
}

// RemoveCash debits the wallet, for purchases paid in cash.
func (b *Bank) RemoveCash(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (_ Balances, err error) {
	defer func() { b.observe(ctx, "remove_cash", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return Balances{}, err
	}

	_, err = b.wallets.RemoveCash(player, amount)
	if err != nil {
		return b.balances(player, b.clock.Day()), err
	}

	return b.balances(player, b.clock.Day()), nil
}
