package bank

import (
	"context"

	"github.com/fastprodman/playerbank/internal/services/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderList struct {
	Day       int64          `json:"day"`
	SlotsUsed int            `json:"slotsUsed"`
	SlotsMax  int            `json:"slotsMax"`
	Orders    []orders.Order `json:"orders"`
}

func (b *Bank) CreateOrder(ctx context.Context, player, payee uuid.UUID, amount decimal.Decimal, intervalDays int) (_ orders.Order, err error) {
	defer func() { b.observe(ctx, "create_order", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return orders.Order{}, err
	}

	return b.orders.Create(player, payee, amount, intervalDays, b.clock.Day())
}

func (b *Bank) ListOrders(ctx context.Context, player uuid.UUID) (_ OrderList, err error) {
	defer func() { b.observe(ctx, "list_orders", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return OrderList{}, err
	}

	return OrderList{
		Day:       b.clock.Day(),
		SlotsUsed: b.slots.Used(player),
		SlotsMax:  b.slots.Max(),
		Orders:    b.orders.List(player),
	}, nil
}

// PauseOrder, ResumeOrder and DeleteOrder accept a full order id or a
// unique prefix of it.
func (b *Bank) PauseOrder(ctx context.Context, player uuid.UUID, ref string) (_ orders.Order, err error) {
	defer func() { b.observe(ctx, "pause_order", player, err) }()

	return b.orders.Pause(player, ref)
}

func (b *Bank) ResumeOrder(ctx context.Context, player uuid.UUID, ref string) (_ orders.Order, err error) {
	defer func() { b.observe(ctx, "resume_order", player, err) }()

	return b.orders.Resume(player, ref)
}

func (b *Bank) DeleteOrder(ctx context.Context, player uuid.UUID, ref string) (_ orders.Order, err error) {
	defer func() { b.observe(ctx, "delete_order", player, err) }()

	return b.orders.Delete(player, ref)
}
