package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/playerbank/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createOrderRequest struct {
	PayeeID      string `json:"payeeId"`
	Amount       string `json:"amount"`
	IntervalDays int    `json:"intervalDays"`
}

// CreateOrderHandler handles POST /players/{playerId}/orders
func (h *HandlerProvider) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	var req createOrderRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	payee, err := uuid.Parse(req.PayeeID)
	if err != nil {
		badRequest(w, "invalid payeeId")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	o, err := h.cmds.CreateOrder(r.Context(), id, payee, amount, req.IntervalDays)
	respond(w, http.StatusCreated, o, err)
}

// ListOrdersHandler handles GET /players/{playerId}/orders
func (h *HandlerProvider) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	list, err := h.cmds.ListOrders(r.Context(), id)
	respond(w, http.StatusOK, list, err)
}

type orderCommand func(ctx context.Context, player uuid.UUID, ref string) (orders.Order, error)

// orderHandler serves pause, resume and delete. {orderId} may be a unique
// prefix of the order id.
func orderHandler(cmd orderCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := playerParam(w, r)
		if !ok {
			return
		}

		ref := chi.URLParam(r, "orderId")
		if ref == "" {
			badRequest(w, "missing orderId")
			return
		}

		o, err := cmd(r.Context(), id, ref)
		respond(w, http.StatusOK, o, err)
	}
}
