package api

import (
	"net/http"

	"github.com/google/uuid"
)

func savingsParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, ok := playerParam(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	savingsID, err := parseUUIDParam(r, "savingsId")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return id, savingsID, true
}

// CreateSavingsHandler handles POST /players/{playerId}/savings
func (h *HandlerProvider) CreateSavingsHandler(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := playerAndAmount(w, r)
	if !ok {
		return
	}

	res, err := h.cmds.CreateSavings(r.Context(), id, amount)
	respond(w, http.StatusCreated, res, err)
}

// ListSavingsHandler handles GET /players/{playerId}/savings
func (h *HandlerProvider) ListSavingsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	list, err := h.cmds.ListSavings(r.Context(), id)
	respond(w, http.StatusOK, list, err)
}

// DepositSavingsHandler handles POST /players/{playerId}/savings/{savingsId}/deposit
func (h *HandlerProvider) DepositSavingsHandler(w http.ResponseWriter, r *http.Request) {
	id, savingsID, ok := savingsParams(w, r)
	if !ok {
		return
	}

	var req amountRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.cmds.DepositSavings(r.Context(), id, savingsID, amount)
	respond(w, http.StatusOK, res, err)
}

type savingsWithdrawRequest struct {
	Amount string `json:"amount"`
	Forced bool   `json:"forced"`
}

// WithdrawSavingsHandler handles POST /players/{playerId}/savings/{savingsId}/withdraw
func (h *HandlerProvider) WithdrawSavingsHandler(w http.ResponseWriter, r *http.Request) {
	id, savingsID, ok := savingsParams(w, r)
	if !ok {
		return
	}

	var req savingsWithdrawRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.cmds.WithdrawSavings(r.Context(), id, savingsID, amount, req.Forced)
	respond(w, http.StatusOK, res, err)
}

// CloseSavingsHandler handles DELETE /players/{playerId}/savings/{savingsId}?forced=
func (h *HandlerProvider) CloseSavingsHandler(w http.ResponseWriter, r *http.Request) {
	id, savingsID, ok := savingsParams(w, r)
	if !ok {
		return
	}

	forced, err := parseForced(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.cmds.CloseSavings(r.Context(), id, savingsID, forced)
	respond(w, http.StatusOK, res, err)
}
