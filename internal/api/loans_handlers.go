package api

import (
	"net/http"
	"strings"
)

type loanRequest struct {
	LoanType string `json:"loanType"`
}

// ApplyForLoanHandler handles POST /players/{playerId}/loan
func (h *HandlerProvider) ApplyForLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	var req loanRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if strings.TrimSpace(req.LoanType) == "" {
		badRequest(w, "loanType required")
		return
	}

	res, err := h.cmds.ApplyForLoan(r.Context(), id, req.LoanType)
	respond(w, http.StatusCreated, res, err)
}

// RepayLoanHandler handles POST /players/{playerId}/loan/repay
func (h *HandlerProvider) RepayLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	res, err := h.cmds.RepayLoan(r.Context(), id)
	respond(w, http.StatusOK, res, err)
}

// CreditDataHandler handles GET /players/{playerId}/credit
func (h *HandlerProvider) CreditDataHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	data, err := h.cmds.CreditData(r.Context(), id)
	respond(w, http.StatusOK, data, err)
}
