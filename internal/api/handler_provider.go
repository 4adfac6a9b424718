package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/playerbank/internal/services/bank"
	"github.com/fastprodman/playerbank/internal/services/market"
	"github.com/fastprodman/playerbank/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commands is the bank command surface served over HTTP.
type Commands interface {
	CreateAccount(ctx context.Context, player uuid.UUID) (bank.Balances, error)
	Overview(ctx context.Context, player uuid.UUID, limit int) (bank.Overview, error)
	Deposit(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (bank.Balances, error)
	Withdraw(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (bank.Balances, error)
	Transfer(ctx context.Context, player, target uuid.UUID, amount decimal.Decimal) (bank.Balances, error)
	AddCash(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (bank.Balances, error)
	RemoveCash(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (bank.Balances, error)

	CreateSavings(ctx context.Context, player uuid.UUID, amount decimal.Decimal) (bank.SavingsResult, error)
	ListSavings(ctx context.Context, player uuid.UUID) (bank.SavingsList, error)
	DepositSavings(ctx context.Context, player, id uuid.UUID, amount decimal.Decimal) (bank.SavingsResult, error)
	WithdrawSavings(ctx context.Context, player, id uuid.UUID, amount decimal.Decimal, forced bool) (bank.SavingsResult, error)
	CloseSavings(ctx context.Context, player, id uuid.UUID, forced bool) (bank.SavingsResult, error)

	CreateOrder(ctx context.Context, player, payee uuid.UUID, amount decimal.Decimal, intervalDays int) (orders.Order, error)
	ListOrders(ctx context.Context, player uuid.UUID) (bank.OrderList, error)
	PauseOrder(ctx context.Context, player uuid.UUID, ref string) (orders.Order, error)
	ResumeOrder(ctx context.Context, player uuid.UUID, ref string) (orders.Order, error)
	DeleteOrder(ctx context.Context, player uuid.UUID, ref string) (orders.Order, error)

	ApplyForLoan(ctx context.Context, player uuid.UUID, loanType string) (bank.LoanResult, error)
	RepayLoan(ctx context.Context, player uuid.UUID) (bank.LoanResult, error)
	CreditData(ctx context.Context, player uuid.UUID) (bank.CreditData, error)
	StockData(ctx context.Context) []market.Quote
}

// HandlerProvider wraps the bank commands and exposes HTTP handlers.
type HandlerProvider struct {
	cmds Commands
}

func NewHandler(cmds Commands) *HandlerProvider {
	return &HandlerProvider{cmds: cmds}
}

const maxBodyBytes = 1 << 20

// --- Helpers ---

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, bank.CodeValidation, msg)
}

var statusByCode = map[string]int{
	bank.CodeValidation:        http.StatusBadRequest,
	bank.CodeInsufficientFunds: http.StatusUnprocessableEntity,
	bank.CodeLimitExceeded:     http.StatusUnprocessableEntity,
	bank.CodeRatingTooLow:      http.StatusUnprocessableEntity,
	bank.CodeCapacityExceeded:  http.StatusConflict,
	bank.CodeAlreadyExists:     http.StatusConflict,
	bank.CodeAccountLocked:     http.StatusLocked,
	bank.CodeNotFound:          http.StatusNotFound,
}

// writeCommandError maps a command error to its status and result code.
// Internal errors never leak their text.
func writeCommandError(w http.ResponseWriter, err error) {
	code := bank.Code(err)

	status, ok := statusByCode[code]
	if !ok {
		writeError(w, http.StatusInternalServerError, bank.CodeInternal, "internal error")
		return
	}

	writeError(w, status, code, err.Error())
}

// respond writes v with status on success, the mapped error otherwise.
func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, status, v)
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s", name)
	}

	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}

	return id, nil
}

// parseAmount reads a decimal string; range and precision are checked by
// the commands.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("invalid amount")
	}

	return d, nil
}

func parseForced(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("forced")
	if raw == "" {
		return false, nil
	}

	forced, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("invalid forced flag")
	}

	return forced, nil
}

// decodeBody reads a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// playerAndAmount parses the {playerId} path param and an {"amount"} body.
func playerAndAmount(w http.ResponseWriter, r *http.Request) (uuid.UUID, decimal.Decimal, bool) {
	id, err := parseUUIDParam(r, "playerId")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, decimal.Zero, false
	}

	var req amountRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, decimal.Zero, false
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, decimal.Zero, false
	}

	return id, amount, true
}

func playerParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUIDParam(r, "playerId")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, false
	}

	return id, true
}

// --- Account handlers ---

// CreateAccountHandler handles POST /players/{playerId}/account
func (h *HandlerProvider) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	bal, err := h.cmds.CreateAccount(r.Context(), id)
	respond(w, http.StatusCreated, bal, err)
}

// OverviewHandler handles GET /players/{playerId}/account?limit=
func (h *HandlerProvider) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}

		limit = n
	}

	ov, err := h.cmds.Overview(r.Context(), id, limit)
	respond(w, http.StatusOK, ov, err)
}

// DepositHandler handles POST /players/{playerId}/deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := playerAndAmount(w, r)
	if !ok {
		return
	}

	bal, err := h.cmds.Deposit(r.Context(), id, amount)
	respond(w, http.StatusOK, bal, err)
}

// WithdrawHandler handles POST /players/{playerId}/withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := playerAndAmount(w, r)
	if !ok {
		return
	}

	bal, err := h.cmds.Withdraw(r.Context(), id, amount)
	respond(w, http.StatusOK, bal, err)
}

type transferRequest struct {
	TargetID string `json:"targetId"`
	Amount   string `json:"amount"`
}

// TransferHandler handles POST /players/{playerId}/transfer
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := playerParam(w, r)
	if !ok {
		return
	}

	var req transferRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	target, err := uuid.Parse(req.TargetID)
	if err != nil {
		badRequest(w, "invalid targetId")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	bal, err := h.cmds.Transfer(r.Context(), id, target, amount)
	respond(w, http.StatusOK, bal, err)
}

// AddCashHandler handles POST /players/{playerId}/cash/add
func (h *HandlerProvider) AddCashHandler(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := playerAndAmount(w, r)
	if !ok {
		return
	}

	bal, err := h.cmds.AddCash(r.Context(), id, amount)
	respond(w, http.StatusOK, bal, err)
}

// RemoveCashHandler handles POST /players/{playerId}/cash/remove
func (h *HandlerProvider) RemoveCashHandler(w http.ResponseWriter, r *http.Request) {
	id, amount, ok := playerAndAmount(w, r)
	if !ok {
		return
	}

	bal, err := h.cmds.RemoveCash(r.Context(), id, amount)
	respond(w, http.StatusOK, bal, err)
}

// StockDataHandler handles GET /market/quotes
func (h *HandlerProvider) StockDataHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"quotes": h.cmds.StockData(r.Context())})
}
