package bank

import (
	"errors"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/fastprodman/playerbank/internal/services/savings"
	"github.com/fastprodman/playerbank/internal/services/slots"
)

// Result codes shared by metrics labels and API error bodies.
const (
	CodeOK                = "ok"
	CodeValidation        = "validation"
	CodeInsufficientFunds = "insufficient_funds"
	CodeLimitExceeded     = "limit_exceeded"
	CodeCapacityExceeded  = "capacity_exceeded"
	CodeRatingTooLow      = "rating_too_low"
	CodeAccountLocked     = "account_locked"
	CodeNotFound          = "not_found"
	CodeAlreadyExists     = "already_exists"
	CodeInternal          = "internal"
)

// Code classifies err into one of the result codes.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ledger.ErrValidation):
		return CodeValidation
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ledger.ErrLimitExceeded):
		return CodeLimitExceeded
	case errors.Is(err, slots.ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, credit.ErrRatingTooLow):
		return CodeRatingTooLow
	case errors.Is(err, savings.ErrAccountLocked):
		return CodeAccountLocked
	case errors.Is(err, ledger.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ledger.ErrAlreadyExists):
		return CodeAlreadyExists
	default:
		return CodeInternal
	}
}
