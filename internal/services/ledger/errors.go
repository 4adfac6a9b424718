package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLimitExceeded     = errors.New("daily transfer limit exceeded")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
)

// ValidateAmount accepts strictly positive amounts with at most two
// fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}

	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount supports up to 2 decimals", ErrValidation)
	}

	return nil
}

// Cents rounds a computed amount (interest, penalty, installment) to cents.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
