package loans

import (
	"strings"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is a loan product.
type Type struct {
	ID             string          `json:"id"`
	BaseAmount     decimal.Decimal `json:"baseAmount"`
	BaseRate       decimal.Decimal `json:"baseRate"`
	DurationDays   int             `json:"durationDays"`
	RequiredRating credit.Rating   `json:"requiredRating"`
}

var defaultTypes = []Type{
	{ID: "SMALL", BaseAmount: decimal.NewFromInt(5_000), BaseRate: decimal.RequireFromString("0.05"), DurationDays: 14, RequiredRating: credit.Fair},
	{ID: "MEDIUM", BaseAmount: decimal.NewFromInt(25_000), BaseRate: decimal.RequireFromString("0.08"), DurationDays: 28, RequiredRating: credit.Good},
	{ID: "LARGE", BaseAmount: decimal.NewFromInt(100_000), BaseRate: decimal.RequireFromString("0.12"), DurationDays: 56, RequiredRating: credit.Excellent},
}

// DefaultTypes returns the built-in loan products.
func DefaultTypes() []Type {
	return append([]Type(nil), defaultTypes...)
}

func findType(types []Type, id string) (Type, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	for _, t := range types {
		if t.ID == id {
			return t, true
		}
	}

	return Type{}, false
}

// Loan is an issued credit loan. Rate and DailyPayment are fixed at
// issuance.
type Loan struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"ownerId"`
	Type             string          `json:"type"`
	Principal        decimal.Decimal `json:"principal"`
	Rate             decimal.Decimal `json:"rate"`
	DailyPayment     decimal.Decimal `json:"dailyPayment"`
	DurationDays     int             `json:"durationDays"`
	StartDay         int64           `json:"startDay"`
	Remaining        decimal.Decimal `json:"remaining"`
	Repaid           decimal.Decimal `json:"repaid"`
	LastProcessedDay int64           `json:"lastProcessedDay"`
	MissedInRow      int             `json:"missedInRow"`
}

// Terms computes rate, daily installment and total due for principal.
func Terms(t Type, rating credit.Rating) (rate, daily, total decimal.Decimal) {
	rate = t.BaseRate.Mul(rating.InterestModifier())
	total = t.BaseAmount.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
	daily = total.Div(decimal.NewFromInt(int64(t.DurationDays))).RoundUp(2)

	return rate, daily, total
}
