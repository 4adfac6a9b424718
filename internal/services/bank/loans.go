package bank

import (
	"context"

	"github.com/fastprodman/playerbank/internal/services/credit"
	"github.com/fastprodman/playerbank/internal/services/loans"
	"github.com/fastprodman/playerbank/internal/services/market"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanResult struct {
	Balances
	Loan loans.Loan `json:"loan"`
}

// LoanOffer is a loan type priced for one player.
type LoanOffer struct {
	loans.Type
	Eligible     bool            `json:"eligible"`
	Rate         decimal.Decimal `json:"rate"`
	DailyPayment decimal.Decimal `json:"dailyPayment"`
	Total        decimal.Decimal `json:"total"`
}

type CreditData struct {
	credit.Report
	Day    int64       `json:"day"`
	Loan   *loans.Loan `json:"loan,omitempty"`
	Offers []LoanOffer `json:"offers"`
}

func (b *Bank) ApplyForLoan(ctx context.Context, player uuid.UUID, loanType string) (_ LoanResult, err error) {
	defer func() { b.observe(ctx, "apply_loan", player, err) }()

	err = b.requireAccount(player)
	if err != nil {
		return LoanResult{}, err
	}

	day := b.clock.Day()

	l, err := b.loans.Apply(player, loanType, day)
	if err != nil {
		return LoanResult{Balances: b.balances(player, day)}, err
	}

	return LoanResult{Balances: b.balances(player, day), Loan: l}, nil
}

// RepayLoan pays off the remaining loan amount at once.
func (b *Bank) RepayLoan(ctx context.Context, player uuid.UUID) (_ LoanResult, err error) {
	defer func() { b.observe(ctx, "repay_loan", player, err) }()

	err = requirePlayer(player)
	if err != nil {
		return LoanResult{}, err
	}

	day := b.clock.Day()

	l, err := b.loans.Repay(player, day)
	if err != nil {
		return LoanResult{Balances: b.balances(player, day)}, err
	}

	return LoanResult{Balances: b.balances(player, day), Loan: l}, nil
}

// CreditData reports score, tier, the active loan and every loan type
// priced at the player's current tier.
func (b *Bank) CreditData(ctx context.Context, player uuid.UUID) (_ CreditData, err error) {
	defer func() { b.observe(ctx, "credit_data", player, err) }()

	err = b.requireAccount(player)
	if err != nil {
		return CreditData{}, err
	}

	day := b.clock.Day()
	report := b.credit.Report(player, day)
	hasLoan := b.loans.HasActiveLoan(player)

	offers := make([]LoanOffer, 0, len(b.loans.Types()))
	for _, t := range b.loans.Types() {
		rate, daily, total := loans.Terms(t, report.Rating)

		offers = append(offers, LoanOffer{
			Type:         t,
			Eligible:     !hasLoan && !report.Blocked && report.Rating.AtLeast(t.RequiredRating),
			Rate:         rate,
			DailyPayment: daily,
			Total:        total,
		})
	}

	data := CreditData{Report: report, Day: day, Offers: offers}

	if l, ok := b.loans.Get(player); ok {
		data.Loan = &l
	}

	return data, nil
}

func (b *Bank) StockData(ctx context.Context) []market.Quote {
	b.observe(ctx, "stock_data", uuid.Nil, nil)

	return b.market.Quotes()
}
