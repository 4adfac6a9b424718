package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxStartBalance        TxType = "start_balance"
	TxDeposit             TxType = "deposit"
	TxWithdrawal          TxType = "withdrawal"
	TxTransferIn          TxType = "transfer_in"
	TxTransferOut         TxType = "transfer_out"
	TxCashDeposit         TxType = "cash_deposit"
	TxCashWithdrawal      TxType = "cash_withdrawal"
	TxSavingsDeposit      TxType = "savings_deposit"
	TxSavingsWithdrawal   TxType = "savings_withdrawal"
	TxLoanDisbursement    TxType = "loan_disbursement"
	TxLoanRepayment       TxType = "loan_repayment"
	TxRecurringPaymentIn  TxType = "recurring_payment_in"
	TxRecurringPaymentOut TxType = "recurring_payment_out"
)

// Transaction is one entry of an account's audit log. Entries are never
// mutated once appended.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"ownerId"`
	Type        TxType          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
}
