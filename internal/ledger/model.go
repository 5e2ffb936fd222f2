package ledger

import (
	"github.com/shopspring/decimal"

	"nooveria/internal/event"
	"nooveria/internal/transaction"
	"nooveria/internal/usage"
	"nooveria/internal/wallet"
)

// MaxTokens bounds a single charge or credit. Balances are NUMERIC(15,2).
const MaxTokens int64 = 1_000_000_000_000

type Source string

const (
	SourcePersonal Source = "personal"
	SourceCommunal Source = "communal"
)

type RejectReason string

const (
	ReasonInsufficientFunds RejectReason = "insufficient_funds"
	ReasonQuotaExceeded     RejectReason = "quota_exceeded"
)

// ChargeRequest asks for Tokens to be debited from the user's wallets.
// Usage and the correlation fields are optional.
type ChargeRequest struct {
	UserID         string
	Tokens         int64
	PreferCommunal bool
	Usage          *usage.Counts
	Correlation    event.Correlation
}

// Charged describes a committed debit of exactly one wallet.
type Charged struct {
	Source        Source          `json:"charged_from"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID int64           `json:"transaction_id"`
	UsageRecordID *int64          `json:"usage_record_id,omitempty"`
}

type Rejected struct {
	Reason RejectReason `json:"reason"`
}

// Err converts the rejection into the matching payment-required error.
func (r Rejected) Err() error {
	if r.Reason == ReasonQuotaExceeded {
		return ErrQuotaExceeded
	}
	return ErrInsufficientFunds
}

// Outcome is the business result of a charge. Exactly one of Charged and
// Rejected is set.
type Outcome struct {
	Charged  *Charged
	Rejected *Rejected
}

func (o Outcome) OK() bool {
	return o.Charged != nil
}

type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

// Summary is the cached read model of a user's wallets. A missing wallet reads as zero.
type Summary struct {
	Personal Balance `json:"personal"`
	Communal Balance `json:"communal"`
}

type Allowance struct {
	Role             string `json:"role"`
	Limit            int64  `json:"limit"`
	Used             int64  `json:"used"`
	Remaining        int64  `json:"remaining"`
	MaxRequestTokens int64  `json:"max_request_tokens"`
}

type TopUpRequest struct {
	UserID      string
	Amount      decimal.Decimal
	Target      wallet.Kind
	Kind        transaction.Kind
	Description string
}
