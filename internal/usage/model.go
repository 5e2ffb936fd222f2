package usage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"nooveria/internal/transaction"
)

// Counts is everything the ledger keeps about one AI request. It carries no
// prompt or completion text and must never grow a field that does.
type Counts struct {
	PromptTokens     int64  `json:"prompt_tokens" validate:"gte=0"`
	CompletionTokens int64  `json:"completion_tokens" validate:"gte=0"`
	TotalTokens      int64  `json:"total_tokens" validate:"gte=0"`
	Model            string `json:"model,omitempty" validate:"max=100"`
	ResponseID       string `json:"response_id,omitempty" validate:"max=200"`
}

var (
	ErrNegativeCounts = errors.New("token counts must not be negative")
	ErrTotalMismatch  = errors.New("total tokens is less than prompt plus completion tokens")
)

func (c Counts) Validate() error {
	if c.PromptTokens < 0 || c.CompletionTokens < 0 || c.TotalTokens < 0 {
		return ErrNegativeCounts
	}
	if c.TotalTokens < c.PromptTokens+c.CompletionTokens {
		return ErrTotalMismatch
	}
	return nil
}

func (c Counts) providerMeta() transaction.Meta {
	meta := transaction.Meta{}
	if c.Model != "" {
		meta["model"] = c.Model
	}
	if c.ResponseID != "" {
		meta["response_id"] = c.ResponseID
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

type Record struct {
	ID               int64            `db:"id" json:"id"`
	UserID           uuid.UUID        `db:"user_id" json:"user_id"`
	PromptTokens     int64            `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64            `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int64            `db:"total_tokens" json:"total_tokens"`
	ProviderMeta     transaction.Meta `db:"meta" json:"provider_meta,omitempty"`
	TransactionID    int64            `db:"transaction_id" json:"transaction_id"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
