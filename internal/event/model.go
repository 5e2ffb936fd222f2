package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeTopUp                    Type = "topup"
	TypeChatExpensePersonal      Type = "chat_expense_personal"
	TypeChatExpenseCommunal      Type = "chat_expense_communal"
	TypeWorldChatExpensePersonal Type = "world_chat_expense_personal"
	TypeWorldChatExpenseCommunal Type = "world_chat_expense_communal"
	TypeTransferSent             Type = "transfer_sent"
	TypeTransferReceived         Type = "transfer_received"
)

// Event is a display entry in a user's wallet history. Amount is signed from
// the user's point of view: credits are positive, expenses negative.
type Event struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Type          Type            `db:"event_type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	ChatID        uuid.NullUUID   `db:"chat_id" json:"chat_id"`
	WorldID       *int64          `db:"world_id" json:"world_id,omitempty"`
	TransactionID *int64          `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Correlation ties an expense to the chat or world that caused it. Both are optional.
type Correlation struct {
	ChatID    *uuid.UUID `json:"chat_id,omitempty"`
	WorldID   *int64     `json:"world_id,omitempty"`
	WorldName string     `json:"world_name,omitempty" validate:"max=200"`
}

func TopUp(userID uuid.UUID, amount decimal.Decimal, description string) *Event {
	if description == "" {
		description = fmt.Sprintf("Wallet top-up of %s tokens", amount)
	}
	return &Event{
		UserID:      userID,
		Type:        TypeTopUp,
		Amount:      amount.Abs(),
		Description: description,
	}
}

// Expense builds the event for a charge. World expenses win over chat expenses
// when both ids are present.
func Expense(userID uuid.UUID, amount decimal.Decimal, communal bool, c Correlation) *Event {
	pool := "personal tokens"
	if communal {
		pool = "communal tokens"
	}

	e := &Event{
		UserID: userID,
		Amount: amount.Abs().Neg(),
	}

	if c.WorldID != nil {
		e.Type = TypeWorldChatExpensePersonal
		if communal {
			e.Type = TypeWorldChatExpenseCommunal
		}
		name := c.WorldName
		if name == "" {
			name = fmt.Sprintf("#%d", *c.WorldID)
		}
		e.WorldID = c.WorldID
		e.Description = fmt.Sprintf("Spent in world '%s' (%s): %s tokens", name, pool, amount.Abs())
		return e
	}

	e.Type = TypeChatExpensePersonal
	if communal {
		e.Type = TypeChatExpenseCommunal
	}
	if c.ChatID != nil {
		e.ChatID = uuid.NullUUID{UUID: *c.ChatID, Valid: true}
	}
	e.Description = fmt.Sprintf("Chat expense (%s): %s tokens", pool, amount.Abs())
	return e
}
