package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction — денежное движение по счету. GoalID — необязательная привязка к цели.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	ExternalID  *string         `json:"external_transaction_id,omitempty" db:"external_transaction_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	Date        time.Time       `json:"date" db:"transaction_date"`
	IsPending   bool            `json:"is_pending" db:"is_pending"`
	GoalID      *string         `json:"goal_id,omitempty" db:"goal_id"` // Привязка к цели
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
