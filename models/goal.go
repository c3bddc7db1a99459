package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal — накопительная цель. CurrentAmount меняется только атомарным инкрементом
// на стороне базы, никогда через чтение-изменение-запись в коде сервиса.
type Goal struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Name          string          `json:"name" db:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount" db:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount" db:"current_amount"`
	IsCompleted   bool            `json:"is_completed" db:"is_completed"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	AccountIDs    []string        `json:"account_ids,omitempty" db:"account_ids"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

func (g *Goal) RemainingAmount() decimal.Decimal {
	return g.TargetAmount.Sub(g.CurrentAmount)
}
