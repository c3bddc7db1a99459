package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account — банковский счет пользователя, привязанный к внешнему агрегатору.
// ExternalID может отсутствовать или поменяться после повторной привязки,
// поэтому он намеренно указатель, а не строка.
type Account struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	ExternalID      *string         `json:"external_account_id,omitempty" db:"external_account_id"`
	Name            string          `json:"name" db:"name"`
	InstitutionName *string         `json:"institution_name,omitempty" db:"institution_name"`
	AccountNumber   *string         `json:"account_number,omitempty" db:"account_number"`
	AccountType     string          `json:"account_type" db:"account_type"`
	AccountSubtype  *string         `json:"account_subtype,omitempty" db:"account_subtype"`
	Balance         decimal.Decimal `json:"balance" db:"balance"`
	Currency        string          `json:"currency" db:"currency"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	LastSyncedAt    *time.Time      `json:"last_synced_at,omitempty" db:"last_synced_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
