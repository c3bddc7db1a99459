package models

import "github.com/shopspring/decimal"

// Ответы внешнего агрегатора. Источник недоверенный: любое поле может
// отсутствовать, идентификаторы могут меняться между вызовами, поэтому
// все необязательные поля — указатели, и движок сверки проверяет каждое.

type AccountPayload struct {
	ExternalID      *string          `json:"account_id"`
	Name            string           `json:"name"`
	InstitutionName *string          `json:"institution_name"`
	AccountNumber   *string          `json:"mask"`
	Type            string           `json:"type"`
	Subtype         *string          `json:"subtype"`
	Balance         *decimal.Decimal `json:"balance"`
	Currency        *string          `json:"currency"`
}

type TransactionPayload struct {
	ExternalID        *string          `json:"transaction_id"`
	ExternalAccountID *string          `json:"account_id"`
	Amount            *decimal.Decimal `json:"amount"`
	Currency          *string          `json:"currency"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	Date              *string          `json:"date"` // формат "2006-01-02"
	Pending           *bool            `json:"pending"`
}
