package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every stored amount carries.
const MoneyScale = 2

// Normalize rounds a monetary value to the ledger scale (half-up).
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Account holds a document's balance and credit limit
type Account struct {
	ID               string          `json:"id" db:"id"`
	DocumentNumber   string          `json:"document_number" db:"document_number"`
	AvailableBalance decimal.Decimal `json:"available_balance" db:"available_balance"`
	CreditLimit      decimal.Decimal `json:"credit_limit" db:"credit_limit"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// AvailableLimit is the maximum debit magnitude the account currently admits.
func (a *Account) AvailableLimit() decimal.Decimal {
	return a.AvailableBalance.Add(a.CreditLimit)
}

// represents the request to open a new account
type CreateAccountRequest struct {
	DocumentNumber string           `json:"document_number"`
	CreditLimit    *decimal.Decimal `json:"credit_limit"`
}

// AccountResponse is the externally visible account shape.
// The balance is internal bookkeeping and is deliberately absent.
type AccountResponse struct {
	AccountID      string          `json:"account_id"`
	DocumentNumber string          `json:"document_number"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
}
