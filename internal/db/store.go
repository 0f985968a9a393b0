package db

import (
	"context"

	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence contract the ledger services run against.
//
// PostTransaction is the single atomic unit of the ledger: it must lock the
// account row, enforce the available-limit rule for debits against the
// current balance, append the movement, and apply the balance delta — all
// committing together or not at all. Implementations serialize concurrent
// posts against the same account and leave posts against different accounts
// independent.
type Store interface {
	// CreateAccount inserts a new account with a zero balance. It returns
	// models.ErrAccountExists when the document number is already taken.
	CreateAccount(ctx context.Context, documentNumber string, creditLimit decimal.Decimal) (*models.Account, error)

	// GetAccount retrieves an account by id.
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// GetAccountByDocument retrieves an account by document number.
	// It returns (nil, nil) when no account exists for the document.
	GetAccountByDocument(ctx context.Context, documentNumber string) (*models.Account, error)

	// PostTransaction atomically appends a movement with the given signed
	// amount and applies it to the account balance. For a negative amount it
	// fails with models.ErrLimitExceeded when |amount| exceeds the account's
	// current available limit, leaving no state change behind.
	PostTransaction(ctx context.Context, accountID string, operationType models.OperationType, signedAmount decimal.Decimal) (*models.Transaction, error)

	// GetTransaction retrieves a movement by id.
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)

	// ListTransactionsByAccount returns one page of an account's movements
	// ordered by id ascending, plus the total count across all pages.
	ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, int64, error)
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)
