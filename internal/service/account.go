package service

import (
	"context"
	"fmt"

	"github.com/rmallick/credit-ledger/internal/db"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// handles account operations
type AccountService struct {
	store db.Store
}

// creates a new Account Service
func NewAccountService(store db.Store) *AccountService {
	return &AccountService{
		store: store,
	}
}

// OpenAccount creates a new account for the document with a zero balance.
// The credit limit is required: a nil or negative limit is rejected rather
// than defaulted.
func (s *AccountService) OpenAccount(ctx context.Context, documentNumber string, creditLimit *decimal.Decimal) (*models.Account, error) {
	if documentNumber == "" {
		return nil, models.ErrInvalidDocument
	}
	if creditLimit == nil || creditLimit.IsNegative() {
		return nil, models.ErrInvalidCreditLimit
	}

	existing, err := s.store.GetAccountByDocument(ctx, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing account: %w", err)
	}
	if existing != nil {
		return nil, models.ErrAccountExists
	}

	// the unique index backstops the precheck under concurrent opens
	account, err := s.store.CreateAccount(ctx, documentNumber, *creditLimit)
	if err != nil {
		return nil, err
	}

	return account, nil
}

// retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	return account, nil
}
