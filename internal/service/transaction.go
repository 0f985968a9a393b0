package service

import (
	"context"
	"log"

	"github.com/rmallick/credit-ledger/internal/db"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Publisher emits posted movements to downstream consumers.
type Publisher interface {
	PublishMovement(ctx context.Context, tx *models.Transaction) error
}

// TransactionService is the posting engine: it validates a movement intent,
// normalizes its sign, and delegates the limit-checked append+delta to the
// store's atomic unit.
type TransactionService struct {
	store     db.Store
	publisher Publisher
}

// creates a new TransactionService; publisher may be nil when the service
// runs without a queue
func NewTransactionService(store db.Store, publisher Publisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// PostTransaction posts a movement against an account.
//
// All checks run before any mutation: the account must exist, the operation
// type must be one of the fixed four, and the caller amount must be strictly
// positive. The sign is never taken from the caller: payments are positive,
// everything else negative. The store enforces the available-limit rule and
// commits the movement and the balance delta together, so a failure at any
// point leaves no observable state change.
func (s *TransactionService) PostTransaction(ctx context.Context, req *models.TransactionRequest) (*models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	if !req.OperationTypeID.Valid() {
		return nil, models.ErrInvalidOperationType
	}

	if req.Amount == nil || req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidAmount
	}

	signedAmount := req.OperationTypeID.SignedAmount(*req.Amount)

	tx, err := s.store.PostTransaction(ctx, req.AccountID, req.OperationTypeID, signedAmount)
	if err != nil {
		return nil, err
	}

	// Best effort: the movement is already committed, so a publish failure
	// is logged rather than surfaced to the caller.
	if s.publisher != nil {
		if err := s.publisher.PublishMovement(ctx, tx); err != nil {
			log.Printf("Failed to publish movement %d: %v", tx.ID, err)
		}
	}

	return tx, nil
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// retrieves one page of an account's transactions plus the total count
func (s *TransactionService) ListTransactionsByAccount(ctx context.Context, accountID string, page, size int) ([]*models.Transaction, int64, error) {
	txs, total, err := s.store.ListTransactionsByAccount(ctx, accountID, size, page*size)
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
