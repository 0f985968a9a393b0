package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is an in-process store honoring the same contract as Postgres.
// It backs the unit tests and local development without a database.
//
// Locking mirrors the row-lock discipline of the SQL store: the maps are
// guarded by a global RWMutex, and each account carries its own mutex so
// posts against the same account serialize while posts against different
// accounts proceed independently.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]*memoryAccount
	byDocument   map[string]string
	transactions []*models.Transaction
	nextID       int64
}

type memoryAccount struct {
	mu      sync.Mutex
	account models.Account
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[string]*memoryAccount),
		byDocument: make(map[string]string),
		nextID:     1,
	}
}

func (m *Memory) CreateAccount(ctx context.Context, documentNumber string, creditLimit decimal.Decimal) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byDocument[documentNumber]; ok {
		return nil, models.ErrAccountExists
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:               uuid.New().String(),
		DocumentNumber:   documentNumber,
		AvailableBalance: models.Normalize(decimal.Zero),
		CreditLimit:      models.Normalize(creditLimit),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.accounts[account.ID] = &memoryAccount{account: account}
	m.byDocument[documentNumber] = account.ID

	snapshot := account
	return &snapshot, nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	holder, ok := m.accounts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	holder.mu.Lock()
	snapshot := holder.account
	holder.mu.Unlock()
	return &snapshot, nil
}

func (m *Memory) GetAccountByDocument(ctx context.Context, documentNumber string) (*models.Account, error) {
	m.mu.RLock()
	id, ok := m.byDocument[documentNumber]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetAccount(ctx, id)
}

func (m *Memory) PostTransaction(ctx context.Context, accountID string, operationType models.OperationType, signedAmount decimal.Decimal) (*models.Transaction, error) {
	m.mu.RLock()
	holder, ok := m.accounts[accountID]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	holder.mu.Lock()
	defer holder.mu.Unlock()

	// the limit check runs on the raw magnitude; rounding happens on store
	if signedAmount.IsNegative() && signedAmount.Abs().GreaterThan(holder.account.AvailableLimit()) {
		return nil, models.ErrLimitExceeded
	}

	now := time.Now().UTC()

	m.mu.Lock()
	record := &models.Transaction{
		ID:              m.nextID,
		AccountID:       accountID,
		OperationTypeID: operationType,
		Amount:          models.Normalize(signedAmount),
		EventDate:       now,
	}
	m.nextID++
	m.transactions = append(m.transactions, record)
	m.mu.Unlock()

	holder.account.AvailableBalance = models.Normalize(holder.account.AvailableBalance.Add(signedAmount))
	holder.account.UpdatedAt = now

	snapshot := *record
	return &snapshot, nil
}

func (m *Memory) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, record := range m.transactions {
		if record.ID == id {
			snapshot := *record
			return &snapshot, nil
		}
	}
	return nil, models.ErrTransactionNotFound
}

func (m *Memory) ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// the log is append-only, so it is already ordered by id ascending
	var matched []*models.Transaction
	for _, record := range m.transactions {
		if record.AccountID == accountID {
			matched = append(matched, record)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*models.Transaction, 0, end-offset)
	for _, record := range matched[offset:end] {
		snapshot := *record
		page = append(page, &snapshot)
	}
	return page, total, nil
}
