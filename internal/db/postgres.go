package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Postgres is the authoritative store: it owns both the accounts table and
// the transactions log, so a post commits both in one database transaction.
type Postgres struct {
	db *sql.DB
}

// creates a new Postgres instance
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// initialize the database schema
func (p *Postgres) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(36) PRIMARY KEY,
		document_number VARCHAR(64) NOT NULL UNIQUE,
		available_balance NUMERIC(19, 2) NOT NULL,
		credit_limit NUMERIC(19, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		account_id VARCHAR(36) NOT NULL REFERENCES accounts(id),
		operation_type_id INT NOT NULL,
		amount NUMERIC(19, 2) NOT NULL,
		event_date TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions (account_id);`

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// creates a new account with a zero balance
func (p *Postgres) CreateAccount(ctx context.Context, documentNumber string, creditLimit decimal.Decimal) (*models.Account, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	zero := models.Normalize(decimal.Zero)

	query := `
	INSERT INTO accounts (id, document_number, available_balance, credit_limit, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, document_number, available_balance, credit_limit, created_at, updated_at`

	var account models.Account
	err := p.db.QueryRowContext(
		ctx, query, id, documentNumber, zero, models.Normalize(creditLimit), now, now,
	).Scan(
		&account.ID, &account.DocumentNumber, &account.AvailableBalance,
		&account.CreditLimit, &account.CreatedAt, &account.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &account, nil
}

// retrieves an account by ID
func (p *Postgres) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `
	SELECT id, document_number, available_balance, credit_limit, created_at, updated_at
	FROM accounts
	WHERE id = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.DocumentNumber, &account.AvailableBalance,
		&account.CreditLimit, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// retrieves an account by document number; (nil, nil) when absent
func (p *Postgres) GetAccountByDocument(ctx context.Context, documentNumber string) (*models.Account, error) {
	query := `
	SELECT id, document_number, available_balance, credit_limit, created_at, updated_at
	FROM accounts
	WHERE document_number = $1`

	var account models.Account
	err := p.db.QueryRowContext(ctx, query, documentNumber).Scan(
		&account.ID, &account.DocumentNumber, &account.AvailableBalance,
		&account.CreditLimit, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by document: %w", err)
	}

	return &account, nil
}

// PostTransaction appends a movement and applies its delta to the balance
// inside one database transaction, holding a row lock on the account so that
// concurrent posts against the same account serialize.
func (p *Postgres) PostTransaction(ctx context.Context, accountID string, operationType models.OperationType, signedAmount decimal.Decimal) (tx *models.Transaction, err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	// Get current balance and limit with a row lock
	var balance, creditLimit decimal.Decimal
	err = dbTx.QueryRowContext(
		ctx,
		"SELECT available_balance, credit_limit FROM accounts WHERE id = $1 FOR UPDATE",
		accountID,
	).Scan(&balance, &creditLimit)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	// Debits must fit inside the current available limit. The raw magnitude
	// is compared; rounding to the ledger scale happens only on store.
	if signedAmount.IsNegative() && signedAmount.Abs().GreaterThan(balance.Add(creditLimit)) {
		return nil, models.ErrLimitExceeded
	}

	amount := models.Normalize(signedAmount)
	newBalance := models.Normalize(balance.Add(signedAmount))
	now := time.Now().UTC()

	record := &models.Transaction{
		AccountID:       accountID,
		OperationTypeID: operationType,
		Amount:          amount,
	}
	err = dbTx.QueryRowContext(
		ctx,
		`INSERT INTO transactions (account_id, operation_type_id, amount, event_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, event_date`,
		accountID, int(operationType), amount, now,
	).Scan(&record.ID, &record.EventDate)

	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	_, err = dbTx.ExecContext(
		ctx,
		"UPDATE accounts SET available_balance = $1, updated_at = $2 WHERE id = $3",
		newBalance, now, accountID,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return record, nil
}

// retrieves a transaction by ID
func (p *Postgres) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `
	SELECT id, account_id, operation_type_id, amount, event_date
	FROM transactions
	WHERE id = $1`

	var record models.Transaction
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.AccountID, &record.OperationTypeID,
		&record.Amount, &record.EventDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &record, nil
}

// retrieves one page of an account's transactions, oldest first
func (p *Postgres) ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, int64, error) {
	var total int64
	err := p.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM transactions WHERE account_id = $1",
		accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := p.db.QueryContext(
		ctx,
		`SELECT id, account_id, operation_type_id, amount, event_date
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY id ASC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var records []*models.Transaction
	for rows.Next() {
		var record models.Transaction
		if err := rows.Scan(
			&record.ID, &record.AccountID, &record.OperationTypeID,
			&record.Amount, &record.EventDate,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read transactions: %w", err)
	}

	return records, total, nil
}

// unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
