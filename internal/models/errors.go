package models

import "errors"

// Business errors returned by the ledger core. The HTTP layer maps these to
// status codes; anything else is treated as an infrastructure failure.
var (
	// ErrAccountExists indicates an account already exists for the document.
	ErrAccountExists = errors.New("account already exists for document")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidOperationType indicates an operation type outside 1..4.
	ErrInvalidOperationType = errors.New("invalid operation type")

	// ErrInvalidAmount indicates a missing, zero, or negative amount.
	ErrInvalidAmount = errors.New("amount must be > 0")

	// ErrInvalidCreditLimit indicates a missing or negative credit limit.
	ErrInvalidCreditLimit = errors.New("credit limit must be >= 0")

	// ErrInvalidDocument indicates a missing document number.
	ErrInvalidDocument = errors.New("document number is required")

	// ErrLimitExceeded indicates a debit larger than the available limit.
	ErrLimitExceeded = errors.New("transaction amount exceeds available limit")
)
