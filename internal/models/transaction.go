package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType identifies the kind of movement posted against an account.
type OperationType int

const (
	// Purchase represents a regular purchase (debit)
	Purchase OperationType = 1

	// InstallmentPurchase represents a purchase paid in installments (debit)
	InstallmentPurchase OperationType = 2

	// Withdrawal represents a cash withdrawal (debit)
	Withdrawal OperationType = 3

	// Payment represents a payment into the account (credit)
	Payment OperationType = 4
)

var operationTypeNames = map[OperationType]string{
	Purchase:            "PURCHASE",
	InstallmentPurchase: "INSTALLMENT_PURCHASE",
	Withdrawal:          "WITHDRAWAL",
	Payment:             "PAYMENT",
}

// Valid reports whether the operation type is one of the fixed four.
func (t OperationType) Valid() bool {
	_, ok := operationTypeNames[t]
	return ok
}

// IsDebit reports whether the operation type carries a negative sign.
func (t OperationType) IsDebit() bool {
	return t.Valid() && t != Payment
}

func (t OperationType) String() string {
	if name, ok := operationTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// SignedAmount applies the operation's sign to a caller magnitude. Only the
// absolute value of the input is used. The caller's precision is preserved:
// the limit check must run on the raw magnitude, and rounding happens when
// the movement is stored and the delta applied.
func (t OperationType) SignedAmount(magnitude decimal.Decimal) decimal.Decimal {
	abs := magnitude.Abs()
	if t == Payment {
		return abs
	}
	return abs.Neg()
}

// Transaction is an immutable movement posted against one account
type Transaction struct {
	ID              int64           `json:"id" bson:"_id"`
	AccountID       string          `json:"account_id" bson:"account_id"`
	OperationTypeID OperationType   `json:"operation_type_id" bson:"operation_type_id"`
	Amount          decimal.Decimal `json:"amount" bson:"amount"`
	EventDate       time.Time       `json:"event_date" bson:"event_date"`
}

// represents the request to post a new transaction
type TransactionRequest struct {
	AccountID       string           `json:"account_id"`
	OperationTypeID OperationType    `json:"operation_type_id"`
	Amount          *decimal.Decimal `json:"amount"`
}

// represents the API response for transaction data
type TransactionResponse struct {
	TransactionID   int64           `json:"transaction_id"`
	AccountID       string          `json:"account_id"`
	OperationTypeID OperationType   `json:"operation_type_id"`
	Amount          decimal.Decimal `json:"amount"`
	EventDate       time.Time       `json:"event_date"`
}

// TransactionPage is the paginated listing shape for an account's movements.
type TransactionPage struct {
	Items []TransactionResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
}
