package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/rmallick/credit-ledger/internal/service"
)

const (
	defaultPage = 0
	defaultSize = 20
)

// Handler is for handling api requests
type Handler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
}

func NewHandler(accountService *service.AccountService, transactionService *service.TransactionService) *Handler {
	return &Handler{
		accountService:     accountService,
		transactionService: transactionService,
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// for error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// maps business errors onto status codes; anything unrecognized is an
// infrastructure failure
func respondBusinessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrAccountExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrLimitExceeded):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrInvalidOperationType),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidCreditLimit),
		errors.Is(err, models.ErrInvalidDocument):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, err := h.accountService.OpenAccount(r.Context(), req.DocumentNumber, req.CreditLimit)
	if err != nil {
		respondBusinessError(w, err)
		return
	}

	response := models.AccountResponse{
		AccountID:      account.ID,
		DocumentNumber: account.DocumentNumber,
		CreditLimit:    account.CreditLimit,
	}

	respondJSON(w, http.StatusCreated, response)
}

// handles account retrieval
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	account, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		respondBusinessError(w, err)
		return
	}

	response := models.AccountResponse{
		AccountID:      account.ID,
		DocumentNumber: account.DocumentNumber,
		CreditLimit:    account.CreditLimit,
	}

	respondJSON(w, http.StatusOK, response)
}

// handles transaction posting
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	tx, err := h.transactionService.PostTransaction(r.Context(), &req)
	if err != nil {
		respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// GetTransaction handles transaction retrieval
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// GetTransactions handles transaction list retrieval
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["accountId"]

	// Parsing the query parameters
	page := defaultPage
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsedPage, err := strconv.Atoi(pageStr)
		if err == nil && parsedPage >= 0 {
			page = parsedPage
		}
	}

	size := defaultSize
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		parsedSize, err := strconv.Atoi(sizeStr)
		if err == nil && parsedSize > 0 {
			size = parsedSize
		}
	}

	txs, total, err := h.transactionService.ListTransactionsByAccount(r.Context(), accountID, page, size)
	if err != nil {
		respondBusinessError(w, err)
		return
	}

	// Convert to response objects
	items := make([]models.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}

	respondJSON(w, http.StatusOK, models.TransactionPage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTransactionResponse(tx *models.Transaction) models.TransactionResponse {
	return models.TransactionResponse{
		TransactionID:   tx.ID,
		AccountID:       tx.AccountID,
		OperationTypeID: tx.OperationTypeID,
		Amount:          tx.Amount,
		EventDate:       tx.EventDate,
	}
}

// sets up the API routes
func SetupRoutes(r *mux.Router, accountService *service.AccountService, transactionService *service.TransactionService) {
	h := NewHandler(accountService, transactionService)

	// Health check (check if API is working)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Account routes
	r.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")

	// Transaction routes
	r.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/transactions", h.GetTransactions).Methods("GET")
}
