package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rmallick/credit-ledger/internal/db"
	"github.com/rmallick/credit-ledger/internal/models"
	"github.com/rmallick/credit-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	store := db.NewMemory()
	router := mux.NewRouter()
	SetupRoutes(router, service.NewAccountService(store), service.NewTransactionService(store, nil))
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func openAccount(t *testing.T, router *mux.Router, document, creditLimit string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]interface{}{
		"document_number": document,
		"credit_limit":    creditLimit,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)["account_id"].(string)
}

func TestCreateAccountEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]interface{}{
		"document_number": "12345678900",
		"credit_limit":    "1000.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["account_id"])
	assert.Equal(t, "12345678900", body["document_number"])

	// the balance never leaks through the account surface
	assert.NotContains(t, body, "available_balance")
	assert.NotContains(t, body, "balance")
}

func TestCreateAccountValidation(t *testing.T) {
	router := newTestRouter()

	// missing credit limit
	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]interface{}{
		"document_number": "12345678900",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing document
	rec = doJSON(t, router, http.MethodPost, "/accounts", map[string]interface{}{
		"credit_limit": "1000.00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed payload
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestCreateAccountDuplicate(t *testing.T) {
	router := newTestRouter()
	openAccount(t, router, "12345678900", "1000.00")

	rec := doJSON(t, router, http.MethodPost, "/accounts", map[string]interface{}{
		"document_number": "12345678900",
		"credit_limit":    "500.00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAccountEndpoint(t *testing.T) {
	router := newTestRouter()
	accountID := openAccount(t, router, "12345678900", "1000.00")

	rec := doJSON(t, router, http.MethodGet, "/accounts/"+accountID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, accountID, body["account_id"])
	assert.NotContains(t, body, "available_balance")

	rec = doJSON(t, router, http.MethodGet, "/accounts/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostTransactionEndpoint(t *testing.T) {
	router := newTestRouter()
	accountID := openAccount(t, router, "12345678900", "1000.00")

	rec := doJSON(t, router, http.MethodPost, "/transactions", map[string]interface{}{
		"account_id":        accountID,
		"operation_type_id": 1,
		"amount":            "50.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, accountID, body["account_id"])
	assert.Equal(t, float64(1), body["operation_type_id"])
	assert.Equal(t, "-50", body["amount"])
}

func TestPostTransactionErrors(t *testing.T) {
	router := newTestRouter()
	accountID := openAccount(t, router, "12345678900", "1000.00")

	tests := []struct {
		name     string
		payload  map[string]interface{}
		wantCode int
	}{
		{
			name: "unknown account",
			payload: map[string]interface{}{
				"account_id": "no-such-id", "operation_type_id": 1, "amount": "10.00",
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "invalid operation type",
			payload: map[string]interface{}{
				"account_id": accountID, "operation_type_id": 9, "amount": "10.00",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing amount",
			payload: map[string]interface{}{
				"account_id": accountID, "operation_type_id": 1,
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "negative amount",
			payload: map[string]interface{}{
				"account_id": accountID, "operation_type_id": 1, "amount": "-10.00",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "over the limit",
			payload: map[string]interface{}{
				"account_id": accountID, "operation_type_id": 3, "amount": "1200.00",
			},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/transactions", tt.payload)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	// none of the failures touched the ledger
	rec := doJSON(t, router, http.MethodGet, "/accounts/"+accountID+"/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.TransactionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Total)
}

func TestGetTransactionEndpoint(t *testing.T) {
	router := newTestRouter()
	accountID := openAccount(t, router, "12345678900", "1000.00")

	rec := doJSON(t, router, http.MethodPost, "/transactions", map[string]interface{}{
		"account_id":        accountID,
		"operation_type_id": 4,
		"amount":            "25.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	txID := decodeBody(t, rec)["transaction_id"].(float64)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/transactions/%d", int64(txID)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/transactions/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactionsEndpoint(t *testing.T) {
	router := newTestRouter()
	accountID := openAccount(t, router, "12345678900", "1000.00")

	for i := 0; i < 5; i++ {
		rec := doJSON(t, router, http.MethodPost, "/transactions", map[string]interface{}{
			"account_id":        accountID,
			"operation_type_id": 4,
			"amount":            "10.00",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/accounts/"+accountID+"/transactions?page=1&size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.TransactionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)
	require.Len(t, page.Items, 2)
	assert.Less(t, page.Items[0].TransactionID, page.Items[1].TransactionID)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
