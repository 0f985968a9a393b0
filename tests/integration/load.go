package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	baseURL         = "http://localhost:8080"
	numAccounts     = 100        // Number of accounts to create
	numTransactions = 10000      // Total number of transactions
	maxConcurrency  = 200        // Maximum number of concurrent requests
	creditLimit     = 10000.0    // Credit limit for each account
	maxAmount       = 1000.0     // Maximum transaction amount
	successColor    = "\033[32m" // Green
	errorColor      = "\033[31m" // Red
	infoColor       = "\033[34m" // Blue
	resetColor      = "\033[0m"  // Reset color
)

type Account struct {
	AccountID      string `json:"account_id"`
	DocumentNumber string `json:"document_number"`
	CreditLimit    string `json:"credit_limit"`
}

type Transaction struct {
	TransactionID   int64  `json:"transaction_id"`
	AccountID       string `json:"account_id"`
	OperationTypeID int    `json:"operation_type_id"`
	Amount          string `json:"amount"`
}

type TransactionPage struct {
	Items []Transaction `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

func main() {
	rand.Seed(time.Now().UnixNano())

	fmt.Printf("%sstarting a heavy load test with %d accounts and %d transactions%s\n",
		infoColor, numAccounts, numTransactions, resetColor)

	// Create accounts
	accounts := createAccounts(numAccounts)
	fmt.Printf("%sCreated %d accounts%s\n", successColor, len(accounts), resetColor)

	// Create semaphore for limiting concurrency
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	// Track performance
	startTime := time.Now()
	successCount := 0
	rejectedCount := 0
	errorCount := 0
	var successMutex sync.Mutex

	// Launch transactions
	fmt.Printf("%slaunching %d transactions with max concurrency of %d%s\n",
		infoColor, numTransactions, maxConcurrency, resetColor)

	for i := 0; i < numTransactions; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(txNum int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			// Randomly select an account
			account := accounts[rand.Intn(len(accounts))]

			// Randomly select an operation type (1-3 debit, 4 credit)
			operationType := 1 + rand.Intn(4)

			// Random amount between 1 and maxAmount
			amount := 1.0 + rand.Float64()*(maxAmount-1.0)
			amount = float64(int(amount*100)) / 100 // Round to 2 decimal places

			// Post transaction
			txID, status, err := createTransaction(account.AccountID, operationType, amount)

			successMutex.Lock()
			switch {
			case err != nil:
				errorCount++
				if txNum%100 == 0 { // Only log some failures to avoid overwhelming output
					fmt.Printf("%sTransaction failed: %v%s\n", errorColor, err, resetColor)
				}
			case status == http.StatusUnprocessableEntity:
				// Limit rejections are expected once accounts are saturated
				rejectedCount++
			default:
				successCount++
				if txNum%500 == 0 { // Log every 500th successful transaction
					fmt.Printf("%sTransaction %d: Posted operation %d of %.2f on account %s (txID: %d)%s\n",
						successColor, txNum, operationType, amount, account.AccountID, txID, resetColor)
				}
			}
			successMutex.Unlock()
		}(i)
	}

	// Wait for all transactions to complete
	wg.Wait()
	duration := time.Since(startTime)

	fmt.Printf("\n%s=== heavy load Test Results ===%s\n", infoColor, resetColor)
	fmt.Printf("Total number of transactions: %d\n", numTransactions)
	fmt.Printf("Posted: %s%d (%.1f%%)%s\n",
		successColor, successCount, float64(successCount)/float64(numTransactions)*100, resetColor)
	fmt.Printf("Rejected over limit: %d (%.1f%%)\n",
		rejectedCount, float64(rejectedCount)/float64(numTransactions)*100)
	fmt.Printf("Failed: %s%d (%.1f%%)%s\n",
		errorColor, errorCount, float64(errorCount)/float64(numTransactions)*100, resetColor)
	fmt.Printf("Duration: %.2f seconds\n", duration.Seconds())
	fmt.Printf("Throughput: %.2f transactions/second\n", float64(numTransactions)/duration.Seconds())

	// Check final ledgers
	fmt.Printf("\n%sChecking final account ledgers...%s\n", infoColor, resetColor)
	checkAccountsAndTransactions(accounts)
}

// createAccounts creates the specified number of accounts
func createAccounts(count int) []Account {
	accounts := make([]Account, 0, count)

	for i := 0; i < count; i++ {
		// Create account request
		reqBody := map[string]interface{}{
			"document_number": fmt.Sprintf("doc-%d-%d", time.Now().UnixNano(), i),
			"credit_limit":    fmt.Sprintf("%.2f", creditLimit),
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			fmt.Printf("%sFailed to marshal JSON: %v%s\n", errorColor, err, resetColor)
			continue
		}

		// Send request
		resp, err := http.Post(baseURL+"/accounts", "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			fmt.Printf("%sFailed to create account: %v%s\n", errorColor, err, resetColor)
			continue
		}

		// Parse response
		if resp.StatusCode != http.StatusCreated {
			body, _ := ioutil.ReadAll(resp.Body)
			fmt.Printf("%sFailed to create account, status: %d, body: %s%s\n",
				errorColor, resp.StatusCode, string(body), resetColor)
			resp.Body.Close()
			continue
		}

		var account Account
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			fmt.Printf("%sFailed to decode response: %v%s\n", errorColor, err, resetColor)
			resp.Body.Close()
			continue
		}
		resp.Body.Close()

		accounts = append(accounts, account)
		if i%10 == 0 || i == count-1 {
			fmt.Printf("%screated account %d/%d: %s with credit limit %s%s\n",
				successColor, i+1, count, account.AccountID, account.CreditLimit, resetColor)
		}
	}

	return accounts
}

// createTransaction posts a transaction for the specified account
func createTransaction(accountID string, operationType int, amount float64) (int64, int, error) {
	// Create transaction request
	reqBody := map[string]interface{}{
		"account_id":        accountID,
		"operation_type_id": operationType,
		"amount":            fmt.Sprintf("%.2f", amount),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal JSON: %v", err)
	}

	// Send request
	resp, err := http.Post(baseURL+"/transactions", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to create transaction: %v", err)
	}
	defer resp.Body.Close()

	// Limit rejections are a valid outcome, not an error
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return 0, resp.StatusCode, nil
	}

	// Parse response
	if resp.StatusCode != http.StatusCreated {
		body, _ := ioutil.ReadAll(resp.Body)
		return 0, resp.StatusCode, fmt.Errorf("failed to create transaction, status: %d, body: %s", resp.StatusCode, string(body))
	}

	var transaction Transaction
	if err := json.NewDecoder(resp.Body).Decode(&transaction); err != nil {
		return 0, resp.StatusCode, fmt.Errorf("failed to decode response: %v", err)
	}

	return transaction.TransactionID, resp.StatusCode, nil
}

// getTransactions retrieves the full transaction history for an account
func getTransactions(accountID string) ([]Transaction, error) {
	resp, err := http.Get(fmt.Sprintf("%s/accounts/%s/transactions?size=%d", baseURL, accountID, numTransactions))
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %v", err)
	}
	defer resp.Body.Close()

	// Parse response
	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get transactions, status: %d, body: %s", resp.StatusCode, string(body))
	}

	var page TransactionPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return page.Items, nil
}

// checkAccountsAndTransactions verifies that no sampled account's movements
// sum below the credit limit
func checkAccountsAndTransactions(accounts []Account) {
	sampleSize := min(10, len(accounts)) // Check up to 10 accounts

	for i := 0; i < sampleSize; i++ {
		account := accounts[rand.Intn(len(accounts))]

		transactions, err := getTransactions(account.AccountID)
		if err != nil {
			fmt.Printf("%s%v%s\n", errorColor, err, resetColor)
			continue
		}

		// Replay the ledger: the balance is the sum of signed amounts
		balance := 0.0
		for _, tx := range transactions {
			var amount float64
			if _, err := fmt.Sscanf(tx.Amount, "%f", &amount); err != nil {
				fmt.Printf("%sbad amount %q on tx %d%s\n", errorColor, tx.Amount, tx.TransactionID, resetColor)
				continue
			}
			balance += amount
		}

		if balance < -creditLimit-0.01 {
			fmt.Printf("%saccount %s is overdrawn: balance %.2f exceeds credit limit %.2f%s\n",
				errorColor, account.AccountID, balance, creditLimit, resetColor)
		} else {
			fmt.Printf("%saccount %s: %d movements, replayed balance %.2f within limit%s\n",
				successColor, account.AccountID, len(transactions), balance, resetColor)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
