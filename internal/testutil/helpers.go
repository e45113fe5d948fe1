package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/repository"
	"stock-lot-tracker/internal/service"
)

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)

	return service.NewLedgerService(
		transactionRepo,
		instrumentRepo,
		PortfolioID,
	)
}

func NewTestPortfolioService(t *testing.T, db *sql.DB) *service.PortfolioService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	return service.NewPortfolioService(
		transactionRepo,
		instrumentRepo,
		batchRepo,
	)
}

func NewTestBatchService(t *testing.T, db *sql.DB) *service.BatchService {
	t.Helper()

	batchRepo := repository.NewBatchRepository(db)

	return service.NewBatchService(
		batchRepo,
	)
}

// NewTestCredentialRepository creates a credential repository with a fresh
// fernet key.
func NewTestCredentialRepository(t *testing.T, db *sql.DB) *repository.CredentialRepository {
	t.Helper()

	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate fernet key: %v", err)
	}
	return repository.NewCredentialRepository(db, &key)
}

// NewTestSessionManager creates a session manager over the given fake
// broker, backed by an encrypted credential slot in the test database.
func NewTestSessionManager(t *testing.T, db *sql.DB, broker kite.Client) *kite.SessionManager {
	t.Helper()

	return kite.NewSessionManager(broker, NewTestCredentialRepository(t, db))
}

// MakeID generates a UUID string for use in tests.
func MakeID() string {
	return uuid.New().String()
}

// MakeTicker generates a unique ticker symbol from a base prefix.
//
// Example usage:
//
//	ticker := testutil.MakeTicker("INFY")
func MakeTicker(base string) string {
	return fmt.Sprintf("%s%03d", base, rand.Intn(1000))
}
