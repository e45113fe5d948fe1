package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Instrument table
		CREATE TABLE instrument (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			ticker VARCHAR(20) NOT NULL UNIQUE,
			display BOOLEAN NOT NULL DEFAULT TRUE
		);

		-- Portfolio table
		CREATE TABLE portfolio (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL
		);

		-- Batch table
		CREATE TABLE batch (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			target_profit_pct TEXT NOT NULL DEFAULT '10',
			is_closed BOOLEAN NOT NULL DEFAULT FALSE,
			batch_date DATE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Trade table; quantities and prices are canonical decimal strings
		CREATE TABLE trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			portfolio_id VARCHAR(36) NOT NULL,
			instrument_id VARCHAR(36) NOT NULL,
			type VARCHAR(4) NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			trade_date DATE NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT FALSE,
			parent_buy_id VARCHAR(36),
			batch_id VARCHAR(36),
			external_order_id VARCHAR(64) UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(portfolio_id) REFERENCES portfolio(id) ON DELETE CASCADE,
			FOREIGN KEY(instrument_id) REFERENCES instrument(id),
			FOREIGN KEY(parent_buy_id) REFERENCES trade(id),
			FOREIGN KEY(batch_id) REFERENCES batch(id) ON DELETE SET NULL
		);

		CREATE INDEX idx_trade_instrument_open ON trade(instrument_id, is_open);
		CREATE INDEX idx_trade_batch ON trade(batch_id);
		CREATE INDEX idx_trade_date ON trade(trade_date);

		-- SELL to BUY close allocations
		CREATE TABLE trade_allocation (
			sell_id VARCHAR(36) NOT NULL,
			buy_id VARCHAR(36) NOT NULL,
			quantity_closed TEXT NOT NULL,
			PRIMARY KEY (sell_id, buy_id),
			FOREIGN KEY(sell_id) REFERENCES trade(id) ON DELETE CASCADE,
			FOREIGN KEY(buy_id) REFERENCES trade(id)
		);

		-- Encrypted broker credential slots
		CREATE TABLE broker_credential (
			name VARCHAR(36) NOT NULL PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := db.Exec(schema)
	return err
}
