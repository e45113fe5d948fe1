package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
)

// InstrumentRepository provides data access methods for the instrument table.
type InstrumentRepository struct {
	db *sql.DB
}

// NewInstrumentRepository creates a new InstrumentRepository with the provided database connection.
func NewInstrumentRepository(db *sql.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// FindOrCreate returns the instrument for the given ticker, creating it on
// first reference. Tickers are stored upper-cased so GOLDBEES and goldbees
// resolve to the same instrument.
func (r *InstrumentRepository) FindOrCreate(ctx context.Context, ticker string) (model.Instrument, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	instrument, err := r.GetByTicker(ticker)
	if err == nil {
		return instrument, nil
	}
	if !errors.Is(err, apperrors.ErrInstrumentNotFound) {
		return model.Instrument{}, err
	}

	instrument = model.Instrument{
		ID:      uuid.New().String(),
		Ticker:  ticker,
		Display: true,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO instrument (id, ticker, display) VALUES (?, ?, ?)`,
		instrument.ID, instrument.Ticker, instrument.Display,
	)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("failed to insert instrument: %w", err)
	}

	return instrument, nil
}

// GetByTicker retrieves an instrument by its ticker symbol.
func (r *InstrumentRepository) GetByTicker(ticker string) (model.Instrument, error) {
	var instrument model.Instrument

	err := r.db.QueryRow(
		`SELECT id, ticker, display FROM instrument WHERE ticker = ?`,
		strings.ToUpper(strings.TrimSpace(ticker)),
	).Scan(&instrument.ID, &instrument.Ticker, &instrument.Display)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Instrument{}, apperrors.ErrInstrumentNotFound
	}
	if err != nil {
		return model.Instrument{}, fmt.Errorf("failed to query instrument: %w", err)
	}

	return instrument, nil
}

// List returns all instruments ordered by ticker.
func (r *InstrumentRepository) List() ([]model.Instrument, error) {
	rows, err := r.db.Query(`SELECT id, ticker, display FROM instrument ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument table: %w", err)
	}
	defer rows.Close()

	instruments := []model.Instrument{}
	for rows.Next() {
		var instrument model.Instrument
		if err := rows.Scan(&instrument.ID, &instrument.Ticker, &instrument.Display); err != nil {
			return nil, fmt.Errorf("failed to scan instrument row: %w", err)
		}
		instruments = append(instruments, instrument)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instrument table: %w", err)
	}

	return instruments, nil
}

// EnsurePortfolio creates the configured portfolio row if it does not exist.
// The deployment runs against a single portfolio whose ID is configuration.
func EnsurePortfolio(ctx context.Context, db *sql.DB, id, name string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO portfolio (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure portfolio: %w", err)
	}
	return nil
}
