package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
)

// BatchRepository provides data access methods for the batch table and the
// batch membership carried on trade rows. Batching is a labeling operation
// over already-closed transactions; it never changes lot state.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository with the provided database connection.
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts the batch and assigns its ID to every listed transaction
// in one database transaction.
func (r *BatchRepository) Create(ctx context.Context, batch *model.Batch, transactionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batch (id, name, target_profit_pct, is_closed, batch_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Name, batch.TargetProfitPct.String(), batch.IsClosed, batch.BatchDate,
		batch.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if err := assignBatch(ctx, tx, batch.ID, transactionIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// ReplaceMembership makes the batch's membership exactly transactionIDs:
// current members not listed get their batch reference cleared (back to the
// unbatched pool), newly listed ones are assigned. Optional name and date
// updates ride in the same database transaction.
func (r *BatchRepository) ReplaceMembership(ctx context.Context, batchID string, name, batchDate *string, transactionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batch WHERE id = ?`, batchID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check batch: %w", err)
	}
	if exists == 0 {
		return apperrors.ErrBatchNotFound
	}

	if name != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE batch SET name = ? WHERE id = ?`, *name, batchID); err != nil {
			return fmt.Errorf("failed to update batch name: %w", err)
		}
	}
	if batchDate != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE batch SET batch_date = ? WHERE id = ?`, *batchDate, batchID); err != nil {
			return fmt.Errorf("failed to update batch date: %w", err)
		}
	}

	// Clear members that are no longer listed, then assign the new set.
	// Assigning is idempotent for rows already in the batch, so the two
	// statements together apply the symmetric difference.
	clearQuery := `UPDATE trade SET batch_id = NULL WHERE batch_id = ?`
	clearArgs := []any{batchID}
	if len(transactionIDs) > 0 {
		clearQuery += ` AND id NOT IN (` + Placeholders(len(transactionIDs)) + `)`
		for _, id := range transactionIDs {
			clearArgs = append(clearArgs, id)
		}
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("failed to clear batch members: %w", err)
	}

	if err := assignBatch(ctx, tx, batchID, transactionIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch update: %w", err)
	}
	return nil
}

func assignBatch(ctx context.Context, tx *sql.Tx, batchID string, transactionIDs []string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(transactionIDs)+1)
	args = append(args, batchID)
	for _, id := range transactionIDs {
		args = append(args, id)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE trade SET batch_id = ? WHERE id IN (`+Placeholders(len(transactionIDs))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to assign batch members: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read assignment result: %w", err)
	}
	if int(affected) != len(transactionIDs) {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// List returns all batches, newest first.
func (r *BatchRepository) List() ([]model.Batch, error) {
	rows, err := r.db.Query(`
		SELECT id, name, target_profit_pct, is_closed, batch_date, created_at
		FROM batch
		ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch table: %w", err)
	}
	defer rows.Close()

	batches := []model.Batch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch table: %w", err)
	}
	return batches, nil
}

// GetByID retrieves a single batch.
func (r *BatchRepository) GetByID(id string) (model.Batch, error) {
	row := r.db.QueryRow(`
		SELECT id, name, target_profit_pct, is_closed, batch_date, created_at
		FROM batch
		WHERE id = ?`, id)

	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Batch{}, apperrors.ErrBatchNotFound
	}
	return batch, err
}

func scanBatch(row rowScanner) (model.Batch, error) {
	var (
		batch                 model.Batch
		targetStr, createdStr string
		batchDate             sql.NullString
	)

	err := row.Scan(&batch.ID, &batch.Name, &targetStr, &batch.IsClosed, &batchDate, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Batch{}, err
		}
		return model.Batch{}, fmt.Errorf("failed to scan batch row: %w", err)
	}

	if batch.TargetProfitPct, err = ParseDecimal(targetStr); err != nil {
		return model.Batch{}, err
	}
	if batch.CreatedAt, err = ParseTimestamp(createdStr); err != nil {
		return model.Batch{}, err
	}
	if batchDate.Valid {
		batch.BatchDate = &batchDate.String
	}
	return batch, nil
}

// GetPairs returns the closed (buy, sell) pairs for one batch, newest sale
// first. Pass an empty batchID to get the unbatched pool instead.
func (r *BatchRepository) GetPairs(batchID string) ([]model.ClosedPair, error) {
	if batchID == "" {
		return r.queryPairs(` WHERE s.batch_id IS NULL`)
	}
	return r.queryPairs(` WHERE s.batch_id = ?`, batchID)
}

// AllPairs returns every closed pair regardless of batch assignment, for
// per-instrument realized P&L aggregation.
func (r *BatchRepository) AllPairs() ([]model.ClosedPair, error) {
	return r.queryPairs("")
}

func (r *BatchRepository) queryPairs(where string, args ...any) ([]model.ClosedPair, error) {
	query := `
		SELECT a.sell_id, a.buy_id, i.ticker, s.trade_date, b.trade_date, a.quantity_closed, s.price, b.price
		FROM trade_allocation a
		JOIN trade s ON a.sell_id = s.id
		JOIN trade b ON a.buy_id = b.id
		JOIN instrument i ON s.instrument_id = i.id` + where + `
		ORDER BY s.trade_date DESC, a.sell_id ASC, a.buy_id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed pairs: %w", err)
	}
	defer rows.Close()

	pairs := []model.ClosedPair{}
	for rows.Next() {
		var (
			pair                                       model.ClosedPair
			sellDate, buyDate, qtyStr, sellPrc, buyPrc string
		)
		if err := rows.Scan(&pair.SellID, &pair.BuyID, &pair.Ticker, &sellDate, &buyDate, &qtyStr, &sellPrc, &buyPrc); err != nil {
			return nil, fmt.Errorf("failed to scan closed pair: %w", err)
		}

		sd, err := ParseTime(sellDate)
		if err != nil {
			return nil, err
		}
		bd, err := ParseTime(buyDate)
		if err != nil {
			return nil, err
		}
		pair.SellDate = sd.Format("2006-01-02")
		pair.BuyDate = bd.Format("2006-01-02")

		if pair.QuantityClosed, err = ParseDecimal(qtyStr); err != nil {
			return nil, err
		}
		if pair.SellPrice, err = ParseDecimal(sellPrc); err != nil {
			return nil, err
		}
		if pair.BuyPrice, err = ParseDecimal(buyPrc); err != nil {
			return nil, err
		}

		// Realized P&L per pair: (sell price - buy price) x quantity closed.
		pair.RealizedPnL = pair.SellPrice.Sub(pair.BuyPrice).Mul(pair.QuantityClosed)
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed pairs: %w", err)
	}
	return pairs, nil
}
