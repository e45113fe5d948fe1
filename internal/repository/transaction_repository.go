package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
)

// TransactionRepository provides data access methods for the trade and
// trade_allocation tables. Every multi-statement mutation runs inside a
// single database transaction: a failure anywhere rolls back the whole
// operation, so a SELL can never be observed without its lot closed.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert stores a single transaction row without touching any other lot.
// Used for BUY rows and for SELL rows with no parent linkage.
func (r *TransactionRepository) Insert(ctx context.Context, t *model.Transaction) error {
	return r.insert(ctx, r.db, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *TransactionRepository) insert(ctx context.Context, q execer, t *model.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO trade (id, portfolio_id, instrument_id, type, quantity, price, trade_date, is_open, parent_buy_id, batch_id, external_order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.PortfolioID,
		t.InstrumentID,
		t.Type,
		t.Quantity.String(),
		t.Price.String(),
		t.Date.Format("2006-01-02"),
		t.IsOpen,
		t.ParentBuyID,
		t.BatchID,
		t.ExternalOrderID,
		t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// lotState is the subset of a trade row needed to decide whether it can be
// closed by a sale.
type lotState struct {
	ID           string
	InstrumentID string
	Type         string
	IsOpen       bool
	Quantity     decimal.Decimal
}

func loadLot(ctx context.Context, tx *sql.Tx, id string) (lotState, error) {
	var (
		lot    lotState
		qtyStr string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, instrument_id, type, is_open, quantity FROM trade WHERE id = ?`, id,
	).Scan(&lot.ID, &lot.InstrumentID, &lot.Type, &lot.IsOpen, &qtyStr)
	if errors.Is(err, sql.ErrNoRows) {
		return lotState{}, apperrors.ErrParentLotNotFound
	}
	if err != nil {
		return lotState{}, fmt.Errorf("failed to load lot %s: %w", id, err)
	}

	lot.Quantity, err = ParseDecimal(qtyStr)
	if err != nil {
		return lotState{}, err
	}
	return lot, nil
}

// closeLot flips a BUY lot to closed. The is_open guard makes the close a
// compare-and-swap: if another request already closed the lot, zero rows
// are affected and the caller gets ErrLotAlreadyClosed instead of silently
// double-claiming the lot.
func closeLot(ctx context.Context, tx *sql.Tx, buyID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE trade SET is_open = FALSE WHERE id = ? AND type = ? AND is_open = TRUE`,
		buyID, model.TypeBuy,
	)
	if err != nil {
		return fmt.Errorf("failed to close lot %s: %w", buyID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read close result for lot %s: %w", buyID, err)
	}
	if affected == 0 {
		return apperrors.ErrLotAlreadyClosed
	}
	return nil
}

func reopenLot(ctx context.Context, tx *sql.Tx, buyID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE trade SET is_open = TRUE WHERE id = ? AND type = ?`,
		buyID, model.TypeBuy,
	); err != nil {
		return fmt.Errorf("failed to reopen lot %s: %w", buyID, err)
	}
	return nil
}

// checkParent verifies the parent lot is a BUY on the same instrument.
func checkParent(lot lotState, instrumentID string) error {
	if lot.Type != model.TypeBuy {
		return apperrors.ErrLotNotBuy
	}
	if lot.InstrumentID != instrumentID {
		return apperrors.ErrInstrumentMismatch
	}
	return nil
}

// InsertSellWithParent creates a SELL row and closes its parent BUY lot in
// one database transaction. The parent must exist, be a BUY on the same
// instrument, and still be open.
func (r *TransactionRepository) InsertSellWithParent(ctx context.Context, sell *model.Transaction, parentBuyID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	parent, err := loadLot(ctx, tx, parentBuyID)
	if err != nil {
		return err
	}
	if err := checkParent(parent, sell.InstrumentID); err != nil {
		return err
	}

	if err := r.insert(ctx, tx, sell); err != nil {
		return err
	}
	if err := closeLot(ctx, tx, parentBuyID); err != nil {
		return err
	}
	if err := insertAllocation(ctx, tx, sell.ID, parentBuyID, parent.Quantity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sell: %w", err)
	}
	return nil
}

// InsertBulkSell creates one SELL row liquidating several BUY lots at once.
// Every listed lot must be an open BUY on the sell's instrument, and the
// sell quantity must equal the sum of the lots' quantities; otherwise the
// whole operation is rejected and nothing is written.
func (r *TransactionRepository) InsertBulkSell(ctx context.Context, sell *model.Transaction, buyIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	total := decimal.Zero
	lots := make([]lotState, 0, len(buyIDs))
	for _, buyID := range buyIDs {
		lot, err := loadLot(ctx, tx, buyID)
		if err != nil {
			return err
		}
		if err := checkParent(lot, sell.InstrumentID); err != nil {
			return err
		}
		if !lot.IsOpen {
			return apperrors.ErrLotAlreadyClosed
		}
		lots = append(lots, lot)
		total = total.Add(lot.Quantity)
	}

	if !total.Equal(sell.Quantity) {
		return fmt.Errorf("%w: selected lots total %s, sell quantity %s",
			apperrors.ErrQuantityMismatch, total, sell.Quantity)
	}

	if err := r.insert(ctx, tx, sell); err != nil {
		return err
	}
	for _, lot := range lots {
		if err := closeLot(ctx, tx, lot.ID); err != nil {
			return err
		}
		if err := insertAllocation(ctx, tx, sell.ID, lot.ID, lot.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk sell: %w", err)
	}
	return nil
}

func insertAllocation(ctx context.Context, tx *sql.Tx, sellID, buyID string, qty decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trade_allocation (sell_id, buy_id, quantity_closed) VALUES (?, ?, ?)`,
		sellID, buyID, qty.String(),
	); err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

// Update replaces a transaction's quantity, price, date and parent linkage.
// When a SELL's parent changes, the old parent is reopened and the new one
// closed inside the same database transaction, so the closing invariant
// holds at every commit point.
func (r *TransactionRepository) Update(ctx context.Context, t *model.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var (
		txType      string
		oldParentID sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT type, parent_buy_id FROM trade WHERE id = ?`, t.ID,
	).Scan(&txType, &oldParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load trade %s: %w", t.ID, err)
	}

	if txType == model.TypeSell {
		oldParent := ""
		if oldParentID.Valid {
			oldParent = oldParentID.String
		}
		newParent := ""
		if t.ParentBuyID != nil {
			newParent = *t.ParentBuyID
		}

		if oldParent != newParent {
			if oldParent != "" {
				if err := reopenLot(ctx, tx, oldParent); err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM trade_allocation WHERE sell_id = ? AND buy_id = ?`,
					t.ID, oldParent,
				); err != nil {
					return fmt.Errorf("failed to remove allocation: %w", err)
				}
			}
			if newParent != "" {
				parent, err := loadLot(ctx, tx, newParent)
				if err != nil {
					return err
				}
				if err := checkParent(parent, t.InstrumentID); err != nil {
					return err
				}
				if err := closeLot(ctx, tx, newParent); err != nil {
					return err
				}
				if err := insertAllocation(ctx, tx, t.ID, newParent, parent.Quantity); err != nil {
					return err
				}
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE trade SET quantity = ?, price = ?, trade_date = ?, parent_buy_id = ? WHERE id = ?`,
		t.Quantity.String(), t.Price.String(), t.Date.Format("2006-01-02"), t.ParentBuyID, t.ID,
	); err != nil {
		return fmt.Errorf("failed to update trade %s: %w", t.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

// Delete removes a transaction. Deleting a SELL reopens every BUY lot it had
// closed, in the same database transaction. Deleting a BUY is refused while
// a SELL still claims it.
func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var txType string
	err = tx.QueryRowContext(ctx, `SELECT type FROM trade WHERE id = ?`, id).Scan(&txType)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load trade %s: %w", id, err)
	}

	switch txType {
	case model.TypeSell:
		buyIDs, err := allocatedBuyIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, buyID := range buyIDs {
			if err := reopenLot(ctx, tx, buyID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM trade_allocation WHERE sell_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete allocations: %w", err)
		}
	case model.TypeBuy:
		var claims int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM trade_allocation WHERE buy_id = ?`, id,
		).Scan(&claims)
		if err != nil {
			return fmt.Errorf("failed to count allocations: %w", err)
		}
		if claims > 0 {
			return apperrors.ErrLotInUse
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trade WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func allocatedBuyIDs(ctx context.Context, tx *sql.Tx, sellID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT buy_id FROM trade_allocation WHERE sell_id = ?`, sellID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}
	return ids, nil
}

// GetOpenLots returns all open BUY lots for the instrument, oldest first
// (date ascending, then id ascending for a stable order within a day).
func (r *TransactionRepository) GetOpenLots(instrumentID string) ([]model.OpenLot, error) {
	rows, err := r.db.Query(`
		SELECT id, trade_date, quantity, price
		FROM trade
		WHERE instrument_id = ? AND type = ? AND is_open = TRUE
		ORDER BY trade_date ASC, id ASC`,
		instrumentID, model.TypeBuy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query open lots: %w", err)
	}
	defer rows.Close()

	lots := []model.OpenLot{}
	for rows.Next() {
		var (
			lot            model.OpenLot
			qtyStr, prcStr string
		)
		if err := rows.Scan(&lot.ID, &lot.Date, &qtyStr, &prcStr); err != nil {
			return nil, fmt.Errorf("failed to scan open lot: %w", err)
		}
		if lot.Quantity, err = ParseDecimal(qtyStr); err != nil {
			return nil, err
		}
		if lot.Price, err = ParseDecimal(prcStr); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open lots: %w", err)
	}
	return lots, nil
}

// GetRaw retrieves a transaction row without the instrument join. Used by
// mutations that need the stored type and instrument reference.
func (r *TransactionRepository) GetRaw(id string) (model.Transaction, error) {
	var (
		t                       model.Transaction
		qtyStr, prcStr, dateStr string
		createdStr              string
		parentID, batchID       sql.NullString
		externalID              sql.NullString
	)

	err := r.db.QueryRow(`
		SELECT id, portfolio_id, instrument_id, type, quantity, price, trade_date, is_open, parent_buy_id, batch_id, external_order_id, created_at
		FROM trade
		WHERE id = ?`, id,
	).Scan(&t.ID, &t.PortfolioID, &t.InstrumentID, &t.Type, &qtyStr, &prcStr, &dateStr, &t.IsOpen, &parentID, &batchID, &externalID, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to query trade %s: %w", id, err)
	}

	if t.Quantity, err = ParseDecimal(qtyStr); err != nil {
		return model.Transaction{}, err
	}
	if t.Price, err = ParseDecimal(prcStr); err != nil {
		return model.Transaction{}, err
	}
	if t.Date, err = ParseTime(dateStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTimestamp(createdStr); err != nil {
		return model.Transaction{}, err
	}

	if parentID.Valid {
		t.ParentBuyID = &parentID.String
	}
	if batchID.Valid {
		t.BatchID = &batchID.String
	}
	if externalID.Valid {
		t.ExternalOrderID = &externalID.String
	}
	return t, nil
}

// GetByID retrieves a single transaction joined with its instrument ticker.
func (r *TransactionRepository) GetByID(id string) (model.TransactionResponse, error) {
	row := r.db.QueryRow(`
		SELECT t.id, i.ticker, t.type, t.quantity, t.price, t.trade_date, t.is_open, t.parent_buy_id, t.batch_id, t.external_order_id
		FROM trade t
		JOIN instrument i ON t.instrument_id = i.id
		WHERE t.id = ?`, id)

	t, err := scanTransactionResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TransactionResponse{}, apperrors.ErrTransactionNotFound
	}
	return t, err
}

// GetLedgerPage returns one stable-ordered page of the ledger (date
// descending, newest created first within a date) plus the total row count
// for pagination. tickerFilter narrows to one instrument when non-empty.
func (r *TransactionRepository) GetLedgerPage(page, limit int, tickerFilter string) ([]model.TransactionResponse, int, error) {
	where := ""
	args := []any{}
	if tickerFilter != "" {
		where = ` WHERE i.ticker = ?`
		args = append(args, tickerFilter)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM trade t JOIN instrument i ON t.instrument_id = i.id` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger rows: %w", err)
	}

	query := `
		SELECT t.id, i.ticker, t.type, t.quantity, t.price, t.trade_date, t.is_open, t.parent_buy_id, t.batch_id, t.external_order_id
		FROM trade t
		JOIN instrument i ON t.instrument_id = i.id` + where + `
		ORDER BY t.trade_date DESC, t.created_at DESC, t.id ASC
		LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query ledger page: %w", err)
	}
	defer rows.Close()

	transactions := []model.TransactionResponse{}
	for rows.Next() {
		t, err := scanTransactionResponse(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ledger page: %w", err)
	}
	return transactions, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionResponse(row rowScanner) (model.TransactionResponse, error) {
	var (
		t                       model.TransactionResponse
		qtyStr, prcStr, dateStr string
		parentID, batchID       sql.NullString
		externalID              sql.NullString
	)

	err := row.Scan(&t.ID, &t.Ticker, &t.Type, &qtyStr, &prcStr, &dateStr, &t.IsOpen, &parentID, &batchID, &externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TransactionResponse{}, err
		}
		return model.TransactionResponse{}, fmt.Errorf("failed to scan trade row: %w", err)
	}

	if t.Quantity, err = ParseDecimal(qtyStr); err != nil {
		return model.TransactionResponse{}, err
	}
	if t.Price, err = ParseDecimal(prcStr); err != nil {
		return model.TransactionResponse{}, err
	}

	date, err := ParseTime(dateStr)
	if err != nil {
		return model.TransactionResponse{}, err
	}
	t.Date = date.Format("2006-01-02")

	if parentID.Valid {
		t.ParentBuyID = &parentID.String
	}
	if batchID.Valid {
		t.BatchID = &batchID.String
	}
	if externalID.Valid {
		t.ExternalOrderID = &externalID.String
	}
	return t, nil
}

// PositionRow is one trade row in the shape needed for net-position math.
type PositionRow struct {
	Ticker   string
	Type     string
	IsOpen   bool
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// GetPositionRows returns every trade row with its ticker, for the
// aggregator to fold into per-instrument positions. The aggregator is
// recomputed from the ledger on every call; there is no cached state to
// invalidate.
func (r *TransactionRepository) GetPositionRows() ([]PositionRow, error) {
	rows, err := r.db.Query(`
		SELECT i.ticker, t.type, t.is_open, t.quantity, t.price
		FROM trade t
		JOIN instrument i ON t.instrument_id = i.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query position rows: %w", err)
	}
	defer rows.Close()

	var result []PositionRow
	for rows.Next() {
		var (
			p              PositionRow
			qtyStr, prcStr string
		)
		if err := rows.Scan(&p.Ticker, &p.Type, &p.IsOpen, &qtyStr, &prcStr); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		if p.Quantity, err = ParseDecimal(qtyStr); err != nil {
			return nil, err
		}
		if p.Price, err = ParseDecimal(prcStr); err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return result, nil
}

// ActiveTickers returns the tickers that currently have at least one open
// BUY lot. Used to decide which instruments to keep live quotes for.
func (r *TransactionRepository) ActiveTickers() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT i.ticker
		FROM trade t
		JOIN instrument i ON t.instrument_id = i.id
		WHERE t.type = ? AND t.is_open = TRUE
		ORDER BY i.ticker ASC`, model.TypeBuy)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tickers: %w", err)
	}
	defer rows.Close()

	tickers := []string{}
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}
	return tickers, nil
}

// RecordedOrderIDs returns which of the given broker order IDs already have
// a local transaction, so the order inbox can flag duplicates.
func (r *TransactionRepository) RecordedOrderIDs(orderIDs []string) (map[string]bool, error) {
	recorded := make(map[string]bool)
	if len(orderIDs) == 0 {
		return recorded, nil
	}

	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := r.db.Query(
		`SELECT external_order_id FROM trade WHERE external_order_id IN (`+Placeholders(len(orderIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recorded orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		recorded[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recorded orders: %w", err)
	}
	return recorded, nil
}
