package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
)

// LedgerService is the single source of truth for transaction state. It
// enforces the open/closed linkage invariant: a BUY lot claimed by a SELL
// is closed in the same atomic unit of work that records the SELL, and is
// reopened when that SELL is deleted or re-parented.
type LedgerService struct {
	transactionRepo *repository.TransactionRepository
	instrumentRepo  *repository.InstrumentRepository
	portfolioID     string
}

// NewLedgerService creates a new LedgerService scoped to the configured
// portfolio.
func NewLedgerService(
	transactionRepo *repository.TransactionRepository,
	instrumentRepo *repository.InstrumentRepository,
	portfolioID string,
) *LedgerService {
	return &LedgerService{
		transactionRepo: transactionRepo,
		instrumentRepo:  instrumentRepo,
		portfolioID:     portfolioID,
	}
}

// Record creates a BUY or SELL transaction. A BUY starts open; a SELL with
// a parent reference closes that lot as a side effect of the same database
// transaction. The instrument is created lazily on first reference.
func (s *LedgerService) Record(ctx context.Context, req request.CreateTransactionRequest) (model.TransactionResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return model.TransactionResponse{}, fmt.Errorf("failed to parse date: %w", err)
	}

	if req.ExternalOrderID != nil {
		recorded, err := s.transactionRepo.RecordedOrderIDs([]string{*req.ExternalOrderID})
		if err != nil {
			return model.TransactionResponse{}, err
		}
		if recorded[*req.ExternalOrderID] {
			return model.TransactionResponse{}, apperrors.ErrDuplicateOrder
		}
	}

	instrument, err := s.instrumentRepo.FindOrCreate(ctx, req.Ticker)
	if err != nil {
		return model.TransactionResponse{}, err
	}

	transaction := &model.Transaction{
		ID:              uuid.New().String(),
		PortfolioID:     s.portfolioID,
		InstrumentID:    instrument.ID,
		Type:            req.Type,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Date:            date,
		IsOpen:          req.Type == model.TypeBuy,
		ParentBuyID:     req.ParentBuyID,
		ExternalOrderID: req.ExternalOrderID,
		CreatedAt:       time.Now(),
	}

	if req.Type == model.TypeSell && req.ParentBuyID != nil {
		err = s.transactionRepo.InsertSellWithParent(ctx, transaction, *req.ParentBuyID)
	} else {
		err = s.transactionRepo.Insert(ctx, transaction)
	}
	if err != nil {
		return model.TransactionResponse{}, err
	}

	return s.transactionRepo.GetByID(transaction.ID)
}

// BulkSell records one SELL that liquidates several BUY lots at once. The
// sell quantity must equal the sum of the selected lots' quantities; every
// listed lot is closed in the same database transaction.
func (s *LedgerService) BulkSell(ctx context.Context, req request.BulkSellRequest) (model.TransactionResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return model.TransactionResponse{}, fmt.Errorf("failed to parse date: %w", err)
	}

	instrument, err := s.instrumentRepo.GetByTicker(req.Ticker)
	if err != nil {
		return model.TransactionResponse{}, err
	}

	sell := &model.Transaction{
		ID:           uuid.New().String(),
		PortfolioID:  s.portfolioID,
		InstrumentID: instrument.ID,
		Type:         model.TypeSell,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Date:         date,
		IsOpen:       false,
		CreatedAt:    time.Now(),
	}

	if err := s.transactionRepo.InsertBulkSell(ctx, sell, req.SelectedBuyIDs); err != nil {
		return model.TransactionResponse{}, err
	}

	return s.transactionRepo.GetByID(sell.ID)
}

// Update replaces a transaction's mutable fields. Changing a SELL's parent
// reopens the old lot and closes the new one atomically.
func (s *LedgerService) Update(ctx context.Context, id string, req request.UpdateTransactionRequest) (model.TransactionResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return model.TransactionResponse{}, fmt.Errorf("failed to parse date: %w", err)
	}

	transaction, err := s.transactionRepo.GetRaw(id)
	if err != nil {
		return model.TransactionResponse{}, err
	}

	transaction.Quantity = req.Quantity
	transaction.Price = req.Price
	transaction.Date = date
	if transaction.Type == model.TypeSell {
		transaction.ParentBuyID = req.ParentBuyID
	}

	if err := s.transactionRepo.Update(ctx, &transaction); err != nil {
		return model.TransactionResponse{}, err
	}

	return s.transactionRepo.GetByID(id)
}

// Delete removes a transaction. Deleting a SELL reopens the BUY lots it had
// closed; deleting a BUY still claimed by a SELL is refused.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	return s.transactionRepo.Delete(ctx, id)
}

// Get retrieves a single transaction with its instrument ticker.
func (s *LedgerService) Get(id string) (model.TransactionResponse, error) {
	return s.transactionRepo.GetByID(id)
}

// Ledger returns one page of the transaction ledger, newest first.
func (s *LedgerService) Ledger(page, limit int, tickerFilter string) (model.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	tickerFilter = strings.ToUpper(strings.TrimSpace(tickerFilter))
	transactions, total, err := s.transactionRepo.GetLedgerPage(page, limit, tickerFilter)
	if err != nil {
		return model.LedgerPage{}, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return model.LedgerPage{
		Data: transactions,
		Pagination: model.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalRecords: total,
			Limit:        limit,
		},
	}, nil
}

// OpenLots returns the instrument's open BUY lots, oldest first.
func (s *LedgerService) OpenLots(ticker string) ([]model.OpenLot, error) {
	instrument, err := s.instrumentRepo.GetByTicker(ticker)
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.GetOpenLots(instrument.ID)
}
