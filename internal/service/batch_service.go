package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
)

// DefaultTargetProfitPct is assigned to batches created without an explicit
// profit target.
var DefaultTargetProfitPct = decimal.NewFromInt(10)

// BatchService labels closed (buy, sell) pairs with named batches for
// reporting. Batching never changes lot state; it only moves pairs between
// the unbatched pool and a batch.
type BatchService struct {
	batchRepo *repository.BatchRepository
}

// NewBatchService creates a new BatchService with the provided repository dependency.
func NewBatchService(batchRepo *repository.BatchRepository) *BatchService {
	return &BatchService{batchRepo: batchRepo}
}

// UnbatchedPairs returns every closed pair whose SELL has no batch
// assigned, newest sale first, with realized P&L per pair.
func (s *BatchService) UnbatchedPairs() ([]model.ClosedPair, error) {
	return s.batchRepo.GetPairs("")
}

// Create groups the listed transactions under a new named batch.
func (s *BatchService) Create(ctx context.Context, req request.CreateBatchRequest) (model.Batch, error) {
	target := DefaultTargetProfitPct
	if req.TargetProfitPct != nil {
		target = *req.TargetProfitPct
	}

	batch := &model.Batch{
		ID:              uuid.New().String(),
		Name:            req.Name,
		TargetProfitPct: target,
		CreatedAt:       time.Now(),
	}

	if err := s.batchRepo.Create(ctx, batch, req.TransactionIDs); err != nil {
		return model.Batch{}, err
	}
	return *batch, nil
}

// Update replaces a batch's membership with exactly the listed transaction
// IDs; members no longer listed return to the unbatched pool. Name and
// date updates ride along atomically.
func (s *BatchService) Update(ctx context.Context, id string, req request.UpdateBatchRequest) (model.BatchSummary, error) {
	if err := s.batchRepo.ReplaceMembership(ctx, id, req.Name, req.BatchDate, req.TransactionIDs); err != nil {
		return model.BatchSummary{}, err
	}
	return s.Get(id)
}

// Get retrieves one batch with its member pairs and aggregate realized P&L.
func (s *BatchService) Get(id string) (model.BatchSummary, error) {
	batch, err := s.batchRepo.GetByID(id)
	if err != nil {
		return model.BatchSummary{}, err
	}
	return s.summarize(batch)
}

// List retrieves all batches with their aggregate realized P&L.
func (s *BatchService) List() ([]model.BatchSummary, error) {
	batches, err := s.batchRepo.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]model.BatchSummary, 0, len(batches))
	for _, batch := range batches {
		summary, err := s.summarize(batch)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *BatchService) summarize(batch model.Batch) (model.BatchSummary, error) {
	pairs, err := s.batchRepo.GetPairs(batch.ID)
	if err != nil {
		return model.BatchSummary{}, err
	}

	total := decimal.Zero
	for _, pair := range pairs {
		total = total.Add(pair.RealizedPnL)
	}

	return model.BatchSummary{
		Batch:       batch,
		Pairs:       pairs,
		RealizedPnL: total,
	}, nil
}
