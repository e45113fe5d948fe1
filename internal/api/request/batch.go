package request

import "github.com/shopspring/decimal"

// CreateBatchRequest is the body for POST /api/batches/create.
type CreateBatchRequest struct {
	Name            string           `json:"batch_name"`
	TargetProfitPct *decimal.Decimal `json:"target_profit_pct,omitempty"`
	TransactionIDs  []string         `json:"transaction_ids"`
}

// UpdateBatchRequest is the body for PUT /api/batches/{uuid}.
// TransactionIDs replaces the batch membership: members not listed are
// returned to the unbatched pool, newly listed ones are assigned.
type UpdateBatchRequest struct {
	Name           *string  `json:"batch_name,omitempty"`
	BatchDate      *string  `json:"batch_date,omitempty"`
	TransactionIDs []string `json:"transaction_ids"`
}
