package validation

import (
	"strings"
	"time"

	"stock-lot-tracker/internal/api/request"
)

// ValidateCreateBatch validates a batch creation request.
// A batch needs a name and at least one transaction to group.
func ValidateCreateBatch(req request.CreateBatchRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["batch_name"] = "batch_name is required"
	}

	if len(req.TransactionIDs) == 0 {
		errors["transaction_ids"] = "at least one transaction is required"
	} else if err := ValidateUUIDs(req.TransactionIDs); err != nil {
		errors["transaction_ids"] = err.Error()
	}

	if req.TargetProfitPct != nil && req.TargetProfitPct.Sign() <= 0 {
		errors["target_profit_pct"] = "target_profit_pct must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateUpdateBatch validates a batch update request. An empty membership
// list is allowed: it returns every member to the unbatched pool.
func ValidateUpdateBatch(req request.UpdateBatchRequest) error {
	errors := make(map[string]string)

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errors["batch_name"] = "batch_name cannot be empty"
	}

	if req.BatchDate != nil {
		if _, err := time.Parse("2006-01-02", *req.BatchDate); err != nil {
			errors["batch_date"] = err.Error()
		}
	}

	if len(req.TransactionIDs) > 0 {
		if err := ValidateUUIDs(req.TransactionIDs); err != nil {
			errors["transaction_ids"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
