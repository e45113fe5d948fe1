package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/api/request"
	"stock-lot-tracker/internal/model"
)

// ValidTransactionType contains the allowed transaction type values.
var ValidTransactionType = map[string]bool{
	model.TypeBuy: true, model.TypeSell: true,
}

// ValidateCreateTransaction validates a transaction creation request.
//
// Required fields:
//   - instrument_ticker: non-empty
//   - kind: BUY or SELL
//   - date: YYYY-MM-DD
//   - quantity, price: positive
//
// A parent_buy_id is only allowed on SELL requests and must be a valid UUID.
// Returns a validation Error with field-specific messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Ticker) == "" {
		errors["instrument_ticker"] = "instrument_ticker is required"
	}

	validateType(req.Type, errors)
	validateDate(req.Date, errors)
	validateAmounts(req.Quantity, req.Price, errors)

	if req.ParentBuyID != nil {
		if req.Type == model.TypeBuy {
			errors["parent_buy_id"] = "a BUY cannot reference a parent lot"
		} else if err := ValidateUUID(*req.ParentBuyID); err != nil {
			errors["parent_buy_id"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateUpdateTransaction validates a transaction update request.
// The update is a full replacement, so the same positivity and date
// constraints apply as on create.
func ValidateUpdateTransaction(req request.UpdateTransactionRequest) error {
	errors := make(map[string]string)

	validateDate(req.Date, errors)
	validateAmounts(req.Quantity, req.Price, errors)

	if req.ParentBuyID != nil {
		if err := ValidateUUID(*req.ParentBuyID); err != nil {
			errors["parent_buy_id"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateBulkSell validates a bulk sell request. The quantity/lot-sum
// consistency check needs the lots themselves and happens in the service.
func ValidateBulkSell(req request.BulkSellRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Ticker) == "" {
		errors["instrument_ticker"] = "instrument_ticker is required"
	}

	validateDate(req.Date, errors)
	validateAmounts(req.Quantity, req.Price, errors)

	if len(req.SelectedBuyIDs) == 0 {
		errors["selected_buy_ids"] = "at least one buy lot must be selected"
	} else if err := ValidateUUIDs(req.SelectedBuyIDs); err != nil {
		errors["selected_buy_ids"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validateType(t string, errors map[string]string) {
	if strings.TrimSpace(t) == "" {
		errors["kind"] = "kind is required"
	} else if !ValidTransactionType[t] {
		errors["kind"] = fmt.Sprintf("invalid kind: %s", t)
	}
}

func validateDate(date string, errors map[string]string) {
	if strings.TrimSpace(date) == "" {
		errors["date"] = "date is required"
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		errors["date"] = err.Error()
	}
}

func validateAmounts(quantity, price decimal.Decimal, errors map[string]string) {
	if quantity.Sign() <= 0 {
		errors["quantity"] = "quantity must be positive"
	}
	if price.Sign() <= 0 {
		errors["price"] = "price must be positive"
	}
}
