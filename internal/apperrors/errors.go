package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInstrumentNotFound indicates that an instrument lookup returned no results.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrParentLotNotFound indicates that the BUY lot referenced as parent does not exist.
	ErrParentLotNotFound = errors.New("parent buy lot not found")

	// ErrBatchNotFound indicates that a batch with the given ID does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrTokenNotFound indicates that no broker access token has been persisted yet.
	ErrTokenNotFound = errors.New("broker access token not found")
)

// Business logic errors represent constraint violations the ledger must
// reject to keep the open/closed linkage consistent.
var (
	// ErrLotAlreadyClosed indicates a SELL tried to close a BUY lot that is
	// no longer open, typically because a concurrent request closed it first.
	ErrLotAlreadyClosed = errors.New("buy lot already closed")

	// ErrLotNotBuy indicates the referenced parent transaction is not a BUY.
	ErrLotNotBuy = errors.New("parent transaction is not a buy lot")

	// ErrInstrumentMismatch indicates a SELL referenced a parent lot on a
	// different instrument.
	ErrInstrumentMismatch = errors.New("parent lot is for a different instrument")

	// ErrLotInUse indicates a BUY lot cannot be deleted because an active
	// SELL still claims it.
	ErrLotInUse = errors.New("buy lot is claimed by a sell transaction")

	// ErrQuantityMismatch indicates a bulk sell's quantity does not equal
	// the sum of the selected lots' quantities.
	ErrQuantityMismatch = errors.New("sell quantity does not match selected lots")

	// ErrDuplicateOrder indicates a transaction with the same external
	// broker order ID already exists.
	ErrDuplicateOrder = errors.New("broker order already recorded")
)

// Broker errors represent failures talking to Zerodha.
var (
	// ErrBrokerDisconnected indicates no valid access token is loaded; the
	// user must complete the login flow before live data is available.
	ErrBrokerDisconnected = errors.New("zerodha session disconnected")

	// ErrBrokerUnavailable indicates the broker API call itself failed.
	ErrBrokerUnavailable = errors.New("zerodha api request failed")
)
