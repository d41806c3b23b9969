package domain

import (
	"github.com/shopspring/decimal"
)

// EventKind classifies a wallet's token flow events.
type EventKind string

const (
	EventAcquisition EventKind = "ACQUISITION" // buy on a tracked venue
	EventDisposal    EventKind = "DISPOSAL"    // sell
	EventTransferIn  EventKind = "TRANSFER_IN"
	EventTransferOut EventKind = "TRANSFER_OUT"
)

// AcquisitionEvent is one historical token flow event for a wallet.
// Read-only input to the cost-basis estimator; never mutated.
// Corresponds to acquisition_events table in PostgreSQL.
type AcquisitionEvent struct {
	Wallet      string
	Kind        EventKind
	TimestampMs int64           // Unix timestamp in milliseconds
	Quantity    decimal.Decimal // token quantity, > 0 for qualifying buys
	UnitPrice   decimal.Decimal // price per token, >= 0
	TxSignature string          // source transaction, dedup key with event index
	EventIndex  int
}

// IsQualifyingBuy reports whether the event feeds the VWAP: an
// acquisition with strictly positive quantity.
func (e *AcquisitionEvent) IsQualifyingBuy() bool {
	return e.Kind == EventAcquisition && e.Quantity.IsPositive()
}
