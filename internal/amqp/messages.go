package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEventMessage announces that the ledger changed. It carries no ledger
// data; consumers read the current state themselves.
type LedgerEventMessage struct {
	Operation     string    `json:"operation"`
	TransactionID string    `json:"transaction_id,omitempty"`
	LedgerSize    int       `json:"ledger_size"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event stamped with the current time.
func NewLedgerEventMessage(op, transactionID string, ledgerSize int) *LedgerEventMessage {
	return &LedgerEventMessage{
		Operation:     op,
		TransactionID: transactionID,
		LedgerSize:    ledgerSize,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
