package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetledger/internal/ledger"
)

// LedgerEventMessage announces one committed ledger mutation. It carries
// only identifiers; consumers read the ledger for current state.
type LedgerEventMessage struct {
	MessageID     string           `json:"messageId"`
	Kind          ledger.EventKind `json:"kind"`
	TransactionID string           `json:"transactionId,omitempty"`
	VehicleID     string           `json:"vehicleId"`
	Month         string           `json:"month,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &LedgerEventMessage{
		MessageID:     uuid.NewString(),
		Kind:          ev.Kind,
		TransactionID: ev.TransactionID,
		VehicleID:     ev.VehicleID,
		Month:         ev.Month,
		Timestamp:     ts,
	}
}

// Event returns the ledger event carried by the message.
func (m *LedgerEventMessage) Event() ledger.Event {
	return ledger.Event{
		Kind:          m.Kind,
		TransactionID: m.TransactionID,
		VehicleID:     m.VehicleID,
		Month:         m.Month,
		Timestamp:     m.Timestamp,
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and sanity-checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case ledger.EventTransactionCreated, ledger.EventTransactionUpdated,
		ledger.EventTransactionDeleted, ledger.EventVehicleDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.VehicleID == "" {
		return nil, errors.New("event without vehicle id")
	}
	return &msg, nil
}
