package amqp

import (
	"encoding/json"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

// TransactionMessage notifies downstream consumers that a ledger entry was
// committed. It carries the full row so consumers do not need database
// access.
type TransactionMessage struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionMessage builds a message from a committed transaction.
func NewTransactionMessage(tx core.Transaction) *TransactionMessage {
	return &TransactionMessage{
		ID:          tx.ID,
		ChildID:     tx.ChildID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		OccurredAt:  tx.CreatedAt,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON creates a message from JSON bytes.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
