package amqp

import (
	"testing"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

func TestNewTransactionMessage(t *testing.T) {
	createdAt := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	tx := core.Transaction{
		ID:          12345,
		ChildID:     7,
		Amount:      core.FromCents(2000),
		Type:        core.Allowance,
		Description: "Weekly allowance",
		CreatedAt:   createdAt,
	}

	msg := NewTransactionMessage(tx)

	if msg.ID != tx.ID || msg.ChildID != tx.ChildID {
		t.Errorf("NewTransactionMessage() ids = %d/%d, want %d/%d", msg.ID, msg.ChildID, tx.ID, tx.ChildID)
	}
	if msg.Type != "allowance" {
		t.Errorf("NewTransactionMessage() Type = %q, want %q", msg.Type, "allowance")
	}
	if msg.AmountCents != 2000 {
		t.Errorf("NewTransactionMessage() AmountCents = %d, want 2000", msg.AmountCents)
	}
	if !msg.OccurredAt.Equal(createdAt) {
		t.Errorf("NewTransactionMessage() OccurredAt = %v, want %v", msg.OccurredAt, createdAt)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewTransactionMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewTransactionMessage() Timestamp should be recent")
	}
}

func TestTransactionMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionMessage{
		ID:          12345,
		ChildID:     7,
		Type:        "deposit",
		AmountCents: 10000,
		Description: "birthday",
		OccurredAt:  timestamp,
		Timestamp:   timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := TransactionMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionMessageFromJSON() error = %v", err)
	}

	if parsedMsg.ID != msg.ID || parsedMsg.ChildID != msg.ChildID {
		t.Errorf("Parsed ids = %d/%d, want %d/%d", parsedMsg.ID, parsedMsg.ChildID, msg.ID, msg.ChildID)
	}
	if parsedMsg.Type != msg.Type || parsedMsg.AmountCents != msg.AmountCents {
		t.Errorf("Parsed type/amount = %q/%d, want %q/%d", parsedMsg.Type, parsedMsg.AmountCents, msg.Type, msg.AmountCents)
	}
	if !parsedMsg.OccurredAt.Equal(msg.OccurredAt) {
		t.Errorf("Parsed OccurredAt = %v, want %v", parsedMsg.OccurredAt, msg.OccurredAt)
	}
}

func TestTransactionMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"id": "not_a_number", "child_id": 1}`)

	if _, err := TransactionMessageFromJSON(invalidJSON); err == nil {
		t.Error("TransactionMessageFromJSON() should fail with invalid JSON")
	}
}
