package statement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/amqp"
)

// Worker turns consumed transaction messages into statement rows.
type Worker struct {
	appender RowAppender
}

func NewWorker(appender RowAppender) *Worker {
	return &Worker{appender: appender}
}

// HandleTransactionMessage appends one consumed transaction to the statement.
// Errors propagate to the consumer so the message is redelivered.
func (w *Worker) HandleTransactionMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing transaction message",
		"id", msg.ID,
		"child_id", msg.ChildID,
		"type", msg.Type)

	row := Row{
		TransactionID: msg.ID,
		ChildID:       msg.ChildID,
		Type:          msg.Type,
		AmountCents:   msg.AmountCents,
		Description:   msg.Description,
		OccurredAt:    msg.OccurredAt,
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append statement row: %w", err)
	}

	slog.InfoContext(ctx, "Statement row appended",
		"id", msg.ID,
		"sheets_ref", ref,
		"amount_cents", msg.AmountCents)

	return nil
}
