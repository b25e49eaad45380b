// Package statement exports committed transactions to an external statement
// sheet that parents can read.
package statement

import (
	"context"
	"time"
)

// Row is one statement line derived from a committed transaction.
type Row struct {
	TransactionID int64
	ChildID       int64
	Type          string
	AmountCents   int64
	Description   string
	OccurredAt    time.Time
}

// RowAppender appends statement rows to an external sink. Implementations
// return an opaque reference to the written row.
type RowAppender interface {
	Append(ctx context.Context, row Row) (ref string, err error)
}
