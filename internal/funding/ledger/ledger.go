// Package ledger settles outbound transfers against an append-only journal.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/storage"
	"github.com/louisbranch/tranche.fund/internal/platform/id"
)

// Journal records settled transfers in a persistent journal. It implements
// the funding transfer port: a transfer that returns nil has been durably
// journaled and is considered settled.
type Journal struct {
	store storage.TransferJournalStore
	clock func() time.Time
	newID func() (string, error)
}

// NewJournal wires a transfer journal over the provided store.
func NewJournal(store storage.TransferJournalStore) *Journal {
	return &Journal{
		store: store,
		clock: func() time.Time { return time.Now().UTC() },
		newID: id.NewID,
	}
}

// WithClock overrides the journal clock, primarily for tests.
func (j *Journal) WithClock(clock func() time.Time) *Journal {
	if clock != nil {
		j.clock = clock
	}
	return j
}

// WithIDGenerator overrides the journal id generator, primarily for tests.
func (j *Journal) WithIDGenerator(newID func() (string, error)) *Journal {
	if newID != nil {
		j.newID = newID
	}
	return j
}

// Transfer journals one settled payout or refund to the recipient.
func (j *Journal) Transfer(ctx context.Context, to string, amount int64) error {
	if j == nil || j.store == nil {
		return fmt.Errorf("transfer journal is not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("transfer recipient is required")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be greater than zero")
	}

	transferID, err := j.newID()
	if err != nil {
		return fmt.Errorf("generate transfer id: %w", err)
	}
	record := storage.TransferRecord{
		ID:        transferID,
		Recipient: to,
		Amount:    amount,
		CreatedAt: j.clock(),
	}
	if err := j.store.AppendTransfer(ctx, record); err != nil {
		return fmt.Errorf("journal transfer: %w", err)
	}
	return nil
}

// History lists settled transfers for one recipient oldest-first.
func (j *Journal) History(ctx context.Context, recipient string, limit int) ([]storage.TransferRecord, error) {
	if j == nil || j.store == nil {
		return nil, fmt.Errorf("transfer journal is not configured")
	}
	return j.store.ListTransfersByRecipient(ctx, recipient, limit)
}
