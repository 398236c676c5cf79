package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/storage"
)

type fakeJournalStore struct {
	mu        sync.Mutex
	transfers []storage.TransferRecord
	appendErr error
}

func (s *fakeJournalStore) AppendTransfer(_ context.Context, record storage.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.transfers = append(s.transfers, record)
	return nil
}

func (s *fakeJournalStore) ListTransfersByRecipient(_ context.Context, recipient string, limit int) ([]storage.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]storage.TransferRecord, 0, limit)
	for _, transfer := range s.transfers {
		if transfer.Recipient != recipient {
			continue
		}
		matched = append(matched, transfer)
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func TestTransfer_JournalsSettledTransfer(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	store := &fakeJournalStore{}
	journal := NewJournal(store).
		WithClock(func() time.Time { return now }).
		WithIDGenerator(func() (string, error) { return "tr-1", nil })

	if err := journal.Transfer(context.Background(), "alice", 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if len(store.transfers) != 1 {
		t.Fatalf("journaled transfers = %d, want 1", len(store.transfers))
	}
	got := store.transfers[0]
	if got.ID != "tr-1" || got.Recipient != "alice" || got.Amount != 400 {
		t.Fatalf("journaled transfer = %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, now)
	}
}

func TestTransfer_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := &fakeJournalStore{}
	journal := NewJournal(store)

	if err := journal.Transfer(context.Background(), "  ", 100); err == nil {
		t.Fatal("expected missing recipient error")
	}
	if err := journal.Transfer(context.Background(), "alice", 0); err == nil {
		t.Fatal("expected zero amount error")
	}
	if err := journal.Transfer(context.Background(), "alice", -5); err == nil {
		t.Fatal("expected negative amount error")
	}
	if len(store.transfers) != 0 {
		t.Fatalf("journaled transfers = %d, want 0", len(store.transfers))
	}
}

func TestTransfer_PropagatesJournalFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk full")
	journal := NewJournal(&fakeJournalStore{appendErr: storeErr})

	err := journal.Transfer(context.Background(), "alice", 100)
	if !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want wrapped %v", err, storeErr)
	}
}

func TestHistory_ListsRecipientTransfers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	store := &fakeJournalStore{}
	ids := []string{"tr-1", "tr-2", "tr-3"}
	index := 0
	journal := NewJournal(store).
		WithClock(func() time.Time { return now }).
		WithIDGenerator(func() (string, error) {
			value := ids[index]
			index++
			return value, nil
		})

	for _, transfer := range []struct {
		to     string
		amount int64
	}{
		{"alice", 400},
		{"bob", 300},
		{"alice", 600},
	} {
		if err := journal.Transfer(context.Background(), transfer.to, transfer.amount); err != nil {
			t.Fatalf("transfer to %s: %v", transfer.to, err)
		}
	}

	history, err := journal.History(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("alice history = %d, want 2", len(history))
	}
	if history[0].Amount != 400 || history[1].Amount != 600 {
		t.Fatalf("alice history order = %+v", history)
	}
}
