// Package storage defines the persistence boundary for funding state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// CampaignRecord stores one campaign aggregate row with its owned children.
type CampaignRecord struct {
	ID              int64
	Creator         string
	Title           string
	Description     string
	TargetAmount    int64
	RaisedAmount    int64
	FundingDeadline time.Time
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Milestones      []MilestoneRecord
	Contributions   []ContributionRecord
}

// MilestoneRecord stores one tranche row, keyed by campaign id and index.
type MilestoneRecord struct {
	CampaignID   int64
	Index        int
	Description  string
	Amount       int64
	Deadline     time.Time
	Status       string
	VotesFor     int
	VotesAgainst int
	Voters       []string
	CompletedAt  *time.Time
}

// ContributionRecord stores one contributor ledger row. Position preserves
// first-contribution order; refunded rows keep their position with Amount 0.
type ContributionRecord struct {
	CampaignID  int64
	Contributor string
	Amount      int64
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RefundedAt  *time.Time
}

// EventRecord stores one append-only funding notification event.
type EventRecord struct {
	ID           string
	CampaignID   int64
	Type         string
	PayloadJSON  string
	OccurredAt   time.Time
	DispatchedAt *time.Time
	AttemptCount int
	LastError    string
}

// TransferRecord stores one settled transfer journal row.
type TransferRecord struct {
	ID        string
	Recipient string
	Amount    int64
	CreatedAt time.Time
}

// CampaignPage stores a paged newest-first campaign listing result.
type CampaignPage struct {
	Campaigns     []CampaignRecord
	NextPageToken string
}

// CampaignStore persists campaign aggregates. Writes are transactional: the
// aggregate and the events describing the change commit together or not at
// all. CreateCampaign assigns the next dense campaign id (0, 1, 2, ...) and
// stamps it onto the provided events.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, record CampaignRecord, events []EventRecord) (int64, error)
	GetCampaign(ctx context.Context, campaignID int64) (CampaignRecord, error)
	PutCampaign(ctx context.Context, record CampaignRecord, events []EventRecord) error
	ListCampaigns(ctx context.Context, pageSize int, pageToken string) (CampaignPage, error)
}

// EventStore persists and drains append-only funding events.
type EventStore interface {
	ListUndispatchedEvents(ctx context.Context, limit int) ([]EventRecord, error)
	MarkEventDispatched(ctx context.Context, eventID string, dispatchedAt time.Time) error
	MarkEventDispatchFailed(ctx context.Context, eventID string, lastError string) error
	ListEventsByCampaign(ctx context.Context, campaignID int64, limit int) ([]EventRecord, error)
}

// TransferJournalStore persists settled transfers for the journal ledger.
type TransferJournalStore interface {
	AppendTransfer(ctx context.Context, record TransferRecord) error
	ListTransfersByRecipient(ctx context.Context, recipient string, limit int) ([]TransferRecord, error)
}
