package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/event"
	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
	"github.com/louisbranch/tranche.fund/internal/platform/id"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("campaign store is not configured")
	// ErrTransferPortNotConfigured indicates the service is missing the settlement port.
	ErrTransferPortNotConfigured = errors.New("transfer port is not configured")
	// ErrIDGeneratorExhausted indicates a fixed test ID sequence was exhausted.
	ErrIDGeneratorExhausted = errors.New("event id generator exhausted")
)

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Store is the domain persistence boundary for campaign lifecycle behavior.
//
// Writes are transactional: the campaign aggregate and the events describing
// the change are persisted together or not at all. CreateCampaign assigns the
// next dense campaign id and stamps it onto the stored events.
type Store interface {
	CreateCampaign(ctx context.Context, campaign Campaign, events []event.Event) (int64, error)
	GetCampaign(ctx context.Context, campaignID int64) (Campaign, error)
	PutCampaign(ctx context.Context, campaign Campaign, events []event.Event) error
	ListCampaigns(ctx context.Context, pageSize int, pageToken string) (CampaignPage, error)
}

// CampaignPage is a paged newest-first campaign listing.
type CampaignPage struct {
	Campaigns     []Campaign
	NextPageToken string
}

// TransferPort is the external settlement boundary. Transfers are atomic and
// synchronous: they either fully succeed or fail with no partial effects.
// This layer never retries them.
type TransferPort interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// ListCampaignsInput configures campaign listing.
type ListCampaignsInput struct {
	PageSize  int
	PageToken string
}

// Service orchestrates the campaign/milestone state machine and ledger.
//
// Every mutating operation is serialized per campaign and behaves as an
// atomic transaction: a failure leaves state exactly as it was before the
// call. The single outbound transfer embedded in release and refund settles
// before any state is committed, so a failed transfer changes nothing.
type Service struct {
	store      Store
	transfers  TransferPort
	clock      func() time.Time
	newEventID func() (string, error)

	mu            sync.Mutex
	campaignLocks map[int64]*sync.Mutex
}

// NewService constructs funding domain use-cases.
func NewService(store Store, transfers TransferPort, clock func() time.Time, newEventID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newEventID == nil {
		newEventID = id.NewID
	}
	return &Service{
		store:         store,
		transfers:     transfers,
		clock:         clock,
		newEventID:    newEventID,
		campaignLocks: map[int64]*sync.Mutex{},
	}
}

// CreateCampaign validates and persists a new campaign with a fresh dense id.
func (s *Service) CreateCampaign(ctx context.Context, input CreateCampaignInput) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}

	campaign, err := CreateCampaign(input, s.clock)
	if err != nil {
		return Campaign{}, err
	}

	created, err := s.newEvent(event.TypeCampaignCreated, campaign.CreatedAt, event.Payload{
		Creator:      campaign.Creator,
		Title:        campaign.Title,
		TargetAmount: campaign.TargetAmount,
	})
	if err != nil {
		return Campaign{}, err
	}

	campaignID, err := s.store.CreateCampaign(ctx, campaign, []event.Event{created})
	if err != nil {
		return Campaign{}, fmt.Errorf("persist campaign: %w", err)
	}
	campaign.ID = campaignID
	return campaign, nil
}

// GetCampaign returns a point-in-time campaign snapshot.
func (s *Service) GetCampaign(ctx context.Context, campaignID int64) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}
	return s.store.GetCampaign(ctx, campaignID)
}

// GetMilestone returns one milestone snapshot by campaign id and index.
func (s *Service) GetMilestone(ctx context.Context, campaignID int64, milestoneIndex int) (Milestone, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return Milestone{}, err
	}
	if milestoneIndex < 0 || milestoneIndex >= len(campaign.Milestones) {
		return Milestone{}, ErrInvalidMilestone
	}
	return campaign.Milestones[milestoneIndex], nil
}

// GetContribution returns a contributor's cumulative contributed amount.
func (s *Service) GetContribution(ctx context.Context, campaignID int64, contributor string) (int64, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	return campaign.ContributionOf(contributor), nil
}

// ListCampaigns lists campaigns newest-first with opaque page tokens.
func (s *Service) ListCampaigns(ctx context.Context, input ListCampaignsInput) (CampaignPage, error) {
	if s == nil || s.store == nil {
		return CampaignPage{}, ErrStoreNotConfigured
	}
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}
	return s.store.ListCampaigns(ctx, pageSize, input.PageToken)
}

// Contribute records a contribution against an active campaign.
func (s *Service) Contribute(ctx context.Context, campaignID int64, contributor string, amount int64) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}
	unlock := s.lockCampaign(campaignID)
	defer unlock()

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	updated, err := ApplyContribution(campaign, contributor, amount, s.clock)
	if err != nil {
		return Campaign{}, err
	}

	made, err := s.newEvent(event.TypeContributionMade, updated.UpdatedAt, event.Payload{
		Contributor: contributor,
		Amount:      amount,
	})
	if err != nil {
		return Campaign{}, err
	}
	made.CampaignID = campaignID
	if err := s.store.PutCampaign(ctx, updated, []event.Event{made}); err != nil {
		return Campaign{}, fmt.Errorf("persist contribution: %w", err)
	}
	return updated, nil
}

// ReleaseMilestone pays one validated tranche to the creator and marks it
// completed. The transfer settles first; the status flip is the finalizing
// step, so a failed transfer leaves the milestone pending and the ledger
// untouched.
func (s *Service) ReleaseMilestone(ctx context.Context, campaignID int64, milestoneIndex int, caller string) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}
	if s.transfers == nil {
		return Campaign{}, ErrTransferPortNotConfigured
	}
	unlock := s.lockCampaign(campaignID)
	defer unlock()

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	if err := ValidateRelease(campaign, milestoneIndex, caller, s.clock); err != nil {
		return Campaign{}, err
	}

	amount := campaign.Milestones[milestoneIndex].Amount
	if err := s.transfers.Transfer(ctx, campaign.Creator, amount); err != nil {
		return Campaign{}, apperrors.Wrap(apperrors.CodeTransferFailed, "milestone transfer failed", err)
	}

	updated := CompleteMilestone(campaign, milestoneIndex, s.clock)

	completed, err := s.newEvent(event.TypeMilestoneCompleted, updated.UpdatedAt, event.Payload{
		MilestoneIndex: event.Index(milestoneIndex),
	})
	if err != nil {
		return Campaign{}, err
	}
	released, err := s.newEvent(event.TypeFundsReleased, updated.UpdatedAt, event.Payload{
		MilestoneIndex: event.Index(milestoneIndex),
		Amount:         amount,
	})
	if err != nil {
		return Campaign{}, err
	}
	completed.CampaignID = campaignID
	released.CampaignID = campaignID
	if err := s.store.PutCampaign(ctx, updated, []event.Event{completed, released}); err != nil {
		return Campaign{}, fmt.Errorf("persist milestone release: %w", err)
	}
	return updated, nil
}

// VoteMilestone records one contributor vote on a milestone.
func (s *Service) VoteMilestone(ctx context.Context, campaignID int64, milestoneIndex int, voter string, support bool) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}
	unlock := s.lockCampaign(campaignID)
	defer unlock()

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	updated, err := ApplyVote(campaign, milestoneIndex, voter, support, s.clock)
	if err != nil {
		return Campaign{}, err
	}
	if err := s.store.PutCampaign(ctx, updated, nil); err != nil {
		return Campaign{}, fmt.Errorf("persist milestone vote: %w", err)
	}
	return updated, nil
}

// CancelCampaign transitions an active campaign to the terminal cancelled state.
func (s *Service) CancelCampaign(ctx context.Context, campaignID int64, caller string) (Campaign, error) {
	if s == nil || s.store == nil {
		return Campaign{}, ErrStoreNotConfigured
	}
	unlock := s.lockCampaign(campaignID)
	defer unlock()

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	updated, err := ApplyCancel(campaign, caller, s.clock)
	if err != nil {
		return Campaign{}, err
	}

	cancelled, err := s.newEvent(event.TypeCampaignCancelled, updated.UpdatedAt, event.Payload{})
	if err != nil {
		return Campaign{}, err
	}
	cancelled.CampaignID = campaignID
	if err := s.store.PutCampaign(ctx, updated, []event.Event{cancelled}); err != nil {
		return Campaign{}, fmt.Errorf("persist campaign cancellation: %w", err)
	}
	return updated, nil
}

// ClaimRefund pays back one contributor's recorded contribution exactly once.
// The transfer settles first; zeroing the contribution is the finalizing
// step, so a failed transfer leaves the ledger untouched.
func (s *Service) ClaimRefund(ctx context.Context, campaignID int64, caller string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	if s.transfers == nil {
		return 0, ErrTransferPortNotConfigured
	}
	unlock := s.lockCampaign(campaignID)
	defer unlock()

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	amount, err := ValidateRefund(campaign, caller, s.clock)
	if err != nil {
		return 0, err
	}

	if err := s.transfers.Transfer(ctx, caller, amount); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeTransferFailed, "refund transfer failed", err)
	}

	updated := ApplyRefund(campaign, caller, s.clock)

	issued, err := s.newEvent(event.TypeRefundIssued, updated.UpdatedAt, event.Payload{
		Contributor: caller,
		Amount:      amount,
	})
	if err != nil {
		return 0, err
	}
	issued.CampaignID = campaignID
	if err := s.store.PutCampaign(ctx, updated, []event.Event{issued}); err != nil {
		return 0, fmt.Errorf("persist refund: %w", err)
	}
	return amount, nil
}

// lockCampaign serializes mutating operations against one campaign.
func (s *Service) lockCampaign(campaignID int64) func() {
	s.mu.Lock()
	lock, ok := s.campaignLocks[campaignID]
	if !ok {
		lock = &sync.Mutex{}
		s.campaignLocks[campaignID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *Service) newEvent(eventType event.Type, occurredAt time.Time, payload event.Payload) (event.Event, error) {
	eventID, err := s.newEventID()
	if err != nil {
		return event.Event{}, fmt.Errorf("generate event id: %w", err)
	}
	return event.Event{
		ID:         eventID,
		Type:       eventType,
		Payload:    payload,
		OccurredAt: occurredAt,
	}, nil
}
