package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
)

// CampaignStatus describes the lifecycle of a funding campaign.
type CampaignStatus int

const (
	// CampaignStatusUnspecified represents an invalid campaign status value.
	CampaignStatusUnspecified CampaignStatus = iota
	// CampaignStatusActive indicates the campaign is accepting contributions.
	CampaignStatusActive
	// CampaignStatusCompleted indicates every milestone has been released.
	CampaignStatusCompleted
	// CampaignStatusCancelled indicates the creator cancelled the campaign.
	CampaignStatusCancelled
)

var (
	// ErrCreatorRequired indicates a missing campaign creator identity.
	ErrCreatorRequired = apperrors.New(apperrors.CodeCampaignCreatorEmpty, "campaign creator is required")
	// ErrTitleRequired indicates a missing campaign title.
	ErrTitleRequired = apperrors.New(apperrors.CodeCampaignTitleEmpty, "campaign title is required")
	// ErrInvalidTarget indicates a non-positive target amount.
	ErrInvalidTarget = apperrors.New(apperrors.CodeCampaignInvalidTarget, "campaign target amount must be positive")
	// ErrDeadlineNotFuture indicates a funding deadline at or before creation time.
	ErrDeadlineNotFuture = apperrors.New(apperrors.CodeCampaignDeadlineNotFuture, "campaign funding deadline must be in the future")
	// ErrNoMilestones indicates an empty milestone plan.
	ErrNoMilestones = apperrors.New(apperrors.CodeCampaignNoMilestones, "campaign requires at least one milestone")
	// ErrMilestoneInvalidAmount indicates a non-positive milestone amount.
	ErrMilestoneInvalidAmount = apperrors.New(apperrors.CodeMilestoneInvalidAmount, "milestone amount must be positive")
	// ErrMilestoneDeadlineOutOfRange indicates a milestone deadline outside the allowed window.
	ErrMilestoneDeadlineOutOfRange = apperrors.New(apperrors.CodeMilestoneDeadlineOutOfRange, "milestone deadline must be in the future and at or before the funding deadline")
	// ErrMilestoneSumMismatch indicates milestone amounts that do not add up to the target.
	ErrMilestoneSumMismatch = apperrors.New(apperrors.CodeMilestoneAmountSumMismatch, "milestone amounts must sum to the campaign target")
	// ErrCampaignNotFound indicates the campaign id is unknown.
	ErrCampaignNotFound = apperrors.New(apperrors.CodeCampaignNotFound, "campaign not found")
	// ErrInvalidMilestone indicates a milestone index outside the campaign plan.
	ErrInvalidMilestone = apperrors.New(apperrors.CodeInvalidMilestone, "milestone index is out of range")
	// ErrCampaignNotActive indicates an operation that requires an active campaign.
	ErrCampaignNotActive = apperrors.New(apperrors.CodeCampaignNotActive, "campaign is not active")
	// ErrUnauthorized indicates the caller lacks the required role.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "caller is not authorized for this operation")
)

// Campaign is the funding aggregate: ledger, milestone plan, and status.
//
// A campaign exclusively owns its milestones and contribution ledger.
// RaisedAmount always equals the sum of recorded contributions, and the sum
// of milestone amounts always equals TargetAmount.
type Campaign struct {
	// ID is the dense store-assigned campaign identifier, never reused.
	ID      int64
	Creator string
	Title   string
	// Description is opaque text describing the campaign.
	Description  string
	TargetAmount int64
	RaisedAmount int64
	// FundingDeadline is the instant after which contributions are rejected.
	FundingDeadline time.Time
	Status          CampaignStatus
	// Milestones is the ordered tranche plan, fixed at creation.
	Milestones []Milestone
	// Contributions maps contributor identity to cumulative contributed amount.
	// Refunded contributors remain present with a zero amount.
	Contributions map[string]int64
	// Contributors preserves first-contribution order for enumeration.
	Contributors []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MilestoneSpec describes one tranche of the campaign plan at creation time.
type MilestoneSpec struct {
	Description string
	Amount      int64
	Deadline    time.Time
}

// CreateCampaignInput describes the data needed to create a campaign.
type CreateCampaignInput struct {
	Creator         string
	Title           string
	Description     string
	TargetAmount    int64
	FundingDeadline time.Time
	Milestones      []MilestoneSpec
}

// CreateCampaign validates input and builds a new active campaign with all
// milestones pending. The store assigns the campaign ID on persistence.
func CreateCampaign(input CreateCampaignInput, now func() time.Time) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()

	input.Creator = strings.TrimSpace(input.Creator)
	input.Title = strings.TrimSpace(input.Title)
	if input.Creator == "" {
		return Campaign{}, ErrCreatorRequired
	}
	if input.Title == "" {
		return Campaign{}, ErrTitleRequired
	}
	if input.TargetAmount <= 0 {
		return Campaign{}, ErrInvalidTarget
	}
	if !input.FundingDeadline.After(createdAt) {
		return Campaign{}, ErrDeadlineNotFuture
	}
	if len(input.Milestones) == 0 {
		return Campaign{}, ErrNoMilestones
	}

	milestones := make([]Milestone, 0, len(input.Milestones))
	var amountSum int64
	for i, spec := range input.Milestones {
		if spec.Amount <= 0 {
			return Campaign{}, milestoneSpecError(ErrMilestoneInvalidAmount, i)
		}
		if !spec.Deadline.After(createdAt) || spec.Deadline.After(input.FundingDeadline) {
			return Campaign{}, milestoneSpecError(ErrMilestoneDeadlineOutOfRange, i)
		}
		// Subtraction form so a plan of huge amounts cannot wrap the sum.
		if spec.Amount > input.TargetAmount-amountSum {
			return Campaign{}, ErrMilestoneSumMismatch
		}
		amountSum += spec.Amount
		milestones = append(milestones, Milestone{
			Description: strings.TrimSpace(spec.Description),
			Amount:      spec.Amount,
			Deadline:    spec.Deadline.UTC(),
			Status:      MilestoneStatusPending,
			Voters:      map[string]struct{}{},
		})
	}
	if amountSum != input.TargetAmount {
		return Campaign{}, ErrMilestoneSumMismatch
	}

	return Campaign{
		Creator:         input.Creator,
		Title:           input.Title,
		Description:     input.Description,
		TargetAmount:    input.TargetAmount,
		FundingDeadline: input.FundingDeadline.UTC(),
		Status:          CampaignStatusActive,
		Milestones:      milestones,
		Contributions:   map[string]int64{},
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// FullyFunded reports whether the campaign reached its target.
func (c Campaign) FullyFunded() bool {
	return c.RaisedAmount == c.TargetAmount
}

// ContributionOf returns a contributor's cumulative recorded amount.
// Absence means zero: validation forbids zero-amount contributions, so a
// zero amount only occurs for unknown or fully refunded contributors.
func (c Campaign) ContributionOf(contributor string) int64 {
	return c.Contributions[contributor]
}

// Clone returns a deep copy of the campaign aggregate.
func (c Campaign) Clone() Campaign {
	cloned := c
	cloned.Milestones = make([]Milestone, len(c.Milestones))
	for i, milestone := range c.Milestones {
		cloned.Milestones[i] = milestone.clone()
	}
	cloned.Contributions = make(map[string]int64, len(c.Contributions))
	for contributor, amount := range c.Contributions {
		cloned.Contributions[contributor] = amount
	}
	cloned.Contributors = append([]string(nil), c.Contributors...)
	return cloned
}

// CampaignStatusLabel returns a stable label for a campaign status.
func CampaignStatusLabel(status CampaignStatus) string {
	switch status {
	case CampaignStatusActive:
		return "ACTIVE"
	case CampaignStatusCompleted:
		return "COMPLETED"
	case CampaignStatusCancelled:
		return "CANCELLED"
	default:
		return "UNSPECIFIED"
	}
}

// CampaignStatusFromLabel parses a stable campaign status label.
func CampaignStatusFromLabel(label string) CampaignStatus {
	switch label {
	case "ACTIVE":
		return CampaignStatusActive
	case "COMPLETED":
		return CampaignStatusCompleted
	case "CANCELLED":
		return CampaignStatusCancelled
	default:
		return CampaignStatusUnspecified
	}
}

func milestoneSpecError(base *apperrors.Error, index int) error {
	return apperrors.WithMetadata(
		base.Code,
		fmt.Sprintf("%s: milestone %d", base.Message, index),
		map[string]string{"MilestoneIndex": fmt.Sprintf("%d", index)},
	)
}
