package domain

import (
	"time"

	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
)

var (
	// ErrNotFullyFunded indicates a release attempt before the target was reached.
	ErrNotFullyFunded = apperrors.New(apperrors.CodeCampaignNotFullyFunded, "campaign is not fully funded")
	// ErrMilestoneNotPending indicates the milestone was already released or disputed.
	ErrMilestoneNotPending = apperrors.New(apperrors.CodeMilestoneNotPending, "milestone is not pending")
	// ErrMilestoneDeadlinePassed indicates a release attempt after the milestone deadline.
	ErrMilestoneDeadlinePassed = apperrors.New(apperrors.CodeMilestoneDeadlinePassed, "milestone deadline has passed")
	// ErrPriorMilestoneIncomplete indicates an out-of-order release attempt.
	ErrPriorMilestoneIncomplete = apperrors.New(apperrors.CodePriorMilestoneIncomplete, "prior milestone is not completed")
)

// ValidateRelease checks every release precondition without mutating state.
// Release is creator-gated and deadline-gated only: recorded vote tallies are
// not consulted.
func ValidateRelease(campaign Campaign, milestoneIndex int, caller string, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	if caller != campaign.Creator {
		return ErrUnauthorized
	}
	if campaign.Status != CampaignStatusActive {
		return ErrCampaignNotActive
	}
	if milestoneIndex < 0 || milestoneIndex >= len(campaign.Milestones) {
		return ErrInvalidMilestone
	}
	if !campaign.FullyFunded() {
		return ErrNotFullyFunded
	}
	milestone := campaign.Milestones[milestoneIndex]
	if milestone.Status != MilestoneStatusPending {
		return ErrMilestoneNotPending
	}
	if now().UTC().After(milestone.Deadline) {
		return ErrMilestoneDeadlinePassed
	}
	if milestoneIndex > 0 && campaign.Milestones[milestoneIndex-1].Status != MilestoneStatusCompleted {
		return ErrPriorMilestoneIncomplete
	}
	return nil
}

// CompleteMilestone marks a validated milestone as completed and, when it was
// the last pending tranche, completes the campaign. Callers must have settled
// the tranche transfer first: this is the finalizing step of a release.
func CompleteMilestone(campaign Campaign, milestoneIndex int, now func() time.Time) Campaign {
	if now == nil {
		now = time.Now
	}
	at := now().UTC()

	updated := campaign.Clone()
	updated.Milestones[milestoneIndex].Status = MilestoneStatusCompleted
	updated.Milestones[milestoneIndex].CompletedAt = &at
	updated.UpdatedAt = at

	for _, milestone := range updated.Milestones {
		if milestone.Status != MilestoneStatusCompleted {
			return updated
		}
	}
	updated.Status = CampaignStatusCompleted
	return updated
}
