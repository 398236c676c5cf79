package domain

import (
	"time"

	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
)

var (
	// ErrZeroAmount indicates a non-positive contribution amount.
	ErrZeroAmount = apperrors.New(apperrors.CodeContributionZeroAmount, "contribution amount must be positive")
	// ErrDeadlinePassed indicates a contribution after the funding deadline.
	ErrDeadlinePassed = apperrors.New(apperrors.CodeContributionPastDeadline, "campaign funding deadline has passed")
	// ErrExceedsTarget indicates a contribution that would overshoot the target.
	ErrExceedsTarget = apperrors.New(apperrors.CodeContributionExceedsTarget, "contribution would exceed the campaign target")
)

// ApplyContribution records a contribution against an active campaign and
// returns the updated aggregate. A contribution that would push the raised
// amount past the target is rejected in full; there is no partial acceptance.
func ApplyContribution(campaign Campaign, contributor string, amount int64, now func() time.Time) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	at := now().UTC()

	if campaign.Status != CampaignStatusActive {
		return Campaign{}, ErrCampaignNotActive
	}
	if amount <= 0 {
		return Campaign{}, ErrZeroAmount
	}
	if at.After(campaign.FundingDeadline) {
		return Campaign{}, ErrDeadlinePassed
	}
	// Subtraction form so a huge amount cannot wrap past the target.
	if amount > campaign.TargetAmount-campaign.RaisedAmount {
		return Campaign{}, ErrExceedsTarget
	}

	updated := campaign.Clone()
	if _, seen := updated.Contributions[contributor]; !seen {
		updated.Contributors = append(updated.Contributors, contributor)
	}
	updated.Contributions[contributor] += amount
	updated.RaisedAmount += amount
	updated.UpdatedAt = at
	return updated, nil
}
