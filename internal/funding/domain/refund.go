package domain

import (
	"time"

	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
)

var (
	// ErrNoContribution indicates a refund claim without a recorded contribution.
	ErrNoContribution = apperrors.New(apperrors.CodeNoContribution, "caller has no recorded contribution")
	// ErrRefundNotAvailable indicates the campaign is not in a refundable state.
	ErrRefundNotAvailable = apperrors.New(apperrors.CodeRefundNotAvailable, "campaign is not refundable")
)

// ApplyCancel transitions an active campaign to the terminal cancelled state.
// No funds move at cancellation time; contributors claim refunds individually.
func ApplyCancel(campaign Campaign, caller string, now func() time.Time) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if caller != campaign.Creator {
		return Campaign{}, ErrUnauthorized
	}
	if campaign.Status != CampaignStatusActive {
		return Campaign{}, ErrCampaignNotActive
	}

	updated := campaign.Clone()
	updated.Status = CampaignStatusCancelled
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// ValidateRefund checks refund eligibility and returns the refundable amount.
// A campaign refunds only when cancelled, or past its funding deadline while
// short of the target. Fully funded or completed campaigns never refund.
func ValidateRefund(campaign Campaign, caller string, now func() time.Time) (int64, error) {
	if now == nil {
		now = time.Now
	}

	amount := campaign.ContributionOf(caller)
	if amount <= 0 {
		return 0, ErrNoContribution
	}

	cancelled := campaign.Status == CampaignStatusCancelled
	failed := campaign.Status == CampaignStatusActive &&
		now().UTC().After(campaign.FundingDeadline) &&
		campaign.RaisedAmount < campaign.TargetAmount
	if !cancelled && !failed {
		return 0, ErrRefundNotAvailable
	}
	return amount, nil
}

// ApplyRefund zeroes a contributor's recorded contribution after the paired
// transfer has settled. The contributor stays in the enumeration list; the
// zero amount makes a second claim fail with no contribution.
func ApplyRefund(campaign Campaign, caller string, now func() time.Time) Campaign {
	if now == nil {
		now = time.Now
	}

	updated := campaign.Clone()
	updated.RaisedAmount -= updated.Contributions[caller]
	updated.Contributions[caller] = 0
	updated.UpdatedAt = now().UTC()
	return updated
}
