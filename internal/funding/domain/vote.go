package domain

import (
	"time"

	apperrors "github.com/louisbranch/tranche.fund/internal/platform/errors"
)

// ErrAlreadyVoted indicates a contributor voting twice on the same milestone.
var ErrAlreadyVoted = apperrors.New(apperrors.CodeMilestoneAlreadyVoted, "contributor has already voted on this milestone")

// ApplyVote records one contributor's support or opposition on a milestone.
//
// Votes are unweighted: one contributor identity counts once regardless of
// contribution size. Tallies are recorded but inert; no status transition
// results from voting.
func ApplyVote(campaign Campaign, milestoneIndex int, voter string, support bool, now func() time.Time) (Campaign, error) {
	if now == nil {
		now = time.Now
	}

	if campaign.ContributionOf(voter) <= 0 {
		return Campaign{}, ErrUnauthorized
	}
	if milestoneIndex < 0 || milestoneIndex >= len(campaign.Milestones) {
		return Campaign{}, ErrInvalidMilestone
	}
	if campaign.Milestones[milestoneIndex].HasVoted(voter) {
		return Campaign{}, ErrAlreadyVoted
	}

	updated := campaign.Clone()
	milestone := &updated.Milestones[milestoneIndex]
	milestone.Voters[voter] = struct{}{}
	if support {
		milestone.VotesFor++
	} else {
		milestone.VotesAgainst++
	}
	updated.UpdatedAt = now().UTC()
	return updated, nil
}
