package domain

import "time"

// MilestoneStatus describes the lifecycle of one campaign tranche.
type MilestoneStatus int

const (
	// MilestoneStatusUnspecified represents an invalid milestone status value.
	MilestoneStatusUnspecified MilestoneStatus = iota
	// MilestoneStatusPending indicates the tranche has not been released.
	MilestoneStatusPending
	// MilestoneStatusCompleted indicates the tranche was paid to the creator.
	MilestoneStatusCompleted
	// MilestoneStatusDisputed is reserved for the dispute path. No core
	// operation produces it.
	MilestoneStatusDisputed
)

// Milestone is one tranche of a campaign's target amount, identified by its
// position in the campaign plan. Statuses move Pending -> Completed strictly
// in index order and never revert.
type Milestone struct {
	Description string
	Amount      int64
	// Deadline is the instant after which the tranche can no longer be
	// released. It is always at or before the campaign funding deadline.
	Deadline     time.Time
	Status       MilestoneStatus
	VotesFor     int
	VotesAgainst int
	// Voters is the set of contributor identities that have voted on this
	// milestone. Each contributor votes at most once, ever.
	Voters      map[string]struct{}
	CompletedAt *time.Time
}

// HasVoted reports whether a contributor already voted on this milestone.
func (m Milestone) HasVoted(contributor string) bool {
	_, voted := m.Voters[contributor]
	return voted
}

func (m Milestone) clone() Milestone {
	cloned := m
	cloned.Voters = make(map[string]struct{}, len(m.Voters))
	for voter := range m.Voters {
		cloned.Voters[voter] = struct{}{}
	}
	if m.CompletedAt != nil {
		completedAt := *m.CompletedAt
		cloned.CompletedAt = &completedAt
	}
	return cloned
}

// MilestoneStatusLabel returns a stable label for a milestone status.
func MilestoneStatusLabel(status MilestoneStatus) string {
	switch status {
	case MilestoneStatusPending:
		return "PENDING"
	case MilestoneStatusCompleted:
		return "COMPLETED"
	case MilestoneStatusDisputed:
		return "DISPUTED"
	default:
		return "UNSPECIFIED"
	}
}

// MilestoneStatusFromLabel parses a stable milestone status label.
func MilestoneStatusFromLabel(label string) MilestoneStatus {
	switch label {
	case "PENDING":
		return MilestoneStatusPending
	case "COMPLETED":
		return MilestoneStatusCompleted
	case "DISPUTED":
		return MilestoneStatusDisputed
	default:
		return MilestoneStatusUnspecified
	}
}
