// Package event defines the append-only notification events produced by the
// funding core and their at-least-once delivery to external observers.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies one notification event kind.
type Type string

const (
	// TypeCampaignCreated announces a newly created campaign.
	TypeCampaignCreated Type = "campaign.created"
	// TypeContributionMade announces a recorded contribution.
	TypeContributionMade Type = "campaign.contribution_made"
	// TypeMilestoneCompleted announces a milestone status flip to completed.
	TypeMilestoneCompleted Type = "milestone.completed"
	// TypeFundsReleased announces a settled tranche payout.
	TypeFundsReleased Type = "funds.released"
	// TypeCampaignCancelled announces a creator cancellation.
	TypeCampaignCancelled Type = "campaign.cancelled"
	// TypeRefundIssued announces a settled contributor refund.
	TypeRefundIssued Type = "refund.issued"
)

// Payload carries the event fields observers consume. Only the fields
// relevant to the event type are set.
type Payload struct {
	Creator        string `json:"creator,omitempty"`
	Title          string `json:"title,omitempty"`
	TargetAmount   int64  `json:"target_amount,omitempty"`
	Contributor    string `json:"contributor,omitempty"`
	MilestoneIndex *int   `json:"milestone_index,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
}

// Event is one append-only notification record.
type Event struct {
	// ID is a random identifier assigned when the event is recorded.
	ID         string
	CampaignID int64
	Type       Type
	Payload    Payload
	OccurredAt time.Time
}

// EncodePayload serializes an event payload for storage.
func EncodePayload(payload Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode event payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload deserializes a stored event payload.
func DecodePayload(encoded string) (Payload, error) {
	if encoded == "" {
		return Payload{}, nil
	}
	var payload Payload
	if err := json.Unmarshal([]byte(encoded), &payload); err != nil {
		return Payload{}, fmt.Errorf("decode event payload: %w", err)
	}
	return payload, nil
}

// Index wraps a milestone index for payload construction.
func Index(value int) *int {
	return &value
}
