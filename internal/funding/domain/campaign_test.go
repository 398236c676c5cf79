package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validCreateInput(now time.Time) CreateCampaignInput {
	return CreateCampaignInput{
		Creator:         "alice",
		Title:           "Community Workshop",
		Description:     "Tools and training for the local makerspace.",
		TargetAmount:    1000,
		FundingDeadline: now.Add(30 * 24 * time.Hour),
		Milestones: []MilestoneSpec{
			{Description: "Buy tools", Amount: 400, Deadline: now.Add(10 * 24 * time.Hour)},
			{Description: "Run classes", Amount: 600, Deadline: now.Add(20 * 24 * time.Hour)},
		},
	}
}

func TestCreateCampaign_BuildsActiveCampaignWithPendingMilestones(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	campaign, err := CreateCampaign(validCreateInput(now), fixedClock(now))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	if campaign.Status != CampaignStatusActive {
		t.Fatalf("status = %v, want active", campaign.Status)
	}
	if campaign.RaisedAmount != 0 {
		t.Fatalf("raised amount = %d, want 0", campaign.RaisedAmount)
	}
	if len(campaign.Milestones) != 2 {
		t.Fatalf("milestones = %d, want 2", len(campaign.Milestones))
	}
	for i, milestone := range campaign.Milestones {
		if milestone.Status != MilestoneStatusPending {
			t.Fatalf("milestone %d status = %v, want pending", i, milestone.Status)
		}
		if milestone.Voters == nil {
			t.Fatalf("milestone %d voters set is nil", i)
		}
	}
	if campaign.Contributions == nil {
		t.Fatal("contributions map is nil")
	}
	if !campaign.CreatedAt.Equal(now) || !campaign.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v/%v, want %v", campaign.CreatedAt, campaign.UpdatedAt, now)
	}
}

func TestCreateCampaign_ValidationFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*CreateCampaignInput)
		wantErr error
	}{
		{
			name:    "missing creator",
			mutate:  func(input *CreateCampaignInput) { input.Creator = "   " },
			wantErr: ErrCreatorRequired,
		},
		{
			name:    "missing title",
			mutate:  func(input *CreateCampaignInput) { input.Title = "" },
			wantErr: ErrTitleRequired,
		},
		{
			name:    "zero target",
			mutate:  func(input *CreateCampaignInput) { input.TargetAmount = 0 },
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "negative target",
			mutate:  func(input *CreateCampaignInput) { input.TargetAmount = -5 },
			wantErr: ErrInvalidTarget,
		},
		{
			name:    "deadline in the past",
			mutate:  func(input *CreateCampaignInput) { input.FundingDeadline = now.Add(-time.Hour) },
			wantErr: ErrDeadlineNotFuture,
		},
		{
			name:    "deadline exactly now",
			mutate:  func(input *CreateCampaignInput) { input.FundingDeadline = now },
			wantErr: ErrDeadlineNotFuture,
		},
		{
			name:    "no milestones",
			mutate:  func(input *CreateCampaignInput) { input.Milestones = nil },
			wantErr: ErrNoMilestones,
		},
		{
			name: "zero milestone amount",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[1].Amount = 0
			},
			wantErr: ErrMilestoneInvalidAmount,
		},
		{
			name: "milestone deadline after funding deadline",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[0].Deadline = input.FundingDeadline.Add(time.Hour)
			},
			wantErr: ErrMilestoneDeadlineOutOfRange,
		},
		{
			name: "milestone deadline in the past",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[0].Deadline = now.Add(-time.Minute)
			},
			wantErr: ErrMilestoneDeadlineOutOfRange,
		},
		{
			name: "milestone amounts under target",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[1].Amount = 500
			},
			wantErr: ErrMilestoneSumMismatch,
		},
		{
			name: "milestone amounts over target",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[1].Amount = 700
			},
			wantErr: ErrMilestoneSumMismatch,
		},
		{
			name: "milestone amounts wrap around int64",
			mutate: func(input *CreateCampaignInput) {
				input.Milestones[0].Amount = math.MaxInt64
				input.Milestones[1].Amount = math.MaxInt64
				input.Milestones = append(input.Milestones, MilestoneSpec{
					Description: "overflow filler",
					Amount:      input.TargetAmount + 2,
					Deadline:    input.Milestones[1].Deadline,
				})
			},
			wantErr: ErrMilestoneSumMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input := validCreateInput(now)
			tc.mutate(&input)
			_, err := CreateCampaign(input, fixedClock(now))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCampaignClone_IsDeep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	campaign, err := CreateCampaign(validCreateInput(now), fixedClock(now))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	campaign.Contributions["bob"] = 100
	campaign.Contributors = append(campaign.Contributors, "bob")
	campaign.Milestones[0].Voters["bob"] = struct{}{}

	cloned := campaign.Clone()
	cloned.Contributions["bob"] = 999
	cloned.Contributors[0] = "mallory"
	cloned.Milestones[0].Voters["mallory"] = struct{}{}
	cloned.Milestones[0].VotesFor = 7

	if campaign.Contributions["bob"] != 100 {
		t.Fatalf("contribution mutated through clone: %d", campaign.Contributions["bob"])
	}
	if campaign.Contributors[0] != "bob" {
		t.Fatalf("contributor order mutated through clone: %v", campaign.Contributors)
	}
	if _, ok := campaign.Milestones[0].Voters["mallory"]; ok {
		t.Fatal("voter set mutated through clone")
	}
	if campaign.Milestones[0].VotesFor != 0 {
		t.Fatalf("vote tally mutated through clone: %d", campaign.Milestones[0].VotesFor)
	}
}

func TestCampaignStatusLabels_RoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []CampaignStatus{
		CampaignStatusActive,
		CampaignStatusCompleted,
		CampaignStatusCancelled,
	}
	for _, status := range statuses {
		if got := CampaignStatusFromLabel(CampaignStatusLabel(status)); got != status {
			t.Fatalf("round trip %v -> %v", status, got)
		}
	}
	if got := CampaignStatusFromLabel("bogus"); got != CampaignStatusUnspecified {
		t.Fatalf("unknown label = %v, want unspecified", got)
	}
}
