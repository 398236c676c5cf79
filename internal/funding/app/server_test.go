package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/domain"
	"github.com/louisbranch/tranche.fund/internal/funding/event"
)

type collectingSink struct {
	mu        sync.Mutex
	delivered []event.Event
}

func (c *collectingSink) Deliver(_ context.Context, evt event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, evt)
	return nil
}

func (c *collectingSink) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]event.Type, 0, len(c.delivered))
	for _, evt := range c.delivered {
		result = append(result, evt.Type)
	}
	return result
}

func newTestServer(t *testing.T, sink event.Sink) *Server {
	t.Helper()
	srv, err := New(Options{
		DBPath: filepath.Join(t.TempDir(), "funding.db"),
		Sink:   sink,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func campaignInput(now time.Time) domain.CreateCampaignInput {
	return domain.CreateCampaignInput{
		Creator:         "alice",
		Title:           "Community Workshop",
		TargetAmount:    1000,
		FundingDeadline: now.Add(30 * 24 * time.Hour),
		Milestones: []domain.MilestoneSpec{
			{Description: "Buy tools", Amount: 400, Deadline: now.Add(10 * 24 * time.Hour)},
			{Description: "Run classes", Amount: 600, Deadline: now.Add(20 * 24 * time.Hour)},
		},
	}
}

func TestServer_FullCampaignLifecycleRoundTrip(t *testing.T) {
	t.Parallel()

	sink := &collectingSink{}
	srv := newTestServer(t, sink)
	svc := srv.Service()
	ctx := context.Background()
	now := time.Now().UTC()

	campaign, err := svc.CreateCampaign(ctx, campaignInput(now))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	if _, err := svc.Contribute(ctx, campaign.ID, "bob", 700); err != nil {
		t.Fatalf("contribute bob: %v", err)
	}
	if _, err := svc.Contribute(ctx, campaign.ID, "carol", 300); err != nil {
		t.Fatalf("contribute carol: %v", err)
	}

	if _, err := svc.VoteMilestone(ctx, campaign.ID, 0, "bob", true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	released, err := svc.ReleaseMilestone(ctx, campaign.ID, 0, "alice")
	if err != nil {
		t.Fatalf("release milestone: %v", err)
	}
	if released.Milestones[0].Status != domain.MilestoneStatusCompleted {
		t.Fatalf("milestone status = %v, want completed", released.Milestones[0].Status)
	}

	// Restart-safe: everything above must survive a reload from storage.
	loaded, err := svc.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("reload campaign: %v", err)
	}
	if loaded.RaisedAmount != 1000 || !loaded.FullyFunded() {
		t.Fatalf("reloaded raised = %d, want 1000", loaded.RaisedAmount)
	}
	if loaded.Milestones[0].VotesFor != 1 {
		t.Fatalf("reloaded votes for = %d, want 1", loaded.Milestones[0].VotesFor)
	}
	if !loaded.Milestones[0].HasVoted("bob") {
		t.Fatal("reloaded voter set lost bob")
	}
	if loaded.Milestones[0].Status != domain.MilestoneStatusCompleted {
		t.Fatalf("reloaded milestone status = %v, want completed", loaded.Milestones[0].Status)
	}
	if got := loaded.ContributionOf("bob"); got != 700 {
		t.Fatalf("reloaded bob contribution = %d, want 700", got)
	}

	if _, err := srv.dispatcher.DispatchPending(ctx); err != nil {
		t.Fatalf("dispatch pending: %v", err)
	}
	gotTypes := sink.types()
	if len(gotTypes) != 5 {
		t.Fatalf("dispatched %d events %v, want 5", len(gotTypes), gotTypes)
	}
	counts := make(map[event.Type]int, len(gotTypes))
	for _, eventType := range gotTypes {
		counts[eventType]++
	}
	if counts[event.TypeContributionMade] != 2 {
		t.Fatalf("contribution events = %d, want 2", counts[event.TypeContributionMade])
	}
	if counts[event.TypeMilestoneCompleted] != 1 || counts[event.TypeFundsReleased] != 1 {
		t.Fatalf("release events = %v, want one completed and one released", counts)
	}

	// Dispatch is idempotent over the outbox: a second pass delivers nothing.
	delivered, err := srv.dispatcher.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("second dispatch delivered = %d, want 0", delivered)
	}
}

func TestServer_CancelAndRefundJournalsTransfer(t *testing.T) {
	t.Parallel()

	sink := &collectingSink{}
	srv := newTestServer(t, sink)
	svc := srv.Service()
	ctx := context.Background()
	now := time.Now().UTC()

	campaign, err := svc.CreateCampaign(ctx, campaignInput(now))
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := svc.Contribute(ctx, campaign.ID, "bob", 250); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if _, err := svc.CancelCampaign(ctx, campaign.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	amount, err := svc.ClaimRefund(ctx, campaign.ID, "bob")
	if err != nil {
		t.Fatalf("claim refund: %v", err)
	}
	if amount != 250 {
		t.Fatalf("refund amount = %d, want 250", amount)
	}

	transfers, err := srv.store.ListTransfersByRecipient(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(transfers) != 1 || transfers[0].Amount != 250 {
		t.Fatalf("journaled transfers = %+v, want single bob/250", transfers)
	}

	if _, err := svc.ClaimRefund(ctx, campaign.ID, "bob"); !errors.Is(err, domain.ErrNoContribution) {
		t.Fatalf("second refund error = %v, want %v", err, domain.ErrNoContribution)
	}

	loaded, err := svc.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("reload campaign: %v", err)
	}
	if loaded.RaisedAmount != 0 {
		t.Fatalf("reloaded raised = %d, want 0 after refund", loaded.RaisedAmount)
	}
	if len(loaded.Contributors) != 1 || loaded.Contributors[0] != "bob" {
		t.Fatalf("reloaded contributors = %v, want bob retained", loaded.Contributors)
	}
}

func TestServer_UnknownCampaignMapsToNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &collectingSink{})
	ctx := context.Background()

	if _, err := srv.Service().GetCampaign(ctx, 404); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("error = %v, want %v", err, domain.ErrCampaignNotFound)
	}
	if _, err := srv.Service().Contribute(ctx, 404, "bob", 100); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("contribute error = %v, want %v", err, domain.ErrCampaignNotFound)
	}
}

func TestServer_ServeStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, err := New(Options{
		DBPath:           filepath.Join(t.TempDir(), "funding.db"),
		DispatchInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	cancel()

	select {
	case serveErr := <-done:
		if serveErr != nil {
			t.Fatalf("serve returned %v, want nil on cancellation", serveErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
