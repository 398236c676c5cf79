// Package seed populates a local funding database with demo campaigns.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	server "github.com/louisbranch/tranche.fund/internal/funding/app"
	"github.com/louisbranch/tranche.fund/internal/funding/domain"
	entrypoint "github.com/louisbranch/tranche.fund/internal/platform/cmd"
)

// Config holds seed command configuration.
type Config struct {
	DBPath  string `env:"TRANCHE_FUND_FUNDING_DB_PATH" envDefault:"data/funding.db"`
	Verbose bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the funding SQLite database")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds demo campaigns in representative lifecycle states: one partially
// funded, one fully funded with a released milestone, and one cancelled with
// a claimed refund.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	srv, err := server.New(server.Options{DBPath: cfg.DBPath})
	if err != nil {
		return err
	}
	defer srv.Close()
	svc := srv.Service()
	now := time.Now().UTC()

	logf := func(format string, args ...any) {
		if cfg.Verbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	partial, err := svc.CreateCampaign(ctx, domain.CreateCampaignInput{
		Creator:         "demo-tool-library",
		Title:           "Neighborhood Tool Library",
		Description:     "A shared workshop stocked with loanable tools.",
		TargetAmount:    5000,
		FundingDeadline: now.Add(60 * 24 * time.Hour),
		Milestones: []domain.MilestoneSpec{
			{Description: "Rent and fit out the space", Amount: 2000, Deadline: now.Add(30 * 24 * time.Hour)},
			{Description: "Stock the tool inventory", Amount: 3000, Deadline: now.Add(50 * 24 * time.Hour)},
		},
	})
	if err != nil {
		return fmt.Errorf("seed tool library campaign: %w", err)
	}
	if _, err := svc.Contribute(ctx, partial.ID, "demo-backer-1", 1500); err != nil {
		return fmt.Errorf("seed tool library contribution: %w", err)
	}
	logf("campaign %d: %s (partially funded)", partial.ID, partial.Title)

	funded, err := svc.CreateCampaign(ctx, domain.CreateCampaignInput{
		Creator:         "demo-synth-band",
		Title:           "Tiny Synth Album",
		Description:     "Recording and pressing a four-track EP.",
		TargetAmount:    1200,
		FundingDeadline: now.Add(90 * 24 * time.Hour),
		Milestones: []domain.MilestoneSpec{
			{Description: "Studio time", Amount: 400, Deadline: now.Add(30 * 24 * time.Hour)},
			{Description: "Mixing and mastering", Amount: 400, Deadline: now.Add(60 * 24 * time.Hour)},
			{Description: "Vinyl pressing", Amount: 400, Deadline: now.Add(80 * 24 * time.Hour)},
		},
	})
	if err != nil {
		return fmt.Errorf("seed synth campaign: %w", err)
	}
	for i, amount := range []int64{500, 400, 300} {
		backer := fmt.Sprintf("demo-backer-%d", i+1)
		if _, err := svc.Contribute(ctx, funded.ID, backer, amount); err != nil {
			return fmt.Errorf("seed synth contribution %s: %w", backer, err)
		}
	}
	if _, err := svc.VoteMilestone(ctx, funded.ID, 0, "demo-backer-1", true); err != nil {
		return fmt.Errorf("seed synth vote: %w", err)
	}
	if _, err := svc.ReleaseMilestone(ctx, funded.ID, 0, "demo-synth-band"); err != nil {
		return fmt.Errorf("seed synth release: %w", err)
	}
	logf("campaign %d: %s (fully funded, first tranche released)", funded.ID, funded.Title)

	cancelled, err := svc.CreateCampaign(ctx, domain.CreateCampaignInput{
		Creator:         "demo-garden-club",
		Title:           "Pop-up Garden",
		Description:     "Planters and soil for an empty lot.",
		TargetAmount:    800,
		FundingDeadline: now.Add(45 * 24 * time.Hour),
		Milestones: []domain.MilestoneSpec{
			{Description: "Build planters", Amount: 800, Deadline: now.Add(40 * 24 * time.Hour)},
		},
	})
	if err != nil {
		return fmt.Errorf("seed garden campaign: %w", err)
	}
	if _, err := svc.Contribute(ctx, cancelled.ID, "demo-backer-2", 200); err != nil {
		return fmt.Errorf("seed garden contribution: %w", err)
	}
	if _, err := svc.CancelCampaign(ctx, cancelled.ID, "demo-garden-club"); err != nil {
		return fmt.Errorf("seed garden cancellation: %w", err)
	}
	if _, err := svc.ClaimRefund(ctx, cancelled.ID, "demo-backer-2"); err != nil {
		return fmt.Errorf("seed garden refund: %w", err)
	}
	logf("campaign %d: %s (cancelled, refund claimed)", cancelled.ID, cancelled.Title)

	fmt.Fprintf(out, "seeded 3 demo campaigns into %s\n", cfg.DBPath)
	return nil
}
