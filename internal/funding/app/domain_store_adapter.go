package server

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/domain"
	"github.com/louisbranch/tranche.fund/internal/funding/event"
	"github.com/louisbranch/tranche.fund/internal/funding/storage"
)

type domainStoreAdapter struct {
	campaignStore storage.CampaignStore
	eventStore    storage.EventStore
}

func newDomainStoreAdapter(campaignStore storage.CampaignStore, eventStore storage.EventStore) *domainStoreAdapter {
	return &domainStoreAdapter{
		campaignStore: campaignStore,
		eventStore:    eventStore,
	}
}

func (a *domainStoreAdapter) CreateCampaign(ctx context.Context, campaign domain.Campaign, events []event.Event) (int64, error) {
	if a == nil || a.campaignStore == nil {
		return 0, domain.ErrStoreNotConfigured
	}
	records, err := toStorageEvents(events)
	if err != nil {
		return 0, err
	}
	campaignID, err := a.campaignStore.CreateCampaign(ctx, toStorageCampaign(campaign), records)
	if err != nil {
		return 0, mapStorageError(err)
	}
	return campaignID, nil
}

func (a *domainStoreAdapter) GetCampaign(ctx context.Context, campaignID int64) (domain.Campaign, error) {
	if a == nil || a.campaignStore == nil {
		return domain.Campaign{}, domain.ErrStoreNotConfigured
	}
	record, err := a.campaignStore.GetCampaign(ctx, campaignID)
	if err != nil {
		return domain.Campaign{}, mapStorageError(err)
	}
	return toDomainCampaign(record), nil
}

func (a *domainStoreAdapter) PutCampaign(ctx context.Context, campaign domain.Campaign, events []event.Event) error {
	if a == nil || a.campaignStore == nil {
		return domain.ErrStoreNotConfigured
	}
	records, err := toStorageEvents(events)
	if err != nil {
		return err
	}
	if err := a.campaignStore.PutCampaign(ctx, toStorageCampaign(campaign), records); err != nil {
		return mapStorageError(err)
	}
	return nil
}

func (a *domainStoreAdapter) ListCampaigns(ctx context.Context, pageSize int, pageToken string) (domain.CampaignPage, error) {
	if a == nil || a.campaignStore == nil {
		return domain.CampaignPage{}, domain.ErrStoreNotConfigured
	}
	page, err := a.campaignStore.ListCampaigns(ctx, pageSize, pageToken)
	if err != nil {
		return domain.CampaignPage{}, mapStorageError(err)
	}
	result := domain.CampaignPage{
		Campaigns:     make([]domain.Campaign, 0, len(page.Campaigns)),
		NextPageToken: page.NextPageToken,
	}
	for _, record := range page.Campaigns {
		result.Campaigns = append(result.Campaigns, toDomainCampaign(record))
	}
	return result, nil
}

func (a *domainStoreAdapter) ListUndispatchedEvents(ctx context.Context, limit int) ([]event.Event, error) {
	if a == nil || a.eventStore == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.eventStore.ListUndispatchedEvents(ctx, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainEvents(records)
}

func (a *domainStoreAdapter) MarkEventDispatched(ctx context.Context, eventID string, dispatchedAt time.Time) error {
	if a == nil || a.eventStore == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageError(a.eventStore.MarkEventDispatched(ctx, eventID, dispatchedAt))
}

func (a *domainStoreAdapter) MarkEventDispatchFailed(ctx context.Context, eventID string, lastError string) error {
	if a == nil || a.eventStore == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageError(a.eventStore.MarkEventDispatchFailed(ctx, eventID, lastError))
}

func (a *domainStoreAdapter) ListEventsByCampaign(ctx context.Context, campaignID int64, limit int) ([]event.Event, error) {
	if a == nil || a.eventStore == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.eventStore.ListEventsByCampaign(ctx, campaignID, limit)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainEvents(records)
}

func toStorageCampaign(campaign domain.Campaign) storage.CampaignRecord {
	record := storage.CampaignRecord{
		ID:              campaign.ID,
		Creator:         campaign.Creator,
		Title:           campaign.Title,
		Description:     campaign.Description,
		TargetAmount:    campaign.TargetAmount,
		RaisedAmount:    campaign.RaisedAmount,
		FundingDeadline: campaign.FundingDeadline,
		Status:          domain.CampaignStatusLabel(campaign.Status),
		CreatedAt:       campaign.CreatedAt,
		UpdatedAt:       campaign.UpdatedAt,
	}
	record.Milestones = make([]storage.MilestoneRecord, 0, len(campaign.Milestones))
	for index, milestone := range campaign.Milestones {
		voters := make([]string, 0, len(milestone.Voters))
		for voter := range milestone.Voters {
			voters = append(voters, voter)
		}
		record.Milestones = append(record.Milestones, storage.MilestoneRecord{
			CampaignID:   campaign.ID,
			Index:        index,
			Description:  milestone.Description,
			Amount:       milestone.Amount,
			Deadline:     milestone.Deadline,
			Status:       domain.MilestoneStatusLabel(milestone.Status),
			VotesFor:     milestone.VotesFor,
			VotesAgainst: milestone.VotesAgainst,
			Voters:       voters,
			CompletedAt:  milestone.CompletedAt,
		})
	}
	record.Contributions = make([]storage.ContributionRecord, 0, len(campaign.Contributors))
	for position, contributor := range campaign.Contributors {
		amount := campaign.Contributions[contributor]
		contribution := storage.ContributionRecord{
			CampaignID:  campaign.ID,
			Contributor: contributor,
			Amount:      amount,
			Position:    position,
			CreatedAt:   campaign.CreatedAt,
			UpdatedAt:   campaign.UpdatedAt,
		}
		if amount == 0 {
			refundedAt := campaign.UpdatedAt
			contribution.RefundedAt = &refundedAt
		}
		record.Contributions = append(record.Contributions, contribution)
	}
	return record
}

func toDomainCampaign(record storage.CampaignRecord) domain.Campaign {
	campaign := domain.Campaign{
		ID:              record.ID,
		Creator:         record.Creator,
		Title:           record.Title,
		Description:     record.Description,
		TargetAmount:    record.TargetAmount,
		RaisedAmount:    record.RaisedAmount,
		FundingDeadline: record.FundingDeadline,
		Status:          domain.CampaignStatusFromLabel(record.Status),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		Contributions:   make(map[string]int64, len(record.Contributions)),
		Contributors:    make([]string, 0, len(record.Contributions)),
	}
	campaign.Milestones = make([]domain.Milestone, 0, len(record.Milestones))
	for _, milestoneRecord := range record.Milestones {
		voters := make(map[string]struct{}, len(milestoneRecord.Voters))
		for _, voter := range milestoneRecord.Voters {
			voters[voter] = struct{}{}
		}
		campaign.Milestones = append(campaign.Milestones, domain.Milestone{
			Description:  milestoneRecord.Description,
			Amount:       milestoneRecord.Amount,
			Deadline:     milestoneRecord.Deadline,
			Status:       domain.MilestoneStatusFromLabel(milestoneRecord.Status),
			VotesFor:     milestoneRecord.VotesFor,
			VotesAgainst: milestoneRecord.VotesAgainst,
			Voters:       voters,
			CompletedAt:  milestoneRecord.CompletedAt,
		})
	}
	for _, contribution := range record.Contributions {
		campaign.Contributions[contribution.Contributor] = contribution.Amount
		campaign.Contributors = append(campaign.Contributors, contribution.Contributor)
	}
	return campaign
}

func toStorageEvents(events []event.Event) ([]storage.EventRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}
	records := make([]storage.EventRecord, 0, len(events))
	for _, evt := range events {
		payloadJSON, err := event.EncodePayload(evt.Payload)
		if err != nil {
			return nil, err
		}
		records = append(records, storage.EventRecord{
			ID:          evt.ID,
			CampaignID:  evt.CampaignID,
			Type:        string(evt.Type),
			PayloadJSON: payloadJSON,
			OccurredAt:  evt.OccurredAt,
		})
	}
	return records, nil
}

func toDomainEvents(records []storage.EventRecord) ([]event.Event, error) {
	results := make([]event.Event, 0, len(records))
	for _, record := range records {
		payload, err := event.DecodePayload(record.PayloadJSON)
		if err != nil {
			return nil, err
		}
		results = append(results, event.Event{
			ID:         record.ID,
			CampaignID: record.CampaignID,
			Type:       event.Type(record.Type),
			Payload:    payload,
			OccurredAt: record.OccurredAt,
		})
	}
	return results, nil
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrCampaignNotFound
	default:
		return err
	}
}
