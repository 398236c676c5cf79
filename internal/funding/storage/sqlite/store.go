package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/tranche.fund/internal/funding/storage"
	"github.com/louisbranch/tranche.fund/internal/funding/storage/sqlite/migrations"
	sqlitemigrate "github.com/louisbranch/tranche.fund/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for funding state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a funding SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// CreateCampaign atomically persists one new campaign aggregate with its
// creation events. The next dense campaign id is assigned inside the write
// transaction and stamped onto the record, its children, and the events.
func (s *Store) CreateCampaign(ctx context.Context, record storage.CampaignRecord, events []storage.EventRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeCampaignRecord(record)
	if err != nil {
		return 0, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin campaign create: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback campaign create: %v", cause, rollbackErr)
		}
		return cause
	}

	var nextID int64
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id) + 1, 0) FROM campaigns")
	if err := row.Scan(&nextID); err != nil {
		return 0, rollbackWith(fmt.Errorf("allocate campaign id: %w", err))
	}

	normalized.ID = nextID
	for i := range normalized.Milestones {
		normalized.Milestones[i].CampaignID = nextID
	}
	for i := range normalized.Contributions {
		normalized.Contributions[i].CampaignID = nextID
	}
	for i := range events {
		events[i].CampaignID = nextID
	}

	if err := writeCampaignExec(ctx, tx, normalized); err != nil {
		return 0, rollbackWith(err)
	}
	for _, eventRecord := range events {
		normalizedEvent, normalizeErr := normalizeEventRecord(eventRecord)
		if normalizeErr != nil {
			return 0, rollbackWith(normalizeErr)
		}
		if err := insertEventExec(ctx, tx, normalizedEvent); err != nil {
			return 0, rollbackWith(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit campaign create: %w", err)
	}
	return nextID, nil
}

// GetCampaign loads one full campaign aggregate.
func (s *Store) GetCampaign(ctx context.Context, campaignID int64) (storage.CampaignRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.CampaignRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CampaignRecord{}, fmt.Errorf("storage is not configured")
	}
	if campaignID < 0 {
		return storage.CampaignRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, creator, title, description, target_amount, raised_amount, funding_deadline, status, created_at, updated_at
FROM campaigns
WHERE id = ?
`, campaignID)
	record, err := scanCampaign(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CampaignRecord{}, storage.ErrNotFound
		}
		return storage.CampaignRecord{}, fmt.Errorf("get campaign: %w", err)
	}
	if err := s.loadCampaignChildren(ctx, &record); err != nil {
		return storage.CampaignRecord{}, err
	}
	return record, nil
}

// PutCampaign atomically replaces one campaign aggregate and appends the
// events describing the change.
func (s *Store) PutCampaign(ctx context.Context, record storage.CampaignRecord, events []storage.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeCampaignRecord(record)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin campaign write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback campaign write: %v", cause, rollbackErr)
		}
		return cause
	}

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM campaigns WHERE id = ?", normalized.ID).Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(fmt.Errorf("check campaign exists: %w", err))
	}

	if err := writeCampaignExec(ctx, tx, normalized); err != nil {
		return rollbackWith(err)
	}
	for _, eventRecord := range events {
		normalizedEvent, normalizeErr := normalizeEventRecord(eventRecord)
		if normalizeErr != nil {
			return rollbackWith(normalizeErr)
		}
		if err := insertEventExec(ctx, tx, normalizedEvent); err != nil {
			return rollbackWith(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit campaign write: %w", err)
	}
	return nil
}

// ListCampaigns lists campaigns newest-first with cursor pagination.
func (s *Store) ListCampaigns(ctx context.Context, pageSize int, pageToken string) (storage.CampaignPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.CampaignPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CampaignPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.CampaignPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	limit := pageSize + 1
	var rows *sql.Rows
	var err error
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(ctx, `
SELECT id, creator, title, description, target_amount, raised_amount, funding_deadline, status, created_at, updated_at
FROM campaigns
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	} else {
		tokenID, parseErr := strconv.ParseInt(pageToken, 10, 64)
		if parseErr != nil {
			return storage.CampaignPage{}, fmt.Errorf("invalid page token: %w", parseErr)
		}
		tokenCreatedAt, tokenErr := s.campaignCreatedAtByID(ctx, tokenID)
		if tokenErr != nil {
			if errors.Is(tokenErr, storage.ErrNotFound) {
				return storage.CampaignPage{}, nil
			}
			return storage.CampaignPage{}, tokenErr
		}
		rows, err = s.sqlDB.QueryContext(ctx, `
SELECT id, creator, title, description, target_amount, raised_amount, funding_deadline, status, created_at, updated_at
FROM campaigns
WHERE created_at < ? OR (created_at = ? AND id < ?)
ORDER BY created_at DESC, id DESC
LIMIT ?
`, toMillis(tokenCreatedAt), toMillis(tokenCreatedAt), tokenID, limit)
	}
	if err != nil {
		return storage.CampaignPage{}, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	records := make([]storage.CampaignRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanCampaign(rows.Scan)
		if scanErr != nil {
			return storage.CampaignPage{}, fmt.Errorf("scan campaign row: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return storage.CampaignPage{}, fmt.Errorf("iterate campaign rows: %w", err)
	}

	page := storage.CampaignPage{}
	if len(records) > pageSize {
		records = records[:pageSize]
		page.NextPageToken = strconv.FormatInt(records[len(records)-1].ID, 10)
	}
	for i := range records {
		if err := s.loadCampaignChildren(ctx, &records[i]); err != nil {
			return storage.CampaignPage{}, err
		}
	}
	page.Campaigns = records
	return page, nil
}

// ListUndispatchedEvents lists pending outbox events oldest-first.
func (s *Store) ListUndispatchedEvents(ctx context.Context, limit int) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, campaign_id, event_type, payload_json, occurred_at, dispatched_at, attempt_count, last_error
FROM funding_events
WHERE dispatched_at IS NULL
ORDER BY occurred_at ASC, id ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list undispatched events: %w", err)
	}
	defer rows.Close()

	results := make([]storage.EventRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanEvent(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan event row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return results, nil
}

// MarkEventDispatched records successful delivery of one outbox event.
func (s *Store) MarkEventDispatched(ctx context.Context, eventID string, dispatchedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if dispatchedAt.IsZero() {
		return fmt.Errorf("dispatched at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE funding_events
SET dispatched_at = ?, attempt_count = attempt_count + 1, last_error = ''
WHERE id = ?
`, toMillis(dispatchedAt.UTC()), eventID)
	if err != nil {
		return fmt.Errorf("mark event dispatched: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event dispatched rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkEventDispatchFailed records one failed delivery attempt.
func (s *Store) MarkEventDispatchFailed(ctx context.Context, eventID string, lastError string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	lastError = strings.TrimSpace(lastError)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE funding_events
SET attempt_count = attempt_count + 1, last_error = ?
WHERE id = ?
`, lastError, eventID)
	if err != nil {
		return fmt.Errorf("mark event dispatch failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event dispatch failed rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEventsByCampaign lists one campaign event history oldest-first.
func (s *Store) ListEventsByCampaign(ctx context.Context, campaignID int64, limit int) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, campaign_id, event_type, payload_json, occurred_at, dispatched_at, attempt_count, last_error
FROM funding_events
WHERE campaign_id = ?
ORDER BY occurred_at ASC, id ASC
LIMIT ?
`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaign events: %w", err)
	}
	defer rows.Close()

	results := make([]storage.EventRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanEvent(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan campaign event row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign event rows: %w", err)
	}
	return results, nil
}

// AppendTransfer records one settled transfer journal row.
func (s *Store) AppendTransfer(ctx context.Context, record storage.TransferRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.Recipient = strings.TrimSpace(record.Recipient)
	if record.ID == "" {
		return fmt.Errorf("transfer id is required")
	}
	if record.Recipient == "" {
		return fmt.Errorf("transfer recipient is required")
	}
	if record.Amount <= 0 {
		return fmt.Errorf("transfer amount must be greater than zero")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO transfer_journal (id, recipient, amount, created_at)
VALUES (?, ?, ?, ?)
`, record.ID, record.Recipient, record.Amount, toMillis(record.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("append transfer: %w", err)
	}
	return nil
}

// ListTransfersByRecipient lists settled transfers for one recipient oldest-first.
func (s *Store) ListTransfersByRecipient(ctx context.Context, recipient string, limit int) ([]storage.TransferRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, recipient, amount, created_at
FROM transfer_journal
WHERE recipient = ?
ORDER BY created_at ASC, id ASC
LIMIT ?
`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	results := make([]storage.TransferRecord, 0, limit)
	for rows.Next() {
		var record storage.TransferRecord
		var createdAtMillis int64
		if scanErr := rows.Scan(&record.ID, &record.Recipient, &record.Amount, &createdAtMillis); scanErr != nil {
			return nil, fmt.Errorf("scan transfer row: %w", scanErr)
		}
		record.CreatedAt = fromMillis(createdAtMillis)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return results, nil
}

func (s *Store) campaignCreatedAtByID(ctx context.Context, campaignID int64) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT created_at FROM campaigns WHERE id = ?
`, campaignID)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup campaign cursor: %w", err)
	}
	return fromMillis(createdAtMillis), nil
}

func (s *Store) loadCampaignChildren(ctx context.Context, record *storage.CampaignRecord) error {
	milestones, err := s.listMilestones(ctx, record.ID)
	if err != nil {
		return err
	}
	voters, err := s.listVoters(ctx, record.ID)
	if err != nil {
		return err
	}
	for i := range milestones {
		milestones[i].Voters = voters[milestones[i].Index]
	}
	contributions, err := s.listContributions(ctx, record.ID)
	if err != nil {
		return err
	}
	record.Milestones = milestones
	record.Contributions = contributions
	return nil
}

func (s *Store) listMilestones(ctx context.Context, campaignID int64) ([]storage.MilestoneRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, idx, description, amount, deadline, status, votes_for, votes_against, completed_at
FROM milestones
WHERE campaign_id = ?
ORDER BY idx ASC
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var results []storage.MilestoneRecord
	for rows.Next() {
		record, scanErr := scanMilestone(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan milestone row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestone rows: %w", err)
	}
	return results, nil
}

func (s *Store) listVoters(ctx context.Context, campaignID int64) (map[int][]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT idx, voter
FROM milestone_voters
WHERE campaign_id = ?
ORDER BY idx ASC, created_at ASC, voter ASC
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list milestone voters: %w", err)
	}
	defer rows.Close()

	results := make(map[int][]string)
	for rows.Next() {
		var index int
		var voter string
		if scanErr := rows.Scan(&index, &voter); scanErr != nil {
			return nil, fmt.Errorf("scan voter row: %w", scanErr)
		}
		results[index] = append(results[index], voter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voter rows: %w", err)
	}
	return results, nil
}

func (s *Store) listContributions(ctx context.Context, campaignID int64) ([]storage.ContributionRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, contributor, amount, position, created_at, updated_at, refunded_at
FROM contributions
WHERE campaign_id = ?
ORDER BY position ASC
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var results []storage.ContributionRecord
	for rows.Next() {
		record, scanErr := scanContribution(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan contribution row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contribution rows: %w", err)
	}
	return results, nil
}

type scanner func(dest ...any) error

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func normalizeCampaignRecord(record storage.CampaignRecord) (storage.CampaignRecord, error) {
	record.Creator = strings.TrimSpace(record.Creator)
	record.Title = strings.TrimSpace(record.Title)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID < 0 {
		return storage.CampaignRecord{}, fmt.Errorf("campaign id must be non-negative")
	}
	if record.Creator == "" {
		return storage.CampaignRecord{}, fmt.Errorf("campaign creator is required")
	}
	if record.Title == "" {
		return storage.CampaignRecord{}, fmt.Errorf("campaign title is required")
	}
	if record.Status == "" {
		return storage.CampaignRecord{}, fmt.Errorf("campaign status is required")
	}
	if record.TargetAmount <= 0 {
		return storage.CampaignRecord{}, fmt.Errorf("campaign target amount must be greater than zero")
	}
	if record.FundingDeadline.IsZero() {
		return storage.CampaignRecord{}, fmt.Errorf("funding deadline is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.CampaignRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.CampaignRecord{}, fmt.Errorf("updated_at is required")
	}
	record.FundingDeadline = record.FundingDeadline.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	for i := range record.Milestones {
		milestone := &record.Milestones[i]
		milestone.Status = strings.TrimSpace(milestone.Status)
		if milestone.Status == "" {
			return storage.CampaignRecord{}, fmt.Errorf("milestone status is required")
		}
		if milestone.Amount <= 0 {
			return storage.CampaignRecord{}, fmt.Errorf("milestone amount must be greater than zero")
		}
		if milestone.Deadline.IsZero() {
			return storage.CampaignRecord{}, fmt.Errorf("milestone deadline is required")
		}
		milestone.Deadline = milestone.Deadline.UTC()
		if milestone.CompletedAt != nil {
			completedAt := milestone.CompletedAt.UTC()
			milestone.CompletedAt = &completedAt
		}
	}
	for i := range record.Contributions {
		contribution := &record.Contributions[i]
		contribution.Contributor = strings.TrimSpace(contribution.Contributor)
		if contribution.Contributor == "" {
			return storage.CampaignRecord{}, fmt.Errorf("contributor is required")
		}
		if contribution.Amount < 0 {
			return storage.CampaignRecord{}, fmt.Errorf("contribution amount must be non-negative")
		}
		if contribution.CreatedAt.IsZero() {
			return storage.CampaignRecord{}, fmt.Errorf("contribution created_at is required")
		}
		if contribution.UpdatedAt.IsZero() {
			return storage.CampaignRecord{}, fmt.Errorf("contribution updated_at is required")
		}
		contribution.CreatedAt = contribution.CreatedAt.UTC()
		contribution.UpdatedAt = contribution.UpdatedAt.UTC()
		if contribution.RefundedAt != nil {
			refundedAt := contribution.RefundedAt.UTC()
			contribution.RefundedAt = &refundedAt
		}
	}
	return record, nil
}

func normalizeEventRecord(record storage.EventRecord) (storage.EventRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Type = strings.TrimSpace(record.Type)
	record.PayloadJSON = strings.TrimSpace(record.PayloadJSON)
	record.LastError = strings.TrimSpace(record.LastError)
	if record.PayloadJSON == "" {
		record.PayloadJSON = "{}"
	}
	if record.ID == "" {
		return storage.EventRecord{}, fmt.Errorf("event id is required")
	}
	if record.Type == "" {
		return storage.EventRecord{}, fmt.Errorf("event type is required")
	}
	if record.OccurredAt.IsZero() {
		return storage.EventRecord{}, fmt.Errorf("occurred_at is required")
	}
	record.OccurredAt = record.OccurredAt.UTC()
	if record.DispatchedAt != nil {
		dispatchedAt := record.DispatchedAt.UTC()
		record.DispatchedAt = &dispatchedAt
	}
	return record, nil
}

func writeCampaignExec(ctx context.Context, execer sqlExecer, record storage.CampaignRecord) error {
	_, err := execer.ExecContext(ctx, `
	INSERT INTO campaigns (
		id, creator, title, description, target_amount, raised_amount, funding_deadline, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		creator = excluded.creator,
		title = excluded.title,
		description = excluded.description,
		target_amount = excluded.target_amount,
		raised_amount = excluded.raised_amount,
		funding_deadline = excluded.funding_deadline,
		status = excluded.status,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`,
		record.ID,
		record.Creator,
		record.Title,
		record.Description,
		record.TargetAmount,
		record.RaisedAmount,
		toMillis(record.FundingDeadline),
		record.Status,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put campaign: %w", err)
	}

	for _, milestone := range record.Milestones {
		if err := putMilestoneExec(ctx, execer, milestone); err != nil {
			return err
		}
	}
	for _, contribution := range record.Contributions {
		if err := putContributionExec(ctx, execer, contribution); err != nil {
			return err
		}
	}
	return nil
}

func putMilestoneExec(ctx context.Context, execer sqlExecer, record storage.MilestoneRecord) error {
	var completedAt sql.NullInt64
	if record.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*record.CompletedAt), Valid: true}
	}

	_, err := execer.ExecContext(ctx, `
	INSERT INTO milestones (
		campaign_id, idx, description, amount, deadline, status, votes_for, votes_against, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(campaign_id, idx) DO UPDATE SET
		description = excluded.description,
		amount = excluded.amount,
		deadline = excluded.deadline,
		status = excluded.status,
		votes_for = excluded.votes_for,
		votes_against = excluded.votes_against,
		completed_at = excluded.completed_at
	`,
		record.CampaignID,
		record.Index,
		record.Description,
		record.Amount,
		toMillis(record.Deadline),
		record.Status,
		record.VotesFor,
		record.VotesAgainst,
		completedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put milestone: %w", err)
	}

	now := time.Now().UTC()
	for _, voter := range record.Voters {
		voter = strings.TrimSpace(voter)
		if voter == "" {
			return fmt.Errorf("milestone voter is required")
		}
		if _, err := execer.ExecContext(ctx, `
	INSERT OR IGNORE INTO milestone_voters (campaign_id, idx, voter, created_at)
	VALUES (?, ?, ?, ?)
	`, record.CampaignID, record.Index, voter, toMillis(now)); err != nil {
			return fmt.Errorf("put milestone voter: %w", err)
		}
	}
	return nil
}

func putContributionExec(ctx context.Context, execer sqlExecer, record storage.ContributionRecord) error {
	var refundedAt sql.NullInt64
	if record.RefundedAt != nil {
		refundedAt = sql.NullInt64{Int64: toMillis(*record.RefundedAt), Valid: true}
	}

	_, err := execer.ExecContext(ctx, `
	INSERT INTO contributions (
		campaign_id, contributor, amount, position, created_at, updated_at, refunded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(campaign_id, contributor) DO UPDATE SET
		amount = excluded.amount,
		position = excluded.position,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		refunded_at = COALESCE(contributions.refunded_at, excluded.refunded_at)
	`,
		record.CampaignID,
		record.Contributor,
		record.Amount,
		record.Position,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		refundedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put contribution: %w", err)
	}
	return nil
}

func insertEventExec(ctx context.Context, execer sqlExecer, record storage.EventRecord) error {
	var dispatchedAt sql.NullInt64
	if record.DispatchedAt != nil {
		dispatchedAt = sql.NullInt64{Int64: toMillis(*record.DispatchedAt), Valid: true}
	}

	_, err := execer.ExecContext(ctx, `
	INSERT INTO funding_events (
		id, campaign_id, event_type, payload_json, occurred_at, dispatched_at, attempt_count, last_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.CampaignID,
		record.Type,
		record.PayloadJSON,
		toMillis(record.OccurredAt),
		dispatchedAt,
		record.AttemptCount,
		record.LastError,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanCampaign(scan scanner) (storage.CampaignRecord, error) {
	var record storage.CampaignRecord
	var fundingDeadlineMillis int64
	var createdAtMillis int64
	var updatedAtMillis int64
	if err := scan(
		&record.ID,
		&record.Creator,
		&record.Title,
		&record.Description,
		&record.TargetAmount,
		&record.RaisedAmount,
		&fundingDeadlineMillis,
		&record.Status,
		&createdAtMillis,
		&updatedAtMillis,
	); err != nil {
		return storage.CampaignRecord{}, err
	}
	record.FundingDeadline = fromMillis(fundingDeadlineMillis)
	record.CreatedAt = fromMillis(createdAtMillis)
	record.UpdatedAt = fromMillis(updatedAtMillis)
	return record, nil
}

func scanMilestone(scan scanner) (storage.MilestoneRecord, error) {
	var record storage.MilestoneRecord
	var deadlineMillis int64
	var completedAt sql.NullInt64
	if err := scan(
		&record.CampaignID,
		&record.Index,
		&record.Description,
		&record.Amount,
		&deadlineMillis,
		&record.Status,
		&record.VotesFor,
		&record.VotesAgainst,
		&completedAt,
	); err != nil {
		return storage.MilestoneRecord{}, err
	}
	record.Deadline = fromMillis(deadlineMillis)
	if completedAt.Valid {
		completed := fromMillis(completedAt.Int64)
		record.CompletedAt = &completed
	}
	return record, nil
}

func scanContribution(scan scanner) (storage.ContributionRecord, error) {
	var record storage.ContributionRecord
	var createdAtMillis int64
	var updatedAtMillis int64
	var refundedAt sql.NullInt64
	if err := scan(
		&record.CampaignID,
		&record.Contributor,
		&record.Amount,
		&record.Position,
		&createdAtMillis,
		&updatedAtMillis,
		&refundedAt,
	); err != nil {
		return storage.ContributionRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAtMillis)
	record.UpdatedAt = fromMillis(updatedAtMillis)
	if refundedAt.Valid {
		refunded := fromMillis(refundedAt.Int64)
		record.RefundedAt = &refunded
	}
	return record, nil
}

func scanEvent(scan scanner) (storage.EventRecord, error) {
	var record storage.EventRecord
	var occurredAtMillis int64
	var dispatchedAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.CampaignID,
		&record.Type,
		&record.PayloadJSON,
		&occurredAtMillis,
		&dispatchedAt,
		&record.AttemptCount,
		&record.LastError,
	); err != nil {
		return storage.EventRecord{}, err
	}
	record.OccurredAt = fromMillis(occurredAtMillis)
	if dispatchedAt.Valid {
		dispatched := fromMillis(dispatchedAt.Int64)
		record.DispatchedAt = &dispatched
	}
	return record, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "constraint failed")
}
