package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"engage_server/core/domain"
	"engage_server/core/port/out"
)

// AnalysisAdapter implements out.AnalysisRepository. The recommendation
// payloads are stored as JSONB; the queryable fields get their own columns.
type AnalysisAdapter struct {
	db *sqlx.DB
}

func NewAnalysisAdapter(db *sqlx.DB) *AnalysisAdapter {
	return &AnalysisAdapter{db: db}
}

type analysisEntity struct {
	ID              uuid.UUID `db:"id"`
	UserID          uuid.UUID `db:"user_id"`
	EmailID         string    `db:"email_id"`
	Sender          string    `db:"sender"`
	SenderName      string    `db:"sender_name"`
	Subject         string    `db:"subject"`
	Snippet         string    `db:"snippet"`
	SendTime        []byte    `db:"send_time"`
	Personalization []byte    `db:"personalization"`
	OptimalHour     int       `db:"optimal_hour"`
	OptimalDay      string    `db:"optimal_day"`
	CreatedAt       time.Time `db:"created_at"`
}

func (e *analysisEntity) toDomain() (*domain.AnalysisRecord, error) {
	rec := &domain.AnalysisRecord{
		ID:          e.ID,
		UserID:      e.UserID,
		EmailID:     e.EmailID,
		Sender:      e.Sender,
		SenderName:  e.SenderName,
		Subject:     e.Subject,
		Snippet:     e.Snippet,
		OptimalTime: domain.OptimalTime{Hour: e.OptimalHour, Day: e.OptimalDay},
		CreatedAt:   e.CreatedAt,
	}
	if err := json.Unmarshal(e.SendTime, &rec.SendTime); err != nil {
		return nil, fmt.Errorf("decode send_time for %s: %w", e.ID, err)
	}
	if err := json.Unmarshal(e.Personalization, &rec.Personalization); err != nil {
		return nil, fmt.Errorf("decode personalization for %s: %w", e.ID, err)
	}
	return rec, nil
}

const analysisColumns = `
	id, user_id, email_id, sender, sender_name, subject, snippet,
	send_time, personalization, optimal_hour, optimal_day, created_at`

// SaveBatch inserts the records, bumps the user's usage counters, and appends
// a usage log entry in one transaction. Either everything lands or nothing
// does.
func (a *AnalysisAdapter) SaveBatch(ctx context.Context, userID uuid.UUID, records []domain.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, rec := range records {
		sendTime, err := json.Marshal(rec.SendTime)
		if err != nil {
			return fmt.Errorf("encode send_time: %w", err)
		}
		personalization, err := json.Marshal(rec.Personalization)
		if err != nil {
			return fmt.Errorf("encode personalization: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insert,
			rec.ID, rec.UserID, rec.EmailID, rec.Sender, rec.SenderName,
			rec.Subject, rec.Snippet, sendTime, personalization,
			rec.OptimalTime.Hour, rec.OptimalTime.Day, rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert analysis %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET emails_analyzed_this_month = emails_analyzed_this_month + $2,
		    total_emails_analyzed = total_emails_analyzed + $2,
		    updated_at = NOW()
		WHERE id = $1`,
		userID, len(records),
	); err != nil {
		return fmt.Errorf("update usage counters: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO usage_logs (id, user_id, action, count, created_at)
		VALUES ($1, $2, 'analyze', $3, NOW())`,
		uuid.New(), userID, len(records),
	); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}

	return tx.Commit()
}

func (a *AnalysisAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var entities []analysisEntity
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	if err := a.db.SelectContext(ctx, &entities, query, userID, limit, offset); err != nil {
		return nil, err
	}

	records := make([]domain.AnalysisRecord, 0, len(entities))
	for i := range entities {
		rec, err := entities[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (a *AnalysisAdapter) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.AnalysisRecord, error) {
	var entity analysisEntity
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE id = $1 AND user_id = $2`

	if err := a.db.GetContext(ctx, &entity, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, out.ErrNotFound
		}
		return nil, err
	}
	return entity.toDomain()
}

// LogExport appends an export entry to the usage log. Exports do not count
// against the analysis quota, so no counters move here.
func (a *AnalysisAdapter) LogExport(ctx context.Context, userID, analysisID uuid.UUID, format string) error {
	details, err := json.Marshal(map[string]string{
		"analysis_id": analysisID.String(),
		"format":      format,
	})
	if err != nil {
		return fmt.Errorf("encode export details: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO usage_logs (id, user_id, action, count, details, created_at)
		VALUES ($1, $2, 'export', 1, $3, NOW())`,
		uuid.New(), userID, details,
	)
	return err
}

func (a *AnalysisAdapter) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := a.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM analyses WHERE user_id = $1`, userID)
	return count, err
}

var _ out.AnalysisRepository = (*AnalysisAdapter)(nil)
