package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"engage_server/core/domain"
	"engage_server/core/port/out"
)

// UserAdapter implements out.UserRepository.
type UserAdapter struct {
	db *sqlx.DB
}

func NewUserAdapter(db *sqlx.DB) *UserAdapter {
	return &UserAdapter{db: db}
}

type userEntity struct {
	ID                 uuid.UUID      `db:"id"`
	Email              string         `db:"email"`
	FullName           sql.NullString `db:"full_name"`
	Tier               string         `db:"subscription_tier"`
	SubscriptionStatus string         `db:"subscription_status"`
	AnalyzedThisMonth  int            `db:"emails_analyzed_this_month"`
	AnalyzedTotal      int            `db:"total_emails_analyzed"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (e *userEntity) toDomain() *domain.User {
	u := &domain.User{
		ID:                 e.ID,
		Email:              e.Email,
		Tier:               domain.SubscriptionTier(e.Tier),
		SubscriptionStatus: e.SubscriptionStatus,
		AnalyzedThisMonth:  e.AnalyzedThisMonth,
		AnalyzedTotal:      e.AnalyzedTotal,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.FullName.Valid {
		u.FullName = &e.FullName.String
	}
	return u
}

const userColumns = `
	id, email, full_name, subscription_tier, subscription_status,
	emails_analyzed_this_month, total_emails_analyzed, created_at, updated_at`

func (a *UserAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var entity userEntity
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := a.db.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, out.ErrNotFound
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

// ChangeTier switches the tier and resets the monthly counter so the new
// quota starts clean.
func (a *UserAdapter) ChangeTier(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) (*domain.User, error) {
	var entity userEntity
	query := `
		UPDATE users
		SET subscription_tier = $2,
		    emails_analyzed_this_month = 0,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	if err := a.db.GetContext(ctx, &entity, query, id, string(tier)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, out.ErrNotFound
		}
		return nil, err
	}
	return entity.toDomain(), nil
}

var _ out.UserRepository = (*UserAdapter)(nil)
