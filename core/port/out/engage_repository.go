package out

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"engage_server/core/domain"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// UserRepository reads and mutates user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ChangeTier switches the subscription tier and resets the monthly
	// counter so the new quota starts clean.
	ChangeTier(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) (*domain.User, error)
}

// CredentialRepository stores mailbox credentials, one per user.
type CredentialRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.CredentialRecord, error)
	Put(ctx context.Context, rec *domain.CredentialRecord) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// AnalysisRepository persists analysis results and usage accounting.
type AnalysisRepository interface {
	// SaveBatch writes all records, bumps the user's usage counters by
	// len(records), and appends a usage log entry, atomically.
	SaveBatch(ctx context.Context, userID uuid.UUID, records []domain.AnalysisRecord) error

	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AnalysisRecord, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.AnalysisRecord, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// LogExport appends a usage log entry for one export.
	LogExport(ctx context.Context, userID, analysisID uuid.UUID, format string) error
}
