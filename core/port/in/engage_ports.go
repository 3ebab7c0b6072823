// Package in defines inbound ports driven by the HTTP adapter.
package in

import (
	"context"

	"github.com/google/uuid"

	"engage_server/core/domain"
)

// AuthorizationSession is a begun but not yet completed mailbox authorization.
type AuthorizationSession struct {
	RedirectURL string `json:"redirect_url"`
	State       string `json:"state"`
}

// Exchange carries what the callback needs to finish an authorization.
type Exchange struct {
	State       string
	Code        string
	RedirectURI string
}

// CredentialService manages delegated mailbox access.
type CredentialService interface {
	// Obtain returns a usable access token, refreshing transparently.
	// Returns a requires-authorization error when no usable credential
	// exists.
	Obtain(ctx context.Context, userID uuid.UUID) (string, error)

	BeginAuthorization(ctx context.Context, userID uuid.UUID) (*AuthorizationSession, error)
	CompleteAuthorization(ctx context.Context, ex Exchange) (uuid.UUID, error)

	// Status reports whether the user has a live mailbox connection.
	Status(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AnalysisService runs the engagement analysis pipeline.
type AnalysisService interface {
	// Analyze ingests up to count recent messages, profiles senders, asks
	// the model for recommendations, and persists the batch.
	Analyze(ctx context.Context, userID uuid.UUID, count int) (*domain.AnalysisBatch, error)

	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AnalysisRecord, int, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.AnalysisRecord, error)
	Export(ctx context.Context, userID, id uuid.UUID, format string) (string, string, error)
	Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error)
}
