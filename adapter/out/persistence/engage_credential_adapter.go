// Package persistence provides PostgreSQL adapters.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"engage_server/core/domain"
	"engage_server/core/port/out"
	"engage_server/pkg/crypto"
	"engage_server/pkg/logger"
)

// CredentialAdapter implements out.CredentialRepository. One row per user;
// tokens are encrypted at rest when an encryption key is configured.
type CredentialAdapter struct {
	db                *sqlx.DB
	encryptionEnabled bool
}

func NewCredentialAdapter(db *sqlx.DB) *CredentialAdapter {
	err := crypto.Init()
	if err != nil {
		logger.Warn("token encryption disabled: %v", err)
	}
	return &CredentialAdapter{
		db:                db,
		encryptionEnabled: err == nil,
	}
}

func (a *CredentialAdapter) encryptToken(token string) string {
	if !a.encryptionEnabled || token == "" {
		return token
	}
	encrypted, err := crypto.EncryptToken(token)
	if err != nil {
		logger.Warn("failed to encrypt token: %v", err)
		return token
	}
	return encrypted
}

func (a *CredentialAdapter) decryptToken(token string) string {
	if token == "" || !crypto.IsEncrypted(token) {
		return token
	}
	decrypted, err := crypto.DecryptToken(token)
	if err != nil {
		// Legacy plaintext value, return as-is.
		return token
	}
	return decrypted
}

type credentialEntity struct {
	UserID        uuid.UUID `db:"user_id"`
	AccessToken   string    `db:"access_token"`
	RefreshToken  string    `db:"refresh_token"`
	TokenEndpoint string    `db:"token_endpoint"`
	ClientID      string    `db:"client_id"`
	Scopes        string    `db:"scopes"`
	ExpiresAt     time.Time `db:"expires_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (e *credentialEntity) toDomain() *domain.CredentialRecord {
	rec := &domain.CredentialRecord{
		UserID:        e.UserID,
		AccessToken:   e.AccessToken,
		RefreshToken:  e.RefreshToken,
		TokenEndpoint: e.TokenEndpoint,
		ClientID:      e.ClientID,
		ExpiresAt:     e.ExpiresAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.Scopes != "" {
		rec.Scopes = strings.Split(e.Scopes, " ")
	}
	return rec
}

func (a *CredentialAdapter) Get(ctx context.Context, userID uuid.UUID) (*domain.CredentialRecord, error) {
	var entity credentialEntity
	query := `
		SELECT user_id, access_token, refresh_token, token_endpoint, client_id,
		       scopes, expires_at, created_at, updated_at
		FROM mailbox_credentials
		WHERE user_id = $1`

	if err := a.db.GetContext(ctx, &entity, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, out.ErrNotFound
		}
		return nil, err
	}

	entity.AccessToken = a.decryptToken(entity.AccessToken)
	entity.RefreshToken = a.decryptToken(entity.RefreshToken)
	return entity.toDomain(), nil
}

// Put upserts the credential. A re-connect replaces the old tokens in place.
func (a *CredentialAdapter) Put(ctx context.Context, rec *domain.CredentialRecord) error {
	query := `
		INSERT INTO mailbox_credentials (
			user_id, access_token, refresh_token, token_endpoint, client_id,
			scopes, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_endpoint = EXCLUDED.token_endpoint,
			client_id = EXCLUDED.client_id,
			scopes = EXCLUDED.scopes,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	_, err := a.db.ExecContext(ctx, query,
		rec.UserID, a.encryptToken(rec.AccessToken), a.encryptToken(rec.RefreshToken),
		rec.TokenEndpoint, rec.ClientID, strings.Join(rec.Scopes, " "),
		rec.ExpiresAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (a *CredentialAdapter) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM mailbox_credentials WHERE user_id = $1`, userID)
	return err
}

var _ out.CredentialRepository = (*CredentialAdapter)(nil)
