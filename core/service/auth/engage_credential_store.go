// Package auth manages delegated mailbox credentials.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"engage_server/core/domain"
	"engage_server/core/port/in"
	"engage_server/core/port/out"
	"engage_server/pkg/apperr"
	"engage_server/pkg/logger"
)

const (
	stateKeyPrefix = "oauth:state:"
	stateTTL       = 10 * time.Minute
)

var gmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
}

// CredentialStore owns the token lifecycle: authorize, persist, refresh,
// discard. Refreshes for the same user are serialized so concurrent analyses
// do not race the token endpoint.
type CredentialStore struct {
	repo   out.CredentialRepository
	rdb    *redis.Client
	config *oauth2.Config

	mu      sync.Mutex
	userMus map[uuid.UUID]*sync.Mutex
}

func NewCredentialStore(repo out.CredentialRepository, rdb *redis.Client, clientID, clientSecret, redirectURL string) *CredentialStore {
	return &CredentialStore{
		repo: repo,
		rdb:  rdb,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       gmailScopes,
			Endpoint:     google.Endpoint,
		},
		userMus: make(map[uuid.UUID]*sync.Mutex),
	}
}

// NewCredentialStoreWithConfig injects the oauth2 config directly. Tests use
// this to point the token endpoint at a local server.
func NewCredentialStoreWithConfig(repo out.CredentialRepository, rdb *redis.Client, cfg *oauth2.Config) *CredentialStore {
	return &CredentialStore{
		repo:    repo,
		rdb:     rdb,
		config:  cfg,
		userMus: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *CredentialStore) userMu(userID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.userMus[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userMus[userID] = mu
	}
	return mu
}

// Obtain returns a usable access token for the user, refreshing if needed.
func (s *CredentialStore) Obtain(ctx context.Context, userID uuid.UUID) (string, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return "", apperr.RequiresAuthorization()
		}
		return "", apperr.PersistenceFailure("load credential", err)
	}

	if rec.Valid() {
		return rec.AccessToken, nil
	}
	if !rec.Refreshable() {
		return "", apperr.RequiresAuthorization()
	}

	mu := s.userMu(userID)
	mu.Lock()
	defer mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	rec, err = s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return "", apperr.RequiresAuthorization()
		}
		return "", apperr.PersistenceFailure("load credential", err)
	}
	if rec.Valid() {
		return rec.AccessToken, nil
	}

	return s.refresh(ctx, rec)
}

func (s *CredentialStore) refresh(ctx context.Context, rec *domain.CredentialRecord) (string, error) {
	src := s.config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: rec.RefreshToken,
	})
	token, err := src.Token()
	if err != nil {
		logger.WithError(err).Warn("token refresh failed for user %s, discarding credential", rec.UserID)
		if delErr := s.repo.Delete(ctx, rec.UserID); delErr != nil {
			logger.WithError(delErr).Error("failed to discard dead credential for user %s", rec.UserID)
		}
		return "", apperr.RequiresAuthorization()
	}

	rec.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		rec.RefreshToken = token.RefreshToken
	}
	rec.ExpiresAt = token.Expiry
	rec.UpdatedAt = time.Now()

	if err := s.repo.Put(ctx, rec); err != nil {
		return "", apperr.PersistenceFailure("update credential", err)
	}

	return rec.AccessToken, nil
}

// BeginAuthorization starts the consent flow. The returned state is stored
// server-side keyed to the user so the callback can bind the tokens.
func (s *CredentialStore) BeginAuthorization(ctx context.Context, userID uuid.UUID) (*in.AuthorizationSession, error) {
	state, err := randomState()
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}

	if err := s.rdb.Set(ctx, stateKeyPrefix+state, userID.String(), stateTTL).Err(); err != nil {
		return nil, apperr.PersistenceFailure("store oauth state", err)
	}

	url := s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &in.AuthorizationSession{
		RedirectURL: url,
		State:       state,
	}, nil
}

// CompleteAuthorization exchanges the callback code and persists the tokens.
func (s *CredentialStore) CompleteAuthorization(ctx context.Context, ex in.Exchange) (uuid.UUID, error) {
	if ex.State == "" || ex.Code == "" {
		return uuid.Nil, apperr.BadRequest("missing state or code")
	}

	raw, err := s.rdb.GetDel(ctx, stateKeyPrefix+ex.State).Result()
	if err != nil {
		return uuid.Nil, apperr.OAuthFailed("unknown or expired state")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.OAuthFailed("corrupt state binding")
	}

	cfg := s.config
	if ex.RedirectURI != "" && ex.RedirectURI != cfg.RedirectURL {
		c := *cfg
		c.RedirectURL = ex.RedirectURI
		cfg = &c
	}

	token, err := cfg.Exchange(ctx, ex.Code)
	if err != nil {
		return uuid.Nil, apperr.OAuthFailed(fmt.Sprintf("code exchange failed: %v", err))
	}

	now := time.Now()
	rec := &domain.CredentialRecord{
		UserID:        userID,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		TokenEndpoint: cfg.Endpoint.TokenURL,
		ClientID:      cfg.ClientID,
		Scopes:        cfg.Scopes,
		ExpiresAt:     token.Expiry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Put(ctx, rec); err != nil {
		return uuid.Nil, apperr.PersistenceFailure("store credential", err)
	}

	logger.Info("mailbox connected for user %s", userID)
	return userID, nil
}

// Status reports whether the user holds a live or refreshable credential.
func (s *CredentialStore) Status(ctx context.Context, userID uuid.UUID) (bool, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return false, nil
		}
		return false, apperr.PersistenceFailure("load credential", err)
	}
	return !rec.Dead(), nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
