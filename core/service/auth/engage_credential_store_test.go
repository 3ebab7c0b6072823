package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"engage_server/core/domain"
	"engage_server/core/port/in"
	"engage_server/core/port/out"
	"engage_server/pkg/apperr"
)

type fakeCredentialRepo struct {
	mu      sync.Mutex
	rec     *domain.CredentialRecord
	gets    int
	puts    int
	deletes int
}

func (f *fakeCredentialRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.CredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.rec == nil {
		return nil, out.ErrNotFound
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeCredentialRepo) Put(ctx context.Context, rec *domain.CredentialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	cp := *rec
	f.rec = &cp
	return nil
}

func (f *fakeCredentialRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	f.rec = nil
	return nil
}

func tokenEndpoint(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func storeWith(repo out.CredentialRepository, tokenURL string) *CredentialStore {
	return NewCredentialStoreWithConfig(repo, nil, &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "http://localhost/auth",
			TokenURL: tokenURL,
		},
	})
}

func TestObtainValidToken(t *testing.T) {
	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:      userID,
		AccessToken: "live-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	store := storeWith(repo, "http://localhost/token")

	token, err := store.Obtain(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "live-token" {
		t.Errorf("expected live-token, got %q", token)
	}
	if repo.puts != 0 {
		t.Errorf("expected no refresh persist, got %d puts", repo.puts)
	}
}

func TestObtainNoCredential(t *testing.T) {
	store := storeWith(&fakeCredentialRepo{}, "http://localhost/token")

	_, err := store.Obtain(context.Background(), uuid.New())
	if !apperr.IsCode(err, apperr.CodeRequiresAuthorization) {
		t.Fatalf("expected requires-authorization, got %v", err)
	}
}

func TestObtainRefreshesExpiredToken(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusOK,
		`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600,"refresh_token":"new-refresh"}`)
	defer srv.Close()

	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:       userID,
		AccessToken:  "stale-token",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}}
	store := storeWith(repo, srv.URL)

	token, err := store.Obtain(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("expected fresh-token, got %q", token)
	}
	if repo.puts != 1 {
		t.Errorf("expected refreshed credential persisted once, got %d puts", repo.puts)
	}
	if repo.rec.RefreshToken != "new-refresh" {
		t.Errorf("expected rotated refresh token, got %q", repo.rec.RefreshToken)
	}
}

func TestObtainKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusOK,
		`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`)
	defer srv.Close()

	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:       userID,
		AccessToken:  "stale-token",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}}
	store := storeWith(repo, srv.URL)

	if _, err := store.Obtain(context.Background(), userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.rec.RefreshToken != "old-refresh" {
		t.Errorf("expected refresh token kept, got %q", repo.rec.RefreshToken)
	}
}

func TestObtainDiscardsCredentialOnRefreshFailure(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	defer srv.Close()

	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:       userID,
		AccessToken:  "stale-token",
		RefreshToken: "revoked-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}}
	store := storeWith(repo, srv.URL)

	_, err := store.Obtain(context.Background(), userID)
	if !apperr.IsCode(err, apperr.CodeRequiresAuthorization) {
		t.Fatalf("expected requires-authorization, got %v", err)
	}
	if repo.deletes != 1 {
		t.Errorf("expected dead credential discarded, got %d deletes", repo.deletes)
	}
	if repo.rec != nil {
		t.Error("expected credential removed")
	}
}

func TestObtainExpiredWithoutRefreshToken(t *testing.T) {
	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:      userID,
		AccessToken: "stale-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}}
	store := storeWith(repo, "http://localhost/token")

	_, err := store.Obtain(context.Background(), userID)
	if !apperr.IsCode(err, apperr.CodeRequiresAuthorization) {
		t.Fatalf("expected requires-authorization, got %v", err)
	}
	if repo.deletes != 0 {
		t.Errorf("expected no delete for merely-expired record, got %d", repo.deletes)
	}
}

func TestObtainTreatsNearExpiryAsExpired(t *testing.T) {
	srv := tokenEndpoint(t, http.StatusOK,
		`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`)
	defer srv.Close()

	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:       userID,
		AccessToken:  "almost-dead",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Minute),
	}}
	store := storeWith(repo, srv.URL)

	token, err := store.Obtain(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("expected refresh within skew window, got %q", token)
	}
}

func TestCompleteAuthorizationRejectsMissingInput(t *testing.T) {
	store := storeWith(&fakeCredentialRepo{}, "http://localhost/token")

	cases := []in.Exchange{
		{State: "", Code: "code"},
		{State: "state", Code: ""},
	}
	for _, ex := range cases {
		_, err := store.CompleteAuthorization(context.Background(), ex)
		if !apperr.IsCode(err, apperr.CodeBadRequest) {
			t.Errorf("expected bad-request for %+v, got %v", ex, err)
		}
	}
}

func TestCredentialRecordLifecycle(t *testing.T) {
	tests := []struct {
		name        string
		rec         domain.CredentialRecord
		valid       bool
		refreshable bool
		dead        bool
	}{
		{
			name: "live",
			rec: domain.CredentialRecord{
				AccessToken: "t",
				ExpiresAt:   time.Now().Add(time.Hour),
			},
			valid: true,
		},
		{
			name: "expired but refreshable",
			rec: domain.CredentialRecord{
				AccessToken:  "t",
				RefreshToken: "r",
				ExpiresAt:    time.Now().Add(-time.Hour),
			},
			refreshable: true,
		},
		{
			name: "dead",
			rec: domain.CredentialRecord{
				AccessToken: "t",
				ExpiresAt:   time.Now().Add(-time.Hour),
			},
			dead: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.rec.Refreshable(); got != tt.refreshable {
				t.Errorf("Refreshable() = %v, want %v", got, tt.refreshable)
			}
			if got := tt.rec.Dead(); got != tt.dead {
				t.Errorf("Dead() = %v, want %v", got, tt.dead)
			}
		})
	}
}

func TestObtainConcurrentRefreshSingleFlight(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	userID := uuid.New()
	repo := &fakeCredentialRepo{rec: &domain.CredentialRecord{
		UserID:       userID,
		AccessToken:  "stale-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}}
	store := storeWith(repo, srv.URL)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := store.Obtain(context.Background(), userID)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if hits != 1 {
		t.Errorf("expected a single refresh call, got %d", hits)
	}
}
