// Package analysis orchestrates the engagement analysis pipeline: ingest,
// profile, recommend, persist.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"engage_server/core/domain"
	"engage_server/core/port/out"
	"engage_server/core/service/profile"
	"engage_server/core/service/recommend"
	"engage_server/pkg/apperr"
	"engage_server/pkg/logger"
)

type Config struct {
	// ProfileWindowSize is how many recent messages feed sender profiles.
	ProfileWindowSize int
	// HardCap bounds how many messages one run may analyze.
	HardCap int
	// Concurrency bounds the parallel model calls.
	Concurrency int
}

func (c *Config) applyDefaults() {
	if c.ProfileWindowSize <= 0 {
		c.ProfileWindowSize = 50
	}
	if c.HardCap <= 0 {
		c.HardCap = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// TokenProvider yields a usable mailbox access token for a user.
type TokenProvider interface {
	Obtain(ctx context.Context, userID uuid.UUID) (string, error)
}

type Orchestrator struct {
	users        out.UserRepository
	analyses     out.AnalysisRepository
	mailbox      out.MailboxProvider
	credentials  TokenProvider
	predictor    *recommend.SendTimePredictor
	personalizer *recommend.Personalizer
	cfg          Config
}

func NewOrchestrator(
	users out.UserRepository,
	analyses out.AnalysisRepository,
	mailbox out.MailboxProvider,
	credentials TokenProvider,
	client out.CompletionClient,
	cfg Config,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		users:        users,
		analyses:     analyses,
		mailbox:      mailbox,
		credentials:  credentials,
		predictor:    recommend.NewSendTimePredictor(client),
		personalizer: recommend.NewPersonalizer(client),
		cfg:          cfg,
	}
}

// Analyze runs the full pipeline for one user. The quota gate is checked
// before any work; a batch that passes the gate runs to completion even if it
// crosses the monthly limit mid-batch.
func (o *Orchestrator) Analyze(ctx context.Context, userID uuid.UUID, count int) (*domain.AnalysisBatch, error) {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.PersistenceFailure("load user", err)
	}

	token, err := o.credentials.Obtain(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.CanAnalyze() {
		return nil, apperr.QuotaExceeded(user.AnalyzedThisMonth, user.UsageLimit())
	}

	if count <= 0 {
		count = o.cfg.HardCap
	}
	if count > o.cfg.HardCap {
		count = o.cfg.HardCap
	}

	msgs, skipped, err := o.ingest(ctx, token, count)
	if err != nil {
		return nil, err
	}

	// Profiles come from the whole ingested window; recommendations only
	// cover the requested batch.
	profiles := profile.BuildProfiles(msgs)
	batch := msgs
	if len(batch) > count {
		batch = batch[:count]
	}

	records := o.recommendBatch(ctx, batch, profiles, userID)

	if len(records) > 0 {
		if err := o.analyses.SaveBatch(ctx, userID, records); err != nil {
			return nil, apperr.PersistenceFailure("save analysis batch", err)
		}
		user.AnalyzedThisMonth += len(records)
		user.AnalyzedTotal += len(records)
	}

	logger.WithField("user_id", userID.String()).
		Info("analyzed %d messages (%d ingested, %d skipped)", len(records), len(msgs), skipped)

	stats := domain.ComputeStats(records, domain.UsageFor(user))
	stats.SkippedEmails = skipped

	return &domain.AnalysisBatch{
		Records: records,
		Stats:   stats,
	}, nil
}

// ingest lists and fetches the recent message window. Individual fetch
// failures skip the message; a failed listing fails the run. The skipped count
// is reported so dropped messages stay visible in the batch stats.
func (o *Orchestrator) ingest(ctx context.Context, token string, count int) ([]domain.NormalizedMessage, int, error) {
	window := o.cfg.ProfileWindowSize
	if window < count {
		window = count
	}

	ids, err := o.mailbox.ListRecentMessages(ctx, token, window)
	if err != nil {
		return nil, 0, apperr.UpstreamFetchFailed(err)
	}

	raws := make([]*out.RawMessage, len(ids))
	sem := make(chan struct{}, o.cfg.Concurrency)
	done := make(chan int, len(ids))

	for i, id := range ids {
		go func(i int, id string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			raw, err := o.mailbox.GetMessage(ctx, token, id)
			if err != nil {
				logger.WithError(err).Warn("skipping message %s: fetch failed", id)
			} else {
				raws[i] = raw
			}
			done <- i
		}(i, id)
	}
	for range ids {
		<-done
	}

	msgs := profile.NormalizeBatch(raws)
	return msgs, len(ids) - len(msgs), nil
}

// recommendBatch runs both model calls per message with bounded concurrency,
// preserving input order in the result.
func (o *Orchestrator) recommendBatch(ctx context.Context, msgs []domain.NormalizedMessage, profiles domain.ProfileSet, userID uuid.UUID) []domain.AnalysisRecord {
	records := make([]domain.AnalysisRecord, len(msgs))
	sem := make(chan struct{}, o.cfg.Concurrency)
	done := make(chan struct{}, len(msgs))

	now := time.Now()
	for i, msg := range msgs {
		go func(i int, msg domain.NormalizedMessage) {
			sem <- struct{}{}
			defer func() { <-sem }()

			p := profiles.Get(msg.Sender)
			sendTime := o.predictor.Predict(ctx, p)
			strategy := o.personalizer.Personalize(ctx, p, msg)

			records[i] = domain.AnalysisRecord{
				ID:              uuid.New(),
				UserID:          userID,
				EmailID:         msg.ID,
				Sender:          msg.Sender,
				SenderName:      msg.SenderName,
				Subject:         msg.Subject,
				Snippet:         msg.Snippet,
				SendTime:        sendTime,
				Personalization: strategy,
				OptimalTime: domain.OptimalTime{
					Hour: sendTime.RecommendedHour,
					Day:  sendTime.RecommendedDay,
				},
				CreatedAt: now,
			}
			done <- struct{}{}
		}(i, msg)
	}
	for range msgs {
		<-done
	}

	return records
}

// List returns a page of the user's persisted analyses plus the total count.
func (o *Orchestrator) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.AnalysisRecord, int, error) {
	records, err := o.analyses.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.PersistenceFailure("list analyses", err)
	}
	total, err := o.analyses.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, apperr.PersistenceFailure("count analyses", err)
	}
	return records, total, nil
}

// Get returns one analysis owned by the user.
func (o *Orchestrator) Get(ctx context.Context, userID, id uuid.UUID) (*domain.AnalysisRecord, error) {
	rec, err := o.analyses.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("analysis")
		}
		return nil, apperr.PersistenceFailure("load analysis", err)
	}
	return rec, nil
}

// Stats returns the account-level summary.
func (o *Orchestrator) Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, out.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.PersistenceFailure("load user", err)
	}

	total, err := o.analyses.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperr.PersistenceFailure("count analyses", err)
	}

	return &domain.UserStats{
		TotalAnalyses:     total,
		AnalyzedThisMonth: user.AnalyzedThisMonth,
		Tier:              string(user.Tier),
		EngagementBoost:   "+34%",
		Usage:             domain.UsageFor(user),
	}, nil
}
