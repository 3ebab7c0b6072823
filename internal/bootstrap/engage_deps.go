// Package bootstrap wires configuration, infrastructure, and services into a
// running API.
package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"engage_server/adapter/out/persistence"
	"engage_server/adapter/out/provider"
	"engage_server/config"
	"engage_server/core/llm"
	"engage_server/core/service/analysis"
	"engage_server/core/service/auth"
	"engage_server/infra/database"
	"engage_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Repositories
	UserRepo       *persistence.UserAdapter
	CredentialRepo *persistence.CredentialAdapter
	AnalysisRepo   *persistence.AnalysisAdapter

	// Providers
	Mailbox   *provider.GmailAdapter
	LLMClient *llm.Client

	// Services
	CredentialStore *auth.CredentialStore
	Orchestrator    *analysis.Orchestrator
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := database.NewSqlxDB(cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, nil, err
	}

	userRepo := persistence.NewUserAdapter(sqlDB)
	credentialRepo := persistence.NewCredentialAdapter(sqlDB)
	analysisRepo := persistence.NewAnalysisAdapter(sqlDB)

	mailbox := provider.NewGmailAdapter()
	llmClient := llm.NewClientWithConfig(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		TimeoutSec:  cfg.LLMTimeoutSec,
	})

	credentialStore := auth.NewCredentialStore(
		credentialRepo, rdb,
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL,
	)

	orchestrator := analysis.NewOrchestrator(
		userRepo, analysisRepo, mailbox, credentialStore, llmClient,
		analysis.Config{
			ProfileWindowSize: cfg.ProfileWindowSize,
			HardCap:           cfg.AnalyzeHardCap,
			Concurrency:       cfg.AnalyzeConcurrency,
		},
	)

	deps := &Dependencies{
		Config:          cfg,
		DB:              pool,
		SQLDB:           sqlDB,
		Redis:           rdb,
		UserRepo:        userRepo,
		CredentialRepo:  credentialRepo,
		AnalysisRepo:    analysisRepo,
		Mailbox:         mailbox,
		LLMClient:       llmClient,
		CredentialStore: credentialStore,
		Orchestrator:    orchestrator,
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.WithError(err).Warn("closing redis")
		}
		if err := sqlDB.Close(); err != nil {
			logger.WithError(err).Warn("closing sqlx")
		}
		pool.Close()
	}

	return deps, cleanup, nil
}
