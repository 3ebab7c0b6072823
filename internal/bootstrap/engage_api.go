package bootstrap

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	apihttp "engage_server/adapter/in/http"
	"engage_server/config"
	"engage_server/infra/middleware"
	"engage_server/pkg/logger"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "engage-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
		ServerHeader:          "",
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials requires explicit origins, never "*".
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining",
		AllowCredentials: allowCredentials,
	}))

	registerRoutes(app, deps)

	return app, cleanup, nil
}

func registerRoutes(app *fiber.App, deps *Dependencies) {
	cfg := deps.Config

	healthHandler := apihttp.NewHealthHandler(deps.DB, deps.Redis)
	oauthHandler := apihttp.NewOAuthHandler(deps.CredentialStore)
	analysisHandler := apihttp.NewAnalysisHandler(deps.Orchestrator)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Health)

	// Provider redirect target, authenticated by state binding only.
	api.Get("/gmail/callback", oauthHandler.Callback)

	authed := api.Group("", middleware.JWTAuth(cfg.JWTSecret))

	connectLimit := middleware.RateLimit(deps.Redis, "connect", cfg.ConnectRateLimit, time.Hour)
	authed.Get("/gmail/connect", connectLimit, oauthHandler.Connect)
	authed.Get("/gmail/status", oauthHandler.Status)

	analyzeLimit := middleware.RateLimit(deps.Redis, "analyze", cfg.AnalyzeRateLimit, time.Hour)
	authed.Post("/analyze", analyzeLimit, analysisHandler.Analyze)

	authed.Get("/analyses", analysisHandler.List)
	authed.Get("/analyses/:id", analysisHandler.Get)
	authed.Get("/export/:id", analysisHandler.Export)
	authed.Get("/stats", analysisHandler.Stats)
}
