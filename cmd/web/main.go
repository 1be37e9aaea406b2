package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/phq9bot/internal/ai"
	"github.com/myrjola/phq9bot/internal/envstruct"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/logging"
	"github.com/myrjola/phq9bot/internal/pprofserver"
	"github.com/myrjola/phq9bot/internal/repositories"
	"github.com/myrjola/phq9bot/internal/screening"
	"github.com/myrjola/phq9bot/internal/sqlite"
)

type application struct {
	logger         *slog.Logger
	screenings     *screening.Manager
	transcriber    transcriber
	sessionManager *scs.SessionManager
	pages          *pageTemplates
	maxUploadBytes int64
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"PHQ9_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ephemeral in-memory database.
	SqliteURL          string        `env:"PHQ9_SQLITE_URL" envDefault:"./phq9.sqlite"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model              string        `env:"PHQ9_MODEL" envDefault:"gpt-4o"`
	TranscriptionModel string        `env:"PHQ9_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	LLMTimeout         time.Duration `env:"PHQ9_LLM_TIMEOUT" envDefault:"20s"`
	RequestTimeout     time.Duration `env:"PHQ9_REQUEST_TIMEOUT" envDefault:"90s"`
	SessionTTL         time.Duration `env:"PHQ9_SESSION_TTL" envDefault:"2h"`
	MaxSessions        int           `env:"PHQ9_MAX_SESSIONS" envDefault:"1024"`
	Retention          time.Duration `env:"PHQ9_RETENTION" envDefault:"168h"`
	MaxUploadBytes     int           `env:"PHQ9_MAX_UPLOAD_BYTES" envDefault:"26214400"`
	// PprofAddr enables the pprof server when set, e.g. localhost:6060.
	PprofAddr string `env:"PHQ9_PPROF_ADDR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 30*time.Minute) //nolint:mnd // 30 minutes
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = cfg.Retention
	sessionManager.IdleTimeout = cfg.SessionTTL
	sessionManager.Cookie.Secure = true

	aiClient := ai.NewClient(ai.Config{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.OpenAIBaseURL,
		Model:              cfg.Model,
		TranscriptionModel: cfg.TranscriptionModel,
	}, logger)

	screenings := screening.NewManager(screening.Config{
		Classifier:  aiClient,
		Empathizer:  aiClient,
		Summarizer:  aiClient,
		Chatter:     aiClient,
		Store:       repositories.NewScreeningRepository(db, logger),
		CallTimeout: cfg.LLMTimeout,
		SessionTTL:  cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Retention:   cfg.Retention,
		Source:      nil,
		Logger:      logger,
	})
	go screenings.RunSweeper(ctx, screening.SweepInterval)

	var pages *pageTemplates
	if pages, err = parsePageTemplates(); err != nil {
		return errors.Wrap(err, "parse page templates")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	app := application{
		logger:         logger,
		screenings:     screenings,
		transcriber:    aiClient,
		sessionManager: sessionManager,
		pages:          pages,
		maxUploadBytes: int64(cfg.MaxUploadBytes),
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, cfg.RequestTimeout); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // stop() is not needed when exiting.
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
