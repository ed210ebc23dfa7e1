package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"flowchat/backend/internal/api"
	"flowchat/backend/internal/config"
	"flowchat/backend/internal/database"
	"flowchat/backend/internal/llm"
	"flowchat/backend/internal/memory"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/queue"
	"flowchat/backend/internal/repository"
	"flowchat/backend/internal/service"
)

// App holds the wired components of a running backend.
type App struct {
	Config      *config.Config
	Server      *http.Server
	Queue       *queue.Queue
	ChatService *service.ChatService

	closers []func() error
}

// Run loads configuration and serves until ctx is cancelled. It returns the
// process exit code.
func Run(ctx context.Context) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	a, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	if err := a.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// NewApp connects the store and model provider and builds the HTTP server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repo, err := a.openRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	settingsService := service.NewSettingsService(repo)
	appSettings, err := settingsService.InitAndGet(ctx, &model.Settings{
		SystemPrompt: cfg.InitialSystemPrompt,
		MainModel:    cfg.MainModel,
		SupportModel: cfg.SupportModel,
		ImageModel:   cfg.ImageModel,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize application settings: %w", err)
	}
	slog.Info("Loaded application settings", "main_model", appSettings.MainModel, "support_model", appSettings.SupportModel)

	extractor := memory.NewExtractor(repo, provider, settingsService.SupportModel)
	a.Queue = queue.New(extractor, queue.Config{
		MaxRetries: cfg.QueueMaxRetries,
		BaseDelay:  cfg.QueueBaseDelay,
	}, queue.WithCallbacks(queueLogging()))

	a.ChatService = service.NewChatService(repo, provider, settingsService, a.Queue, service.Config{
		UserID:                cfg.DefaultUserID,
		GenerationMaxAttempts: cfg.GenerationMaxAttempts,
		GenerationRetryDelay:  cfg.GenerationRetryDelay,
	})

	chatHandler := api.NewChatHandler(a.ChatService, settingsService)
	router := api.NewRouter(chatHandler, cfg.CorsAllowedOrigins)

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts everything
// down within the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

// shutdown stops accepting requests, cancels in-flight replies, flushes chat
// writes and drains the memory queue.
func (a *App) shutdown() error {
	slog.Info("Shutting down", "timeout", a.Config.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.ChatService.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("chat service: %w", err))
	}
	if err := a.Queue.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory queue: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases store connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) openRepository(ctx context.Context) (repository.Repository, error) {
	switch a.Config.StoreDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("Successfully connected to Redis.", "addr", a.Config.RedisAddr)
		return repository.NewRedisRepository(rdb), nil
	default:
		db, err := database.InitDB(a.Config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		slog.Info("Successfully connected to SQLite database.", "path", a.Config.DatabasePath)
		return repository.NewSQLiteRepository(db), nil
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		slog.Info("Using OpenAI compatible provider", "base_url", cfg.OpenAIBaseURL)
		return llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	default:
		if err := waitForOllama(ctx, cfg.OllamaURL); err != nil {
			return nil, err
		}
		return llm.NewOllamaProvider(cfg.OllamaURL), nil
	}
}

func queueLogging() queue.Callbacks {
	return queue.Callbacks{
		OnStart: func(taskID string) {
			slog.Debug("Memory task started", "task_id", taskID)
		},
		OnError: func(taskID string, err error) {
			slog.Warn("Memory task attempt failed", "task_id", taskID, "error", err)
		},
		OnComplete: func(taskID string, success bool) {
			if success {
				slog.Info("Memory task committed", "task_id", taskID)
				return
			}
			slog.Error("Memory task dropped after retries", "task_id", taskID)
		},
	}
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// waitForOllama polls the Ollama server until it answers or ctx ends.
func waitForOllama(ctx context.Context, ollamaURL string) error {
	slog.Info("Waiting for Ollama to be ready...", "url", ollamaURL)
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ollamaURL, nil)
		if err != nil {
			return fmt.Errorf("invalid ollama url: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in ollama health check", "error", bErr)
			}
			if resp.StatusCode == http.StatusOK {
				slog.Info("Ollama is ready.")
				return nil
			}
		}
		slog.Debug("Ollama not ready yet, retrying in 3 seconds...", "url", ollamaURL, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("ollama not reachable at %s: %w", ollamaURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
