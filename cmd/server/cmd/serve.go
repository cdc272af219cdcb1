package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gatherguru/server/internal/api"
	"github.com/gatherguru/server/internal/auth"
	"github.com/gatherguru/server/internal/config"
	"github.com/gatherguru/server/internal/domain/events"
	"github.com/gatherguru/server/internal/domain/principals"
	"github.com/gatherguru/server/internal/metrics"
	storagemongo "github.com/gatherguru/server/internal/storage/mongo"
	"github.com/gatherguru/server/internal/upload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GatherGuru HTTP server",
	Long: `Start the GatherGuru HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Connect to MongoDB and ensure indexes
- Bootstrap an admin account if ADMIN_* env vars are set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 5000)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("environment", cfg.Environment).Msg("starting GatherGuru server")

	metrics.Init(Version, GitCommit)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, disconnect, err := storagemongo.Connect(connectCtx, cfg.Mongo)
	connectCancel()
	if err != nil {
		return fmt.Errorf("mongodb connection failed: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("mongodb disconnect error")
		}
	}()

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = storagemongo.EnsureIndexes(indexCtx, db)
	indexCancel()
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	principalsRepo := storagemongo.NewPrincipalsRepository(db)
	eventsRepo := storagemongo.NewEventsRepository(db)
	principalsService := principals.NewService(principalsRepo, logger)
	eventsService := events.NewService(eventsRepo, logger)
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	uploader, uploadsDir, err := buildUploader(cfg, logger)
	if err != nil {
		return err
	}

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdmin(bootstrapCtx, cfg, principalsService, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootstrapCancel()

	router := api.NewRouter(api.Deps{
		Config:     cfg,
		Logger:     logger,
		Principals: principalsService,
		Events:     eventsService,
		Tokens:     tokens,
		Store:      principalsRepo,
		Uploader:   uploader,
		UploadsDir: uploadsDir,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// buildUploader selects the upload backend. The local driver also creates
// the uploads tree so the static file route has something to serve.
func buildUploader(cfg config.Config, logger zerolog.Logger) (upload.Uploader, string, error) {
	switch cfg.Upload.Driver {
	case "s3":
		uploader, err := upload.NewS3Uploader(context.Background(), cfg.Upload, logger)
		if err != nil {
			return nil, "", fmt.Errorf("s3 uploader: %w", err)
		}
		return uploader, "", nil
	default:
		root := cfg.Upload.LocalDir
		for _, dir := range []string{root,
			filepath.Join(root, upload.CategoryEventBanners),
			filepath.Join(root, upload.CategoryProfileImages),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create uploads dir %s: %w", dir, err)
			}
		}
		logger.Info().Str("dir", root).Msg("serving uploads from local disk")
		return upload.NewLocalUploader(root, logger), root, nil
	}
}

// bootstrapAdmin seeds the first admin account from env vars. An existing
// account with the same email is left alone.
func bootstrapAdmin(ctx context.Context, cfg config.Config, service *principals.Service, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Name == "" || bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	_, err := service.Register(ctx, principals.RoleAdmin, principals.RegisterInput{
		Name:     bootstrap.Name,
		Email:    bootstrap.Email,
		Password: bootstrap.Password,
	})
	if errors.Is(err, principals.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.Environment == "production" {
		logger.Info().Msg("bootstrapped admin account")
	} else {
		logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin account")
	}
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
