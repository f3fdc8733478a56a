package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/leo-oli/social-care-omaha/internal/config"
	"github.com/leo-oli/social-care-omaha/internal/domain/careplan"
	"github.com/leo-oli/social-care-omaha/internal/domain/patient"
	"github.com/leo-oli/social-care-omaha/internal/domain/problem"
	"github.com/leo-oli/social-care-omaha/internal/domain/taxonomy"
	"github.com/leo-oli/social-care-omaha/internal/platform/db"
	"github.com/leo-oli/social-care-omaha/internal/platform/groupoffice"
	"github.com/leo-oli/social-care-omaha/internal/platform/middleware"
	"github.com/leo-oli/social-care-omaha/internal/platform/pii"
)

const migrationsDir = "migrations"

func main() {
	root := &cobra.Command{
		Use:   "omaha-server",
		Short: "Social care planning service built on the Omaha System",
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return serve(cfg, logger, pool)
		},
	}
}

func serve(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) error {
	enc, err := buildEncryptor(cfg)
	if err != nil {
		return err
	}
	key, err := cfg.EncryptionKey()
	if err != nil {
		return err
	}
	indexer := pii.NewBlindIndexer(key)

	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, pool, fn)
	}

	goClient := groupoffice.NewClient(cfg.GroupOfficeURL, cfg.GroupOfficeUsername,
		cfg.GroupOfficePassword, cfg.GroupOfficeNotebook, logger)

	taxonomyRepo := taxonomy.NewRepoPG(pool)
	taxonomySvc := taxonomy.NewService(taxonomyRepo)

	patientRepo := patient.NewRepoPG(pool)
	vault := patient.NewVaultPG(pool, enc, indexer)
	consentRepo := patient.NewConsentRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, vault, consentRepo, runTx, logger)

	problemRepo := problem.NewRepoPG(pool)
	problemSvc := problem.NewService(problemRepo, patientRepo, taxonomySvc, runTx, logger)

	composer := careplan.NewComposer(patientRepo, vault, problemRepo, taxonomySvc, runTx, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down", "database": "unreachable"})
		}
		groupOffice := "disabled"
		if goClient.Configured() {
			groupOffice = "ok"
			if err := goClient.Healthcheck(c.Request().Context()); err != nil {
				groupOffice = "unreachable"
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "groupoffice": groupOffice})
	})

	api := e.Group("/api/v1")
	taxonomy.NewHandler(taxonomySvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	problem.NewHandler(problemSvc).RegisterRoutes(api)
	careplan.NewHandler(composer, goClient, patientSvc).RegisterRoutes(api)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

// buildEncryptor assembles the rotating PII encryptor: retired keys get
// versions 1..n in the order given, the current key gets n+1.
func buildEncryptor(cfg *config.Config) (pii.FieldEncryptor, error) {
	current, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	previous, err := cfg.PreviousKeys()
	if err != nil {
		return nil, err
	}

	enc, err := pii.NewRotatingEncryptor(current, len(previous)+1)
	if err != nil {
		return nil, err
	}
	for i, key := range previous {
		if err := enc.AddPreviousKey(key, i+1); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", count).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the Omaha System catalog and consent definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return taxonomy.Seed(ctx, pool, logger)
		},
	}
}
