package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/futurxteam/MedTour-backend/internal/config"
	"github.com/futurxteam/MedTour-backend/internal/domain/enquiry"
	"github.com/futurxteam/MedTour-backend/internal/domain/identity"
	"github.com/futurxteam/MedTour-backend/internal/domain/journey"
	"github.com/futurxteam/MedTour-backend/internal/domain/medicalrecord"
	"github.com/futurxteam/MedTour-backend/internal/platform/auth"
	"github.com/futurxteam/MedTour-backend/internal/platform/blobstore"
	"github.com/futurxteam/MedTour-backend/internal/platform/db"
	"github.com/futurxteam/MedTour-backend/internal/platform/middleware"
)

// enquiryStoreAdapter adapts the enquiry service to the journey package's
// EnquiryStore interface, translating sentinels so the journey domain never
// imports the enquiry package.
type enquiryStoreAdapter struct {
	svc *enquiry.Service
}

func (a *enquiryStoreAdapter) GetOwned(ctx context.Context, id, pa uuid.UUID) (*journey.EnquirySummary, error) {
	e, err := a.svc.GetOwned(ctx, id, pa)
	if errors.Is(err, enquiry.ErrNotFound) {
		return nil, journey.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return summarize(e), nil
}

func (a *enquiryStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*journey.EnquirySummary, error) {
	e, err := a.svc.GetByID(ctx, id)
	if errors.Is(err, enquiry.ErrNotFound) {
		return nil, journey.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return summarize(e), nil
}

func (a *enquiryStoreAdapter) MarkInService(ctx context.Context, id uuid.UUID) error {
	return a.svc.MarkInService(ctx, id)
}

func (a *enquiryStoreAdapter) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return a.svc.MarkCompleted(ctx, id)
}

func summarize(e *enquiry.Enquiry) *journey.EnquirySummary {
	return &journey.EnquirySummary{
		ID:          e.ID,
		PatientName: e.PatientName,
		Phone:       e.Phone,
		Status:      e.Status,
	}
}

// journeyAccessAdapter exposes journey ownership checks to the medical-record
// service, mapping the journey sentinel to the record domain's.
type journeyAccessAdapter struct {
	svc *journey.Service
}

func (a *journeyAccessAdapter) CheckOwned(ctx context.Context, journeyID, pa uuid.UUID) error {
	_, err := a.svc.GetJourney(ctx, journeyID, pa)
	if errors.Is(err, journey.ErrNotFound) {
		return medicalrecord.ErrNotFound
	}
	return err
}

func (a *journeyAccessAdapter) PatientJourneyID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	j, err := a.svc.GetPatientJourney(ctx, patientID)
	if errors.Is(err, journey.ErrNotFound) {
		return uuid.Nil, medicalrecord.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return j.ID, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medtour-server",
		Short: "Medical tourism marketplace API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	files, err := blobstore.NewFSStore(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")
	public := apiV1.Group("/public")

	// Authenticated groups. The public group stays outside the auth
	// middleware so lead capture works without an account.
	var authmw echo.MiddlewareFunc
	if cfg.IsDev() {
		authmw = auth.DevAuthMiddleware()
	} else {
		authmw = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
		})
	}
	assistant := apiV1.Group("/assistant", authmw)
	patient := apiV1.Group("/patient", authmw)
	admin := apiV1.Group("/admin", authmw)

	// Repositories and services
	enquiryRepo := enquiry.NewRepoPG(pool)
	enquirySvc := enquiry.NewService(enquiryRepo)

	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo)

	txRunner := func(ctx context.Context, fn func(context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	journeyRepo := journey.NewRepoPG(pool)
	journeySvc := journey.NewService(journeyRepo, &enquiryStoreAdapter{svc: enquirySvc}, identitySvc, txRunner)

	recordRepo := medicalrecord.NewRepoPG(pool)
	recordSvc := medicalrecord.NewService(recordRepo, &journeyAccessAdapter{svc: journeySvc}, files)

	// Routes
	enquiry.NewHandler(enquirySvc).RegisterRoutes(public, assistant, admin)
	identity.NewHandler(identitySvc).RegisterRoutes(assistant)
	journey.NewHandler(journeySvc).RegisterRoutes(assistant, patient)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(assistant, patient)

	// Uploaded files are served statically from the blob root.
	e.Static("/uploads", cfg.UploadDir)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
