package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/availability"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/domain/identity"
	"github.com/medibook/medibook/internal/domain/medicalrecord"
	"github.com/medibook/medibook/internal/domain/notification"
	"github.com/medibook/medibook/internal/domain/patient"
	"github.com/medibook/medibook/internal/domain/teleconsultation"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/db"
	"github.com/medibook/medibook/internal/platform/mailer"
	"github.com/medibook/medibook/internal/platform/middleware"
	"github.com/medibook/medibook/internal/platform/websocket"
)

// AvailabilityStoreAdapter adapts the availability repository to the booking
// scheduler's view of a weekly window, avoiding a direct dependency between
// the appointment and availability packages.
type AvailabilityStoreAdapter struct {
	windows availability.Repository
}

func NewAvailabilityStoreAdapter(windows availability.Repository) *AvailabilityStoreAdapter {
	return &AvailabilityStoreAdapter{windows: windows}
}

// WindowFor implements appointment.AvailabilityStore. A missing row means the
// doctor has no availability that day and is reported as a nil window.
func (a *AvailabilityStoreAdapter) WindowFor(ctx context.Context, doctorID uuid.UUID, day string) (*appointment.AvailabilityWindow, error) {
	w, err := a.windows.GetByDoctorAndDay(ctx, doctorID, day)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	startMin, err := availability.MinuteOfDay(w.StartTime)
	if err != nil {
		return nil, err
	}
	endMin, err := availability.MinuteOfDay(w.EndTime)
	if err != nil {
		return nil, err
	}
	return &appointment.AvailabilityWindow{
		Day:         w.DayOfWeek,
		Start:       w.StartTime,
		End:         w.EndTime,
		StartMinute: startMin,
		EndMinute:   endMin,
	}, nil
}

// UserResolverAdapter maps appointment participants to their linked user
// accounts for in-app notifications.
type UserResolverAdapter struct {
	patients patient.Repository
	doctors  doctor.Repository
}

func NewUserResolverAdapter(patients patient.Repository, doctors doctor.Repository) *UserResolverAdapter {
	return &UserResolverAdapter{patients: patients, doctors: doctors}
}

func (a *UserResolverAdapter) UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := a.patients.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	if p.UserID == nil {
		return uuid.Nil, nil
	}
	return *p.UserID, nil
}

func (a *UserResolverAdapter) UserIDForDoctor(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	d, err := a.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return uuid.Nil, err
	}
	if d.UserID == nil {
		return uuid.Nil, nil
	}
	return *d.UserID, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medibook-server",
		Short: "MediBook appointment management API server",
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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	clinicLoc, err := cfg.ClinicLocation()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid clinic timezone")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Mailer
	tmpl := mailer.NewTemplateEngine()
	var mail mailer.EmailSender
	if cfg.SMTPHost != "" {
		port, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid SMTP_PORT")
		}
		mail = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     port,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn().Msg("SMTP_HOST not set; outgoing email is disabled")
		mail = &mailer.MockEmailSender{}
	}

	// Token issuer
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Public routes carry no auth middleware; everything else requires a
	// verified identity on the request context.
	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(rateLimitCfg))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(issuer))
	}

	// -- Register Domain Handlers --

	// Identity domain
	userRepo := identity.NewUserRepoPG(pool)
	identitySvc := identity.NewService(userRepo, issuer, mail, tmpl, logger)
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterPublicRoutes(public)
	identityHandler.RegisterRoutes(apiV1)

	// Patient domain
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Doctor domain
	doctorRepo := doctor.NewRepoPG(pool)
	doctorSvc := doctor.NewService(doctorRepo)
	doctorHandler := doctor.NewHandler(doctorSvc)
	doctorHandler.RegisterRoutes(apiV1)

	// Availability domain
	availRepo := availability.NewRepoPG(pool)
	availSvc := availability.NewService(availRepo)
	availHandler := availability.NewHandler(availSvc)
	availHandler.RegisterRoutes(apiV1)

	// Notification domain
	notifRepo := notification.NewRepoPG(pool)
	notifSvc := notification.NewService(notifRepo)
	notifHandler := notification.NewHandler(notifSvc)
	notifHandler.RegisterRoutes(apiV1)

	// Appointment domain
	apptRepo := appointment.NewRepoPG(pool)
	scheduler := appointment.NewScheduler(NewAvailabilityStoreAdapter(availRepo), apptRepo, clinicLoc)
	notifier := notification.NewAppointmentNotifier(notifSvc, NewUserResolverAdapter(patientRepo, doctorRepo), logger)
	apptSvc := appointment.NewService(scheduler, apptRepo, notifier, logger)
	sweeper := appointment.NewSweeper(apptRepo, mail, tmpl, logger,
		time.Duration(cfg.ReminderInterval)*time.Minute,
		time.Duration(cfg.ReminderLookahead)*time.Hour,
		clinicLoc)
	apptHandler := appointment.NewHandler(apptSvc, sweeper)
	apptHandler.RegisterRoutes(apiV1)

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go sweeper.Run(sweepCtx)

	// Teleconsultation domain
	teleRepo := teleconsultation.NewRepoPG(pool)
	teleMsgRepo := teleconsultation.NewMessageRepoPG(pool)
	teleSvc := teleconsultation.NewService(teleRepo, teleMsgRepo)
	teleHandler := teleconsultation.NewHandler(teleSvc)
	teleHandler.RegisterRoutes(apiV1)

	// WebSocket hub for live consultation rooms; chat messages are persisted
	// through the teleconsultation service before broadcast.
	hub := websocket.NewHub(logger)
	wsHandler := websocket.NewWebSocketHandler(hub, teleSvc)
	wsHandler.RegisterRoutes(apiV1)

	// Medical record domain
	recordRepo := medicalrecord.NewRepoPG(pool)
	recordSvc := medicalrecord.NewService(recordRepo)
	recordHandler := medicalrecord.NewHandler(recordSvc)
	recordHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}
