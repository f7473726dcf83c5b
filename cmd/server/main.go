// @title Begegnungscafé API
// @version 1.0
// @description Events with capacity, waitlists and approval, recurring series and room bookings.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"begegnungscafe/config"
	_ "begegnungscafe/docs"
	"begegnungscafe/internal/adapters/auth"
	"begegnungscafe/internal/adapters/calendar"
	"begegnungscafe/internal/adapters/email"
	delivery "begegnungscafe/internal/delivery/http"
	"begegnungscafe/internal/delivery/http/controllers"
	"begegnungscafe/internal/domain"
	"begegnungscafe/internal/recurrence"
	"begegnungscafe/internal/repository/postgres"
	"begegnungscafe/internal/services"
)

func main() {
	app := &cli.App{
		Name:  "begegnungscafe",
		Usage: "Event registration and room booking service.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seriesCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "Apply the schema before serving."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := config.NewLogger()
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set")
			}

			db, err := openDB(c.Context, cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()
			if c.Bool("migrate") {
				if err := postgres.Migrate(c.Context, db); err != nil {
					return err
				}
			}

			mailer, err := email.NewMailer(email.MailerConfig{
				Provider:    cfg.Email.Provider,
				FromAddress: cfg.Email.FromAddress,
				FromName:    cfg.Email.FromName,
				SES: email.SESConfig{
					Region:             cfg.Email.Region,
					AccessKeyID:        cfg.Email.AccessKeyID,
					SecretAccessKey:    cfg.Email.SecretAccessKey,
					InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
				},
			}, logger)
			if err != nil {
				return fmt.Errorf("create mailer: %w", err)
			}

			loc := cfg.Location()
			eventRepo := postgres.NewEventRepository(db)
			userRepo := postgres.NewUserRepository(db)
			roomRepo := postgres.NewRoomRepository(db)
			bookingRepo := postgres.NewBookingRepository(db)

			notifier := services.NewNotificationService(mailer, email.NewTemplateRenderer(), logger, loc)
			eventSvc := services.NewEventService(eventRepo, userRepo, calendar.NewICalEncoder(cfg.CalendarDomain), logger, loc, cfg.RequestTimeout)
			registrationSvc := services.NewRegistrationService(eventRepo, userRepo, notifier, logger, loc, cfg.RequestTimeout)
			bookingSvc := services.NewBookingService(roomRepo, bookingRepo, userRepo, notifier, logger, cfg.RequestTimeout)

			router := delivery.NewRouter(delivery.RouterDeps{
				Logger:         logger,
				Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
				AllowedOrigins: cfg.AllowedOrigins,
				Events:         controllers.NewEventController(logger, eventSvc),
				Registrations:  controllers.NewRegistrationController(logger, registrationSvc),
				Bookings:       controllers.NewBookingController(logger, bookingSvc),
			})

			return listen(c.Context, logger, ":"+cfg.Port, router)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "print", Usage: "Print the schema instead of applying it."},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("print") {
				fmt.Print(postgres.Schema())
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := config.NewLogger()
			db, err := openDB(c.Context, cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(c.Context, db); err != nil {
				return err
			}
			logger.Info("Schema applied.")
			return nil
		},
	}
}

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "Preview the occurrences a recurring event would create.",
		Flags: []cli.Flag{
			&cli.TimestampFlag{Name: "start", Layout: time.RFC3339, Required: true, Usage: "First occurrence start (RFC 3339)."},
			&cli.TimestampFlag{Name: "end", Layout: time.RFC3339, Required: true, Usage: "First occurrence end (RFC 3339)."},
			&cli.StringFlag{Name: "kind", Value: string(domain.RecurrenceWeekly), Usage: "none, daily, weekly or monthly."},
			&cli.TimestampFlag{Name: "until", Layout: time.DateOnly, Usage: "Last day of the series (inclusive)."},
			&cli.StringFlag{Name: "timezone", Value: "Europe/Berlin", EnvVars: []string{"TIMEZONE"}},
		},
		Action: func(c *cli.Context) error {
			loc, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", c.String("timezone"), err)
			}
			start := c.Timestamp("start").In(loc)
			kind := domain.RecurrenceKind(c.String("kind"))
			var until *time.Time
			if c.IsSet("until") {
				t := c.Timestamp("until")
				d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
				until = &d
			}

			series, err := recurrence.Expand(start, c.Timestamp("end").In(loc), kind, until, loc)
			if err != nil {
				return fmt.Errorf("expand series: %w", err)
			}
			n := 0
			for occ := range series.All() {
				n++
				fmt.Printf("%2d  %s - %s\n", n, occ.Start.Format("Mon 02.01.2006 15:04"), occ.End.Format("15:04"))
			}
			if rule := recurrence.Rule(kind, start, until, loc); rule != "" {
				fmt.Println(rule)
			}
			if series.Truncated() {
				slog.Warn("Series truncated.", "kind", kind, "max", recurrence.MaxOccurrences)
			}
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Sign a development access token for a profile id.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "Profile id (token subject)."},
			&cli.StringFlag{Name: "email"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Environment == "production" {
				return errors.New("refusing to sign tokens in production")
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set")
			}
			token, err := auth.IssueToken(cfg.JWTSecret, c.String("user"), c.String("email"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func listen(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
