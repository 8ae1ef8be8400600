package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-auth-api/activitymap"
	"github.com/goliatone/go-auth-api/config"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

type App struct {
	config config.Config
	db     *bun.DB
	repo   auth.RepositoryManager
	srv    router.Server[*fiber.App]
	http   *fiber.App
	logger auth.LoggerProvider
	resets *auth.InitializePasswordResetHandler
}

func (a *App) GetLogger(name string) auth.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: auth.NewLogger("app", cfg.Debug),
	}
	lgr := app.GetLogger("app")

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(redacted(cfg)))
		fmt.Println("============")
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	WithHTTPServer(app)

	if err := WithAuthRoutes(app); err != nil {
		lgr.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := app.srv.Serve(cfg.Address); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	if err := app.http.ShutdownWithTimeout(10 * time.Second); err != nil {
		lgr.Error("shutdown failed", "error", err)
	}

	// let queued reset emails finish before closing the store
	app.resets.Wait()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := auth.OpenDB(app.config.Database.Driver, app.config.Database.DSN)
	if err != nil {
		return err
	}

	if app.config.Database.MigrateOnStart {
		if err := auth.Migrate(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	app.db = db
	app.repo = auth.NewRepositoryManager(db)
	app.repo.MustValidate()
	return nil
}

func WithHTTPServer(app *App) {
	app.srv = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		srv := fiber.New(fiber.Config{
			AppName:      "go-auth-api",
			ErrorHandler: auth.NewErrorHandler(app.GetLogger("http")),
		})

		srv.Use(recover.New())
		srv.Use(requestid.New())
		srv.Use(logger.New())
		srv.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(app.config.CORSAllowedOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))

		app.http = srv
		return srv
	})
}

func WithAuthRoutes(app *App) error {
	cfg := app.config.Auth()
	activityLogger := app.GetLogger("auth:activity")
	activity := activitymap.NewSink(func(_ context.Context, record activitymap.Normalized) error {
		activityLogger.Info("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_id", record.ObjectID,
			"channel", record.Channel,
			"metadata", record.Metadata,
			"occurred_at", record.OccurredAt,
		)
		return nil
	})

	mailer, err := app.config.NewMailer(app.GetLogger("mailer"))
	if err != nil {
		return err
	}

	provider := auth.NewUserProvider(app.repo.Users()).
		WithLoggerProvider(app.logger)

	auther := auth.NewAuthenticator(provider, cfg).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(activity)

	resetTokens := auth.NewResetTokenService(cfg, app.GetLogger("auth:reset"))

	app.resets = auth.NewInitializePasswordResetHandler(app.repo, resetTokens, mailer, cfg).
		WithLogger(app.GetLogger("auth:reset")).
		WithActivitySink(activity).
		WithMailTimeout(app.config.Email.Timeout)

	auth.RegisterAuthRoutes(app.srv.Router(),
		auth.WithControllerDebug(app.config.Debug),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithAuther(auther),
		auth.WithRegisterHandler(
			auth.NewRegisterUserHandler(app.repo, cfg).
				WithLogger(app.GetLogger("auth:register")).
				WithActivitySink(activity),
		),
		auth.WithChangePasswordHandler(
			auth.NewChangePasswordHandler(app.repo, cfg).
				WithLogger(app.GetLogger("auth:password")).
				WithActivitySink(activity),
		),
		auth.WithPasswordResetHandlers(
			app.resets,
			auth.NewFinalizePasswordResetHandler(app.repo, resetTokens, cfg).
				WithLogger(app.GetLogger("auth:reset")).
				WithActivitySink(activity),
		),
		auth.WithHealthCheck(func(ctx context.Context) error {
			return app.db.PingContext(ctx)
		}),
	)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

func redacted(cfg config.Config) config.Config {
	cfg.SecretKey = "********"
	cfg.Email.Password = "********"
	return cfg
}
