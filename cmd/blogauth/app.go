package main

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/config"
	"github.com/goliatone/go-blog-auth/logging"
	"github.com/goliatone/go-blog-auth/mailer"
	"github.com/goliatone/go-blog-auth/middleware/csrf"
	"github.com/goliatone/go-blog-auth/repository"
)

type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	db      *bun.DB
	service *auth.Service
}

func openDB(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db, err := repository.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	service, err := auth.NewService(auth.ServiceOptions{
		Store:            repository.NewStore(db),
		Config:           cfg,
		Mailer:           dispatcher,
		Logger:           logger,
		Activity:         logging.NewActivityLogger(logger),
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		CoolDown:         cfg.Auth.CoolDown,
		EmailTimeout:     cfg.Mailer.Timeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, db: db, service: service}, nil
}

// newDispatcher wraps remote providers in a breaker that falls back to
// logging the message
func newDispatcher(cfg *config.Config, logger *logging.Logger) (auth.EmailDispatcher, error) {
	logDispatcher := mailer.NewLogDispatcher(logger)

	var (
		remote auth.EmailDispatcher
		err    error
	)
	switch cfg.Mailer.Provider {
	case "mailgun":
		remote, err = mailer.NewMailgunDispatcher(mailer.MailgunConfig{
			Key:     cfg.Mailer.MailgunKey,
			Domain:  cfg.Mailer.MailgunDomain,
			From:    cfg.Mailer.From,
			APIBase: cfg.Mailer.MailgunAPIBase,
		}, logger)
	case "sendgrid":
		remote, err = mailer.NewSendGridDispatcher(mailer.SendGridConfig{
			Key:      cfg.Mailer.SendGridKey,
			From:     cfg.Mailer.From,
			FromName: cfg.Mailer.FromName,
		}, logger)
	default:
		return logDispatcher, nil
	}
	if err != nil {
		return nil, err
	}

	return mailer.NewBreaker(remote, logDispatcher, mailer.BreakerSettings{
		Name:    cfg.Mailer.Provider,
		Timeout: cfg.Mailer.BreakerTimeout,
	}, logger), nil
}

// server builds the HTTP server. The returned fiber app is the one the
// adapter serves, handy for app.Test.
func (a *app) server() (router.Server[*fiber.App], *fiber.App) {
	var fapp *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		fapp = fiber.New(fiber.Config{
			AppName:               "blogauth",
			DisableStartupMessage: true,
			ErrorHandler:          auth.FiberErrorHandler(a.logger),
			Views:                 auth.NewViewsEngine(),
		})
		return fapp
	})

	controller := auth.NewAuthController(a.service, a.cfg,
		auth.WithControllerLogger(a.logger),
		auth.WithControllerDebug(a.cfg.Server.Debug),
		auth.WithControllerCookie(a.cfg.Auth.SetCookie),
	)
	group := srv.Router().Group("/auth")
	// cookie mode: unsafe methods need a CSRF token
	if a.cfg.Auth.SetCookie {
		key := sha256.Sum256([]byte("csrf:" + a.cfg.Auth.SigningKey))
		group.Use(csrf.New(csrf.Config{
			SecureKey: key[:],
			ErrorHandler: func(c router.Context, err error) error {
				return auth.ErrorResponse(c, goerrors.New(err.Error(), goerrors.CategoryBadInput).
					WithTextCode("CSRF").
					WithCode(goerrors.CodeBadRequest))
			},
		}))
		csrf.RegisterRoutes(group)
	}
	auth.RegisterAuthRoutes(group, controller)

	return srv, fapp
}

func (a *app) Close() error {
	return a.db.Close()
}
