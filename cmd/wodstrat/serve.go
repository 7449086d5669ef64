package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-wodstrat"
	"github.com/goliatone/go-wodstrat/activitymap"
	"github.com/goliatone/go-wodstrat/database"
	"github.com/goliatone/go-wodstrat/metrics"
	"github.com/goliatone/go-wodstrat/migrations"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the identity API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-migrations",
				Usage: "do not apply pending migrations on start",
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if !c.Bool("skip-migrations") {
		if _, err := migrations.Up(ctx, db, logger); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(registry)

	pubsub := activitymap.NewInProcessPubSub(watermill.NewStdLogger(false, false))
	defer pubsub.Close()

	activity, err := pubsub.Subscribe(ctx, activitymap.DefaultTopic)
	if err != nil {
		return err
	}
	go logActivity(activity, logger)

	sink := wodstrat.FanoutActivitySink(
		collector,
		activitymap.NewPublisherSink(pubsub, activitymap.DefaultTopic),
	)

	repos := wodstrat.NewRepositoryManager(db)
	if err := repos.Validate(); err != nil {
		return err
	}

	tokens := wodstrat.NewTokenServiceFromConfig(cfg, logger)

	var validator wodstrat.TokenValidator = tokens
	if cfg.JWT.JWKSURL != "" {
		keys, err := wodstrat.NewJWKSKeys(cfg.JWT.JWKSURL, logger)
		if err != nil {
			return err
		}
		defer keys.Close()
		validator = wodstrat.NewValidatorChain(logger).
			Trust("local", tokens).
			Trust(cfg.JWT.JWKSURL, keys.Validator(cfg.JWT.Issuer))
	}

	auther := wodstrat.NewAuthenticator(repos, tokens).
		WithLogger(logger).
		WithActivitySink(sink).
		WithPasswordHasher(wodstrat.NewPasswordHasher(cfg.Auth.PasswordCost))

	athletes := wodstrat.NewCreateAthleteHandler(repos).
		WithLogger(logger).
		WithActivitySink(sink)

	api := wodstrat.NewAPIController(auther, athletes,
		wodstrat.WithAPILogger(logger),
		wodstrat.WithAPIValidator(validator),
		wodstrat.WithValidationListeners(wodstrat.RejectUnknownUsers(repos.Users())),
		wodstrat.WithLoginRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		wodstrat.WithCORSOrigins(cfg.Server.CORSOrigins...),
		wodstrat.WithMetricsHandler(metrics.Handler(registry)),
		wodstrat.WithAPIMiddleware(collector.Middleware),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func logActivity(messages <-chan *message.Message, logger *consoleLogger) {
	for msg := range messages {
		record, err := activitymap.Decode(msg)
		if err != nil {
			logger.Warn("activity decode failed: %v", err)
		} else {
			logger.Debug("activity %s actor=%s object=%s/%s", record.Verb, record.ActorID, record.ObjectType, record.ObjectID)
		}
		msg.Ack()
	}
}
