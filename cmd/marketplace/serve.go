package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/assignhub/marketplace/internal/api"
	"github.com/assignhub/marketplace/internal/api/handler"
	"github.com/assignhub/marketplace/internal/core/ports"
	"github.com/assignhub/marketplace/internal/core/service"
	redisdb "github.com/assignhub/marketplace/internal/infrastructure/db/redis"
	"github.com/assignhub/marketplace/internal/infrastructure/notify"
	"github.com/assignhub/marketplace/internal/infrastructure/queue"
	"github.com/assignhub/marketplace/internal/infrastructure/scheduler"
	"github.com/assignhub/marketplace/internal/infrastructure/summarizer"
	"github.com/assignhub/marketplace/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification dispatcher and overdue scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, true, func(a *app) error { return serve(ctx, a) })
		},
	}
}

func serve(ctx context.Context, a *app) error {
	log := a.log

	// --- Notification side channel ---
	dispatcher, stopNotifications, err := startNotifications(ctx, a)
	if err != nil {
		return err
	}
	defer stopNotifications()

	// --- Core services ---
	var summ ports.Summarizer
	if a.cfg.Summarizer.URL != "" {
		summ = summarizer.NewClient(a.cfg.Summarizer.URL, a.cfg.Summarizer.APIKey, a.cfg.Summarizer.Timeout)
	} else {
		log.Warn().Msg("SUMMARIZER_URL not set; summaries will use the placeholder text")
	}

	assignments := service.NewAssignmentService(service.AssignmentDeps{
		Assignments:    a.assignments,
		Ledger:         a.ledger,
		Users:          a.users,
		Categories:     a.categories,
		Summarizer:     summ,
		Events:         dispatcher,
		SummaryTimeout: a.cfg.Summarizer.Timeout,
	}, logger.Component("assignments"))
	users := service.NewUserService(a.users, a.assignments, a.settings, logger.Component("users"))
	auth := service.NewAuthService(a.users, a.categories, a.settings, a.cfg.JWTSecret, a.cfg.TokenTTL)
	finance := service.NewFinanceService(a.assignments, logger.Component("finance"))

	if n, err := service.EnsureAdmins(ctx, a.users, adminSpecs(a), log); err != nil {
		log.Error().Err(err).Msg("bootstrap admins failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("bootstrap admins ensured")
	}

	// --- Overdue scheduler ---
	reconciler := service.NewReconciler(a.assignments, a.users, dispatcher, logger.Component("reconciler"))
	sched, err := scheduler.New(a.cfg.Jobs.ReconcileSchedule, reconciler, redisdb.NewLocker(a.redis), logger.Component("scheduler"))
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Assignments: assignments,
		Finance:     finance,
		Users:       users,
		Auth:        auth,
		Categories:  a.categories,
		Readiness: map[string]handler.PingFunc{
			"mongodb": func(ctx context.Context) error {
				return a.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
			},
			"redis": func(ctx context.Context) error {
				return a.redis.Ping(ctx).Err()
			},
		},
		JWTSecret: a.cfg.JWTSecret,
	}, logger.Component("http"))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.cfg.Port).Msg("http server listening")
		if err := e.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

// startNotifications starts a dispatcher over the configured transport. The
// returned stop func drains queued events before closing the transport.
func startNotifications(ctx context.Context, a *app) (*queue.Dispatcher, func(), error) {
	notifier, closeNotifier, err := buildNotifier(a)
	if err != nil {
		return nil, nil, err
	}
	var dedup ports.DedupChecker
	if a.redis != nil {
		dedup = redisdb.NewDedupChecker(a.redis)
	}
	dispatcher := queue.NewDispatcher(a.cfg.Notify.Workers, notifier, dedup, logger.Component("dispatcher"))
	dispatcher.Start(context.WithoutCancel(ctx))
	return dispatcher, func() {
		dispatcher.Close()
		closeNotifier()
	}, nil
}

// buildNotifier picks AMQP when configured and falls back to the webhook.
func buildNotifier(a *app) (ports.Notifier, func(), error) {
	if a.cfg.Notify.AMQPURL != "" {
		n, err := notify.DialAMQP(a.cfg.Notify.AMQPURL, a.cfg.Notify.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		a.log.Info().Str("exchange", a.cfg.Notify.AMQPExchange).Msg("notifications via amqp")
		return n, func() {
			if err := n.Close(); err != nil {
				a.log.Warn().Err(err).Msg("amqp close")
			}
		}, nil
	}
	if a.cfg.Notify.WebhookURL == "" {
		a.log.Warn().Msg("no notification transport configured; deliveries will fail and be logged")
	}
	return notify.NewWebhookNotifier(a.cfg.Notify.WebhookURL, &http.Client{Timeout: 10 * time.Second}), func() {}, nil
}

func adminSpecs(a *app) []service.AdminSpec {
	pairs := a.cfg.Admins()
	out := make([]service.AdminSpec, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, service.AdminSpec{DiscordID: p.DiscordID, Username: p.Username})
	}
	return out
}
