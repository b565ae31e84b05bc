package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	eventsadp "multilend/internal/adapter/events"
	httpadp "multilend/internal/adapter/http"
	mysqlrepo "multilend/internal/adapter/repository/mysql"
	redisstore "multilend/internal/adapter/repository/redis"
	"multilend/internal/config"
	"multilend/internal/infrastructure/cache"
	"multilend/internal/infrastructure/db"
	"multilend/internal/infrastructure/mq"
	"multilend/internal/infrastructure/scheduler"
	"multilend/internal/usecase/aggregate"
	"multilend/internal/usecase/idempotency"
	"multilend/internal/usecase/identity"
	"multilend/internal/usecase/loan"
	"multilend/internal/usecase/loanview"
	"multilend/internal/usecase/portfolio"
	"multilend/internal/usecase/payment"
	"multilend/internal/usecase/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Error("open mysql", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}
	repos := mysqlrepo.NewRepos(gdb)
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Error("mysql pool", "error", err)
		os.Exit(1)
	}

	// the idempotency guard degrades instead of failing when redis is down
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Warn("redis unreachable; idempotency will run degraded", "error", err)
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}
	defer rdb.Close()
	guard := idempotency.NewGuard(redisstore.NewIdempotencyStore(rdb), cfg.IdempotencyTTL(), log)

	var producer mq.Publisher
	producer, err = mq.NewProducer(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("rabbitmq unreachable; events will be dropped", "error", err)
		producer = mq.Fallback{Log: log}
	}
	defer producer.Close()
	pub := eventsadp.NewPublisher(producer, cfg.EventsExchange)

	agg := aggregate.New(repos.Accounts, repos.ACH)
	ident := identity.NewUsecase(repos.Accounts, repos.Participants, repos.Invitations, pub, log)
	loans := loan.NewUsecase(repos.Loans, repos.Participants, repos.ACH, ident, agg, pub, log)
	payments := payment.NewUsecase(repos.Loans, repos.Participants, repos.Payments, pub, log)
	view := loanview.NewProjector(repos.Loans, repos.Participants, agg, log)
	rec := reconcile.New(repos.Participants, repos.Accounts, loans, ident, cfg.SagaGrace(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if consumer, err := mq.NewConsumer(cfg.RabbitMQURL, log); err != nil {
		log.Warn("account events disabled", "error", err)
	} else {
		defer consumer.Close()
		if err := consumer.Consume(ctx, cfg.AccountEventsSource, cfg.AccountEventsQueue, eventsadp.AccountHandlers(ident, log)); err != nil {
			log.Warn("account events disabled", "error", err)
		}
	}

	sched := scheduler.New(log, 2*time.Minute)
	if err := sched.Add("reconcile", cfg.ReconcileSchedule, func(ctx context.Context) error {
		report, err := rec.Run(ctx)
		log.Info("reconcile finished",
			"sagas_resumed", report.SagasResumed, "sagas_failed", report.SagasFailed,
			"participants_migrated", report.ParticipantsMigrated, "activations_degraded", report.ActivationsDegraded)
		return err
	}); err != nil {
		log.Error("schedule reconcile", "error", err)
		os.Exit(1)
	}
	sched.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover())
	httpadp.Register(e, httpadp.Handlers{
		Health: httpadp.NewHandler(
			httpadp.Check{Name: "mysql", Critical: true, Ping: sqlDB.PingContext},
			httpadp.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		),
		Loans:     httpadp.NewLoanHandler(loans, view, log),
		Lenders:   httpadp.NewLenderHandler(loans, log),
		Payments:  httpadp.NewPaymentHandler(payments, log),
		Identity:  httpadp.NewIdentityHandler(ident, log),
		Portfolio: httpadp.NewPortfolioHandler(portfolio.NewUsecase(repos.Loans, repos.Participants, agg, log), log),
	}, guard, []byte(cfg.JWTSecret), log)

	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
	}
	log.Info("bye")
}
