// Command server runs the credential API. Wiring happens here; business
// logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"credvault/internal/anchor"
	"credvault/internal/audit"
	"credvault/internal/audit/outbox"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/auth"
	"credvault/internal/bulk"
	claimhandler "credvault/internal/claim/handler"
	"credvault/internal/claim/service"
	"credvault/internal/claim/store"
	httpapi "credvault/internal/http"
	"credvault/internal/jwttoken"
	"credvault/internal/platform/config"
	"credvault/internal/platform/httpserver"
	"credvault/internal/platform/logger"
	"credvault/internal/platform/metrics"
	platformredis "credvault/internal/platform/redis"
	"credvault/internal/ratelimit"
	"credvault/internal/token"
	"credvault/internal/verify"
	"credvault/internal/verify/tracer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		claims     store.ClaimStore
		holders    store.HolderStore
		auditSink  audit.Store
		outboxSink *auditstore.PostgresStore
	)

	switch {
	case cfg.PostgresURL != "":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		for _, ddl := range []string{store.Schema(), store.HolderSchema(), auditstore.OutboxSchema()} {
			if _, err := db.ExecContext(ctx, ddl); err != nil {
				return err
			}
		}
		claims = store.NewPostgresClaimStore(db)
		holders = store.NewPostgresHolderStore(db)
		outboxSink = auditstore.NewPostgresStore(db)
		auditSink = outboxSink
		log.Info("using postgres storage")

	default:
		memClaims := store.NewInMemoryClaimStore()
		memHolders := store.NewInMemoryHolderStore()
		if cfg.SeedDemoData {
			store.SeedDemoData(memClaims, memHolders)
			log.Info("seeded demo data")
		}
		claims = memClaims
		holders = memHolders
		auditSink = auditstore.NewInMemoryStore()
		log.Info("using in-memory storage")
	}

	if cfg.Redis.URL != "" {
		rdb, err := platformredis.New(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		auditSink = auditstore.NewRedisStore(rdb.Client)
		log.Info("audit log backed by redis")
	}

	recorder := audit.NewRecorder(auditSink, log)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "credvault", "credvault-api")
	ledger := anchor.NewSimulatedLedger(cfg.Anchor.SimLatency)

	engine := service.New(claims, holders, recorder,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithLedger(ledger, cfg.Anchor.Wallet, cfg.Anchor.Salt, cfg.Anchor.Timeout),
	)
	shareService := token.NewService(claims, holders, recorder, token.WithMetrics(m))
	verifier := verify.New(recorder,
		verify.WithStores(claims, holders),
		verify.WithMetrics(m),
		verify.WithTracer(tracer.NewOTel()),
	)
	importer := bulk.NewImporter(engine, log, bulk.WithImportMetrics(m))
	exporter := bulk.NewExporter(verifier)
	authService := auth.NewService(jwtService, recorder, log)
	limiter := ratelimit.NewLimiter(cfg.VerifyRateLimit, cfg.VerifyRateWindow)

	router := httpapi.NewRouter(log, httpapi.HealthInfo{Status: "ok", Network: "simulated"},
		auth.NewHandler(authService, log, jwtService),
		claimhandler.New(engine, log, m, jwtService),
		token.NewHandler(shareService, log, jwtService, cfg.ShareBaseURL),
		verify.NewHandler(verifier, log, limiter),
		bulk.NewHandler(importer, exporter, log, jwtService),
		audit.NewHandler(auditSink, log, jwtService),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting credvault", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 && outboxSink != nil {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return err
		}
		defer client.Close()

		worker := outbox.NewWorker(outboxSink, client, cfg.Kafka.AuditTopic, cfg.Kafka.FlushInterval, log)
		if err := worker.EnsureTopic(ctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			log.Info("audit outbox publisher running", "topic", cfg.Kafka.AuditTopic)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
