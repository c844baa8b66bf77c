// main wires the engine: stores (memory or Postgres), Redis-backed velocity
// and claims when configured, the audit pipeline with its optional Kafka
// relay, module services and handlers, and the background sweeps. Business
// logic lives in the internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"keystone/internal/adapters/dev"
	"keystone/internal/audit"
	"keystone/internal/certificate"
	"keystone/internal/escrow"
	escrowhandler "keystone/internal/escrow/handler"
	escrowservice "keystone/internal/escrow/service"
	"keystone/internal/ledger"
	"keystone/internal/platform/config"
	"keystone/internal/platform/httpserver"
	"keystone/internal/platform/kafka"
	"keystone/internal/platform/logger"
	"keystone/internal/platform/metrics"
	platformpg "keystone/internal/platform/postgres"
	platformredis "keystone/internal/platform/redis"
	"keystone/internal/quickpay"
	quickpayhandler "keystone/internal/quickpay/handler"
	quickpayservice "keystone/internal/quickpay/service"
	"keystone/internal/quickpay/velocity"
	"keystone/internal/quorum"
	httptransport "keystone/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := platformpg.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Audit pipeline: publisher -> worker -> store; the relay drains the
	// Postgres outbox into Kafka when both are configured.
	publisher := audit.NewPublisher(1024, log, m.AuditEventsDrop.Inc)
	var (
		auditStore audit.Store
		relay      *audit.Relay
	)
	if db != nil {
		pgAudit := audit.NewPostgres(db)
		auditStore = pgAudit
		if producer != nil {
			relay = audit.NewRelay(pgAudit, producer, log, 5*time.Second)
		}
	} else {
		auditStore = audit.NewMemoryStore()
	}
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)

	var (
		accountStore  escrow.Store
		ledgerStore   ledger.Store
		approvalStore quorum.Store
		requestStore  quickpay.Store
		certStore     certificate.Store
	)
	if db != nil {
		accountStore = escrow.NewPostgres(db)
		ledgerStore = ledger.NewPostgres(db)
		approvalStore = quorum.NewPostgres(db)
		requestStore = quickpay.NewPostgres(db)
		certStore = certificate.NewPostgres(db)
	} else {
		accountStore = escrow.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore()
		approvalStore = quorum.NewMemoryStore()
		requestStore = quickpay.NewMemoryStore()
		certStore = certificate.NewMemoryStore()
	}

	var (
		window velocity.Window
		claims quickpay.DisbursementClaims
	)
	if redisClient != nil {
		window = velocity.NewRedisWindow(redisClient.Client, quickpay.VelocityWindow)
		claims = quickpay.NewRedisClaims(redisClient.Client, 15*time.Minute)
	} else {
		window = velocity.NewMemoryWindow(quickpay.VelocityWindow)
		claims = quickpay.NewMemoryClaims()
	}

	// External service ports. Production wiring swaps these for real
	// platform adapters.
	identity := dev.Identity{}
	contracts := dev.Contracts{}
	profiler := dev.Profiler{}
	transfers := dev.NewTransfers()

	signer := certificate.NewSigner(cfg.Escrow.CertificateSigningKey)
	calculator := certificate.New(certificate.DefaultLeverageConfig(), signer, certStore, dev.Market{})

	engine := quorum.New(approvalStore)

	manager := escrowservice.New(escrowservice.Deps{
		Accounts:     accountStore,
		Ledger:       ledgerStore,
		Quorum:       engine,
		Contracts:    contracts,
		Transfers:    transfers,
		Profiler:     profiler,
		Certificates: calculator,
		Audit:        publisher,
		Metrics:      m,
		DB:           db,
	}, escrowservice.Config{
		DefaultFundingDeadline: cfg.Escrow.FundingDeadline,
		FeeRate:                cfg.Escrow.FeeRate,
	}, escrowservice.WithLogger(log))

	verifier := quickpay.NewVerifier(identity, requestStore, cfg.QuickPay.MinPerformanceScore)
	scorer := quickpay.NewRiskScorer(profiler, window, quickpay.DefaultRiskWeights())
	scheduler := quickpayservice.New(quickpayservice.Deps{
		Store:     requestStore,
		Identity:  identity,
		Verifier:  verifier,
		Risk:      scorer,
		Window:    window,
		Contracts: contracts,
		Transfers: transfers,
		Claims:    claims,
		Audit:     publisher,
		Metrics:   m,
	}, quickpayservice.Config{
		FeeRate:          cfg.QuickPay.FeeRate,
		ReviewSLA:        cfg.QuickPay.ReviewSLA,
		SettlementTarget: cfg.QuickPay.SettlementTarget,
	}, quickpayservice.WithLogger(log))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Registry: registry,
		Handlers: []httptransport.Registrar{
			escrowhandler.New(manager, calculator, log),
			quickpayhandler.New(scheduler, log),
		},
		DB:    db,
		Redis: redisClient,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if relay != nil {
		group.Go(func() error {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(cfg.QuickPay.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := manager.ExpireStale(ctx); err != nil {
					log.Error("expiry sweep failed", "error", err)
				} else if n > 0 {
					log.Info("expired stale accounts", "count", n)
				}
				if n, err := scheduler.EscalateOverdueReviews(ctx); err != nil {
					log.Error("review sweep failed", "error", err)
				} else if n > 0 {
					log.Info("escalated overdue reviews", "count", n)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
