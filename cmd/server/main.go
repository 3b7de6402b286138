// Command server runs the custodia identity wallet API.
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

	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	credHandler "custodia/internal/credential/handler"
	credMetrics "custodia/internal/credential/metrics"
	"custodia/internal/credential/revocation"
	"custodia/internal/credential/schema"
	credService "custodia/internal/credential/service"
	credStore "custodia/internal/credential/store"
	didHandler "custodia/internal/did/handler"
	didMetrics "custodia/internal/did/metrics"
	didModels "custodia/internal/did/models"
	didResolver "custodia/internal/did/resolver"
	didService "custodia/internal/did/service"
	didStore "custodia/internal/did/store"
	"custodia/internal/httpapi"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/postgres"
	platformredis "custodia/internal/platform/redis"
	presHandler "custodia/internal/presentation/handler"
	presMetrics "custodia/internal/presentation/metrics"
	presService "custodia/internal/presentation/service"
	"custodia/internal/presentation/store/challenge"
	walletHandler "custodia/internal/wallet/handler"
	walletMetrics "custodia/internal/wallet/metrics"
	walletService "custodia/internal/wallet/service"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	"custodia/pkg/platform/tx"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Stores default to in-memory; postgres and redis take over per concern
	// when configured.
	var (
		wallets     walletStore.Store  = walletStore.NewInMemory()
		backups     backupStore.Store  = backupStore.NewInMemory()
		didRegistry didStore.Store     = didStore.NewInMemory()
		credentials credStore.Store    = credStore.NewInMemory()
		revocations revocation.Store   = revocation.NewInMemory()
		runner      tx.Runner          = tx.NewMemoryRunner()
		sessions    sessionStore.Store = sessionStore.NewInMemory()
		challenges  challenge.Store    = challenge.NewInMemory()
	)
	if db != nil {
		wallets = walletStore.NewPostgres(db)
		backups = backupStore.NewPostgres(db)
		didRegistry = didStore.NewPostgres(db)
		credentials = credStore.NewPostgres(db)
		revocations = revocation.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	}
	if rdb != nil {
		sessions = sessionStore.NewRedis(rdb.Client)
		challenges = challenge.NewRedis(rdb.Client)
	}

	// Audit events leave the request path through a buffered channel; the
	// worker drains into kafka when configured, a memory store otherwise.
	auditPublisher := audit.NewChannelPublisher(256, log)
	var auditSink audit.Publisher = audit.NewStorePublisher(audit.NewInMemoryStore())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		auditSink = kafkaPublisher
	}
	auditWorker := audit.NewWorker(auditSink, auditPublisher.Inbox(), log)

	walletSvc := walletService.New(wallets, sessions, backups,
		walletService.WithLogger(log),
		walletService.WithAuditPublisher(auditPublisher),
		walletService.WithMetrics(walletMetrics.New()),
		walletService.WithSessionTTL(cfg.SessionTTL),
		walletService.WithMinPassphraseLength(cfg.MinPassphraseLength),
	)

	didOpts := []didService.Option{
		didService.WithLogger(log),
		didService.WithAuditPublisher(auditPublisher),
		didService.WithMetrics(didMetrics.New()),
		didService.WithWebDomain(cfg.WebDIDDomain),
	}
	if cfg.EthrResolverURL != "" {
		didOpts = append(didOpts, didService.WithResolver(didModels.MethodEthr, didResolver.NewEthr(cfg.EthrResolverURL)))
	}
	didSvc := didService.New(didRegistry, wallets, walletSvc, runner, didOpts...)
	walletSvc.BindDIDCreator(didSvc)

	registry := revocation.NewRegistry(revocations, credentials,
		revocation.WithRegistryLogger(log),
		revocation.WithRegistryAuditPublisher(auditPublisher),
		revocation.WithReasonDisclosure(cfg.DiscloseRevocationReasons),
	)
	credSvc := credService.New(credentials, registry, didSvc, walletSvc, wallets, schema.NewRegistry(),
		credService.WithLogger(log),
		credService.WithAuditPublisher(auditPublisher),
		credService.WithMetrics(credMetrics.New()),
		credService.WithTrustedIssuers(cfg.TrustedIssuers),
	)
	presSvc := presService.New(didSvc, walletSvc, wallets, credSvc, credSvc, registry, challenges,
		presService.WithLogger(log),
		presService.WithAuditPublisher(auditPublisher),
		presService.WithMetrics(presMetrics.New()),
		presService.WithChallengeRetention(cfg.ChallengeTTL),
	)

	router := httpapi.NewRouter(log,
		walletHandler.New(walletSvc, log),
		didHandler.New(didSvc, log),
		credHandler.New(credSvc, log),
		presHandler.New(presSvc, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
