// Command server wires the directory, vault factory, provisioning runtime,
// and HTTP transport into one process. Business logic lives in the internal
// services packages; this file only selects backends and manages lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vaultd/internal/audit"
	auditkafka "vaultd/internal/audit/kafka"
	auditworker "vaultd/internal/audit/worker"
	"vaultd/internal/directory"
	dirstore "vaultd/internal/directory/store"
	"vaultd/internal/dispatch"
	"vaultd/internal/domain"
	"vaultd/internal/permit"
	"vaultd/internal/permit/revocation"
	"vaultd/internal/platform/config"
	"vaultd/internal/platform/httpserver"
	"vaultd/internal/platform/logger"
	"vaultd/internal/platform/metrics"
	platformredis "vaultd/internal/platform/redis"
	"vaultd/internal/provision"
	"vaultd/internal/secretstore"
	httptransport "vaultd/internal/transport/http"
	"vaultd/internal/vault"
	sqlitestore "vaultd/internal/vault/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

// fanout delivers each event to every sink; the first failure aborts.
type fanout []directory.AuditPublisher

func (f fanout) Emit(ctx context.Context, event audit.Event) error {
	for _, sink := range f {
		if err := sink.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Backend selection by presence: unset DSN/URL/dir means in-memory.
	var identities directory.IdentityStore
	if cfg.PostgresDSN != "" {
		pg, err := dirstore.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer func() { _ = pg.Close() }()
		identities = pg
	} else {
		identities = dirstore.NewMemory()
	}

	var secrets secretstore.Store
	var revocations permit.RevocationList
	if redisClient != nil {
		secrets = secretstore.NewRedis(redisClient.Client)
		revocations = revocation.NewRedisList(redisClient.Client)
	} else {
		secrets = secretstore.NewMemory()
		revocations = revocation.NewMemoryList()
	}

	var newStore func() (vault.RecordStore, error)
	if cfg.SQLiteDir != "" {
		if err := os.MkdirAll(cfg.SQLiteDir, 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
		dir := cfg.SQLiteDir
		newStore = func() (vault.RecordStore, error) {
			return sqlitestore.Open(filepath.Join(dir, uuid.NewString()+".db"))
		}
	}

	verifier := permit.NewJWTVerifier(cfg.PermitSigningKey, cfg.PermitIssuer, revocations)
	table := dispatch.NewTable()
	template := domain.ProvisionTemplate{KindID: cfg.TemplateKindID, IntegrityHash: cfg.TemplateHash}
	directoryAddr := domain.Address(cfg.DirectoryAddress)

	factory := vault.NewFactory(template, directoryAddr, verifier, table, newStore,
		vault.FactoryWithLogger(log),
		vault.FactoryWithMetrics(m),
		vault.FactoryWithPageSize(cfg.PageSize),
	)

	auditInbox := make(chan audit.Event, 64)
	auditStore := audit.NewMemoryStore()
	worker := auditworker.New(auditStore, auditInbox)

	// Events always land in the in-process trail; Kafka is an extra sink.
	sinks := []directory.AuditPublisher{auditworker.NewChannelPublisher(auditInbox)}
	if len(cfg.KafkaSeeds) > 0 {
		kafkaPub, err := auditkafka.New(cfg.KafkaSeeds, cfg.AuditTopic, auditkafka.WithLogger(log))
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaPub.Close()
		sinks = append(sinks, kafkaPub)
	}
	publisher := fanout(sinks)

	svc := directory.New(
		directoryAddr,
		domain.Address(cfg.AdminAddress),
		template,
		identities,
		secrets,
		nil, // provisioner set below; runtime needs the service as handler
		table,
		directory.WithLogger(log),
		directory.WithMetrics(m),
		directory.WithAuditPublisher(publisher),
	)
	runtime := provision.NewRuntime(factory, svc,
		provision.WithLogger(log),
		provision.WithMetrics(m),
	)
	svc.SetProvisioner(runtime)

	router := httptransport.NewRouter(
		httptransport.NewDirectoryHandler(svc, log, httptransport.WithAuditReader(auditStore)),
		httptransport.NewVaultHandler(table, log),
		httptransport.NewPermitHandler(revocations, log),
		log, m,
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runtime.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
