// Command server is the process entry point: it loads configuration,
// bootstraps the Metastore, and serves the Snowflake-shaped REST query
// surface until an interrupt or terminate signal requests a graceful
// shutdown. Grounded on teacher_src/server/main.go's load-config,
// connect-engine, listen-and-serve shape.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Embucket/embucket-sub001/internal/catalog"
	"github.com/Embucket/embucket-sub001/internal/config"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/executor"
	"github.com/Embucket/embucket-sub001/internal/metastore"
	"github.com/Embucket/embucket-sub001/internal/registry"
	"github.com/Embucket/embucket-sub001/internal/restapi"
	"github.com/Embucket/embucket-sub001/internal/session"
	"github.com/Embucket/embucket-sub001/internal/statestore"
)

const shutdownGracePeriod = 30 * time.Second

func main() {
	cfg := config.Load()
	log := embucketlog.New(cfg.LogLevel)
	defer log.HandleUnexpectedPanic()

	log.Info("Starting with data format", cfg.DataFormat, "mem pool", cfg.MemPoolType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := metastore.NewInMemory(cfg.ObjectStore.ConnectTimeoutSecs, cfg.ObjectStore.TimeoutSecs)
	if err := metastore.Bootstrap(ctx, store, cfg.MetastoreConfigPath, log); err != nil {
		log.Panic("bootstrapping metastore:", err.Error())
	}
	log.Info("Metastore: ready")

	// Constructed with no Iceberg REST binding: this service reads
	// Iceberg tables through the engine's own native Parquet/Iceberg
	// support rather than routing per-query physical table access
	// through an external Iceberg REST catalog, so a nil binding
	// (meaning "no external Iceberg catalog configured") is the right
	// default here. The catalog is wired into the executor below, so
	// every query still resolves schema-qualified table references
	// through it ahead of the engine.
	cat := catalog.NewCachingCatalog(store, nil, cfg.DefaultDatabase)

	sessions := session.NewStore(cfg.SessionWindowSecs)
	sweeper := session.NewSweeper(sessions, time.Duration(cfg.SessionWindowSecs)*time.Second, log)
	go sweeper.Run(ctx)
	defer sweeper.Stop()

	reg := registry.New()

	engineCfg := executor.EngineConfig{
		MemPoolType:    executor.MemPoolType(cfg.MemPoolType),
		MemPoolSizeMB:  cfg.MemPoolSizeMB,
		DiskPoolSizeMB: cfg.DiskPoolSizeMB,
	}
	engine, err := executor.NewEngine(engineCfg, log)
	if err != nil {
		log.Panic("creating query engine:", err.Error())
	}
	defer engine.Close()
	log.Info("Engine: connected")

	// Attach a DuckDB secret per non-memory volume referenced by a
	// bootstrapped database, so table scans against that volume resolve
	// credentials without per-query ATTACH statements.
	databases, err := store.ListDatabases(ctx)
	if err != nil {
		log.Panic("listing bootstrapped databases:", err.Error())
	}
	for _, db := range databases {
		vol, err := store.GetVolume(ctx, db.VolumeName)
		if err != nil {
			log.Panic("resolving volume for database "+db.Ident+":", err.Error())
		}
		if err := engine.AttachVolume(ctx, vol); err != nil {
			log.Panic("attaching volume "+vol.Ident+":", err.Error())
		}
	}

	// Warm the schema cache for the default database so the first
	// request doesn't pay a cold-cache metastore round trip.
	if schemas, err := cat.SchemaNames(ctx); err != nil {
		log.Warn("warming catalog cache:", err.Error())
	} else {
		log.Info("Catalog: ready with", len(schemas), "schema(s)")
	}

	exec := executor.New(executor.Config{
		MaxConcurrencyLevel: int64(cfg.MaxConcurrencyLevel),
		QueryTimeoutSecs:    cfg.QueryTimeoutSecs,
		MemPool:             executor.MemPoolType(cfg.MemPoolType),
		MemPoolSizeMB:       cfg.MemPoolSizeMB,
		DiskPoolSizeMB:      cfg.DiskPoolSizeMB,
	}, engine, sessions, reg, log)
	defer exec.Close()
	exec = exec.WithCatalog(cat, cfg.DefaultDatabase)

	// The state store is an optional durable mirror (spec §4.9): when
	// no table name is configured, history lives only in the in-memory
	// default and is lost on restart.
	var stateStore statestore.StateStore
	if cfg.StatestoreTableName != "" {
		stateStore, err = statestore.NewDynamoDBStore(ctx, cfg.StatestoreTableName)
		if err != nil {
			log.Panic("connecting to state store:", err.Error())
		}
		log.Info("State store: connected to", cfg.StatestoreTableName)
	} else {
		stateStore = statestore.NewMemStore()
		log.Info("State store: in-memory (no STATESTORE_TABLE_NAME configured)")
	}
	exec = exec.WithStateStore(stateStore)

	srv := restapi.NewServer(cfg, sessions, exec, log)

	httpServer := &http.Server{
		Addr:    cfg.BindAddress,
		Handler: srv,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("REST: listening on", cfg.BindAddress)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic("REST server failed:", err.Error())
		}
	case <-ctx.Done():
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown:", err.Error())
		}
	}

	log.Info("Stopped")
}
