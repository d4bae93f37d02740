package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/msgcluster/internal/api"
	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/config"
	"github.com/mattjoyce/msgcluster/internal/events"
	"github.com/mattjoyce/msgcluster/internal/lock"
	"github.com/mattjoyce/msgcluster/internal/log"
	"github.com/mattjoyce/msgcluster/internal/snapshot"
	"github.com/mattjoyce/msgcluster/internal/storage"
)

func printServeHelp() {
	fmt.Print(`Usage: clusterctl serve [--config path] [--listen addr] [--restore name]

Serves a live cluster over HTTP. The root starts empty, or is rebuilt from
the stored snapshot named by --restore.

The server's registry binds only the plain root type and nothing subscribes
on it, so POST /emit and /calculate report no listeners until a program
embedding the api package registers node types. Snapshots holding other type
tags restore only when cluster.forgiving is true (or
MSGCLUSTER_CLUSTER_FORGIVING=true); those nodes load as generic objects with
their payloads intact.
`)
}

// resolveConfigPath returns the explicit path, else a discovered one, else
// "" (defaults plus environment).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if discovered, err := config.Discover(); err == nil {
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", discovered)
		return discovered
	}
	return ""
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	listen := fs.String("listen", "", "Listen address (overrides api.listen)")
	restore := fs.String("restore", "", "Stored snapshot to start from")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := resolveConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.API.Listen = *listen
	}

	log.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := log.WithCluster(cfg.Cluster.Name)
	logger.Info("clusterctl serve starting", "version", version, "config", path)
	if path != "" {
		if hash, err := config.Hash(path); err == nil {
			logger.Info("config loaded", "hash", hash)
		}
	}

	pidLock, err := lock.Acquire(lock.PathFor(cfg.Store.Path))
	if err != nil {
		logger.Error("failed to lock snapshot store", "path", cfg.Store.Path, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Store.Path, "error", err)
		return 1
	}
	defer db.Close()
	store := snapshot.NewStore(db)

	var opts []cluster.RegistryOption
	if cfg.Cluster.Forgiving {
		opts = append(opts, cluster.Forgiving())
	}
	reg := cluster.NewRegistry(cfg.Cluster.Name, opts...)

	root, err := startingRoot(ctx, reg, store, *restore)
	if err != nil {
		logger.Error("failed to build cluster root", "restore", *restore, "error", err)
		return 1
	}

	srv := api.New(api.Config{
		Listen:      cfg.API.Listen,
		APIKey:      cfg.API.APIKey,
		CORSOrigins: cfg.API.CORSOrigins,
	},
		root, store, events.NewHub(events.DefaultCapacity), log.WithComponent("api"))
	if cfg.API.APIKey == "" {
		logger.Warn("api.api_key is empty; the API is unauthenticated")
	}

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		return 1
	}
	logger.Info("clusterctl serve stopped")
	return 0
}

func startingRoot(ctx context.Context, reg *cluster.Registry, store *snapshot.Store, name string) (cluster.Node, error) {
	if name == "" {
		return reg.NewRoot()
	}
	w, _, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return reg.Unwrap(w, nil)
}
