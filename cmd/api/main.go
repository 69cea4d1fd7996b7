// Command api runs the CNE pipeline HTTP facade: job upload/listing,
// preview/download, approval, master-data and model-registry endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/disruptio/cne-pipeline/internal/config"
	"github.com/disruptio/cne-pipeline/internal/events"
	"github.com/disruptio/cne-pipeline/internal/handlers"
	"github.com/disruptio/cne-pipeline/internal/jobcache"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/modelregistry"
	"github.com/disruptio/cne-pipeline/internal/promote"
	"github.com/disruptio/cne-pipeline/internal/ratelimit"
	"github.com/disruptio/cne-pipeline/internal/server"
	"github.com/disruptio/cne-pipeline/internal/summarypdf"
)

// configPaths supports repeatable -config flags; later files override earlier ones.
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var configFiles configPaths

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		arborLogger := config.GetLogger()
		arborLogger.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	defer config.Stop()
	config.PrintBanner(cfg, logger, "api")

	incomingDir := filepath.Join(cfg.Storage.DataDir, "incoming")
	processedDir := filepath.Join(cfg.Storage.DataDir, "processed")
	approvedDir := filepath.Join(cfg.Storage.DataDir, "approved")
	masterDir := filepath.Join(cfg.Storage.DataDir, "master")
	stateDir := filepath.Join(cfg.Storage.DataDir, "state")
	for _, dir := range []string{incomingDir, processedDir, approvedDir, masterDir, stateDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create data directory")
		}
	}

	jobs, err := jobstore.Open(filepath.Join(stateDir, "jobs.json"), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	queue, err := jobstore.OpenQueue(filepath.Join(stateDir, "queue.jsonl"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job queue")
	}
	cache, err := jobcache.Open(cfg.Storage.JobCache.Path, cfg.Storage.JobCache.ResetOnStartup, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to open job cache, falling back to jobs.json scans")
		jobs.SetCache(nil)
	} else {
		defer cache.Close()
		jobs.SetCache(cache)
	}

	masterStore, err := master.New(masterDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open master store")
	}
	registry, err := modelregistry.Open(filepath.Join(stateDir, "model_registry.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open model registry")
	}
	bus := events.New(logger)

	promoter := &promote.Promoter{
		IncomingDir:  incomingDir,
		ProcessedDir: processedDir,
		ApprovedDir:  approvedDir,
		Master:       masterStore,
		Registry:     registry,
		Events:       bus,
		Logger:       logger,
		RenderSummaryPDF: summarypdf.Render,
	}

	jobHandler := &handlers.JobHandler{
		Jobs:        jobs,
		Queue:       queue,
		Cache:       cache,
		Promoter:    promoter,
		Events:      bus,
		IncomingDir: incomingDir,
		Logger:      logger,
	}

	deps := server.Dependencies{
		Jobs:      jobHandler,
		Approval:  &handlers.ApprovalHandler{Jobs: jobHandler},
		Artifacts: &handlers.ArtifactHandler{Jobs: jobs, ProcessedDir: processedDir},
		Master:    &handlers.MasterHandler{Store: masterStore},
		Registry:  &handlers.RegistryHandler{Registry: registry},
		Stream:    handlers.NewStreamHandler(bus, logger),
		RateLimit: ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Logger:    logger,
	}

	srv := server.New(
		cfg.Server.Host,
		cfg.Server.Port,
		config.Duration(cfg.Server.ReadTimeout, 30*time.Second),
		config.Duration(cfg.Server.WriteTimeout, 360*time.Second),
		config.Duration(cfg.Server.IdleTimeout, 120*time.Second),
		deps,
	)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("interrupt signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	config.PrintShutdownBanner(logger, "api")
}
