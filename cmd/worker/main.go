// Command worker runs the background pipeline processor: the
// queue-drain loop plus the stale-job sweep cron of spec §4.13.
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
	"github.com/disruptio/cne-pipeline/internal/jobcache"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/pipeline"
	"github.com/disruptio/cne-pipeline/internal/worker"
)

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
	config.PrintBanner(cfg, logger, "worker")

	incomingDir := filepath.Join(cfg.Storage.DataDir, "incoming")
	processedDir := filepath.Join(cfg.Storage.DataDir, "processed")
	masterDir := filepath.Join(cfg.Storage.DataDir, "master")
	stateDir := filepath.Join(cfg.Storage.DataDir, "state")
	for _, dir := range []string{incomingDir, processedDir, masterDir, stateDir} {
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
		logger.Warn().Err(err).Msg("failed to open job cache, stale-job sweep will be skipped")
		cache = nil
		jobs.SetCache(nil)
	} else {
		defer cache.Close()
		jobs.SetCache(cache)
	}

	masterStore, err := master.New(masterDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open master store")
	}

	p := &pipeline.Pipeline{
		Jobs:         jobs,
		Master:       masterStore,
		IncomingDir:  incomingDir,
		ProcessedDir: processedDir,
		Logger:       logger,
	}

	w := &worker.Worker{
		Queue:        queue,
		Jobs:         jobs,
		Cache:        cache,
		Pipeline:     p,
		Logger:       logger,
		PollInterval: config.Duration(cfg.Worker.PollInterval, 2*time.Second),
		StaleAfter:   config.Duration(cfg.Worker.StaleAfter, 2*time.Hour),
		StaleCron:    cfg.Worker.StaleSweepSchedule,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("worker loop failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("interrupt signal received")
	cancel()

	config.PrintShutdownBanner(logger, "worker")
}
