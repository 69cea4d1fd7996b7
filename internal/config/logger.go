package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the process-wide logger, falling back to a bare
// console logger (with a warning) if SetupLogger hasn't run yet.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(nil, models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - SetupLogger should run during startup")
	}
	return globalLogger
}

// InitLogger installs logger as the process-wide singleton.
func InitLogger(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// SetupLogger builds the logger described by cfg.Logging and installs it.
func SetupLogger(cfg *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, out := range cfg.Logging.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	if hasFile {
		logsDir := filepath.Join(cfg.Storage.DataDir, "logs")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			tmp := logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
			tmp.Warn().Err(err).Str("logs_dir", logsDir).Msg("failed to create logs directory")
		} else {
			logFile := filepath.Join(logsDir, "cne-pipeline.log")
			logger = logger.WithFileWriter(writerConfig(cfg, models.LogWriterTypeFile, logFile))
		}
	}

	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
	}

	// Memory writer backs the websocket job-status/log stream.
	logger = logger.WithMemoryWriter(writerConfig(cfg, models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString(cfg.Logging.Level)

	InitLogger(logger)
	return logger
}

func writerConfig(cfg *Config, t models.LogWriterType, filename string) models.WriterConfiguration {
	timeFormat := "15:04:05.000"
	if cfg != nil && cfg.Logging.TimeFormat != "" {
		timeFormat = cfg.Logging.TimeFormat
	}
	return models.WriterConfiguration{
		Type:             t,
		FileName:         filename,
		TimeFormat:       timeFormat,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes the logger before shutdown. Safe to call multiple times.
func Stop() {
	arborcommon.Stop()
}
