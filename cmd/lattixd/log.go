package main

import (
	"fmt"
	"os"

	"github.com/lattixnet/lattixd/infrastructure/logger"
)

var log = logger.RegisterSubSystem("LTXD")

// initLog attaches a stdout writer plus rotating log files to the shared
// logging backend and applies the configured level to every subsystem.
func initLog(cfg *configFlags) error {
	backend := logger.Backend()
	backend.AddLogWriter(logger.NopCloserWriter(os.Stdout), logger.LevelInfo)

	logFile := fmt.Sprintf("%s/%s", cfg.DataDir, defaultLogFilename)
	err := backend.AddLogFile(logFile, logger.LevelTrace)
	if err != nil {
		return err
	}
	errLogFile := fmt.Sprintf("%s/%s", cfg.DataDir, defaultErrLogFilename)
	err = backend.AddLogFile(errLogFile, logger.LevelWarn)
	if err != nil {
		return err
	}

	level, ok := logger.LevelFromString(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logger.SetLogLevels(level)
	return nil
}
