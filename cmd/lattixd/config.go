package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultLogFilename    = "lattixd.log"
	defaultErrLogFilename = "lattixd_err.log"
	defaultDbDirname      = "db"
	defaultLogLevel       = "info"
)

// configFlags holds the command-line configuration of the daemon.
type configFlags struct {
	ShowVersion          bool          `short:"V" long:"version" description:"Display version information and exit"`
	DataDir              string        `short:"b" long:"datadir" description:"Directory to store ledger data"`
	LogLevel             string        `short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	NoPruning            bool          `long:"nopruning" description:"Treat every missing block as a ledger fault instead of consulting the pruned set"`
	BatchSeparateMinTime time.Duration `long:"batchseparatemintime" description:"Minimum burst run time before a finished traversal flushes despite queued work" default:"50ms"`
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".lattixd"
	}
	return filepath.Join(homeDir, ".lattixd")
}

// loadConfig parses the command line. A nil config with a nil error means
// help output was requested and printed.
func loadConfig() (*configFlags, error) {
	cfg := &configFlags{
		DataDir:  defaultDataDir(),
		LogLevel: defaultLogLevel,
	}
	parser := flags.NewParser(cfg, flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Stdout.WriteString(flagsErr.Message + "\n")
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}
