package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lattixnet/lattixd/domain/ledger"
	"github.com/lattixnet/lattixd/domain/ledger/model/externalapi"
	"github.com/lattixnet/lattixd/domain/ledger/processes/cementprocessor"
	"github.com/lattixnet/lattixd/domain/ledger/writequeue"
	"github.com/lattixnet/lattixd/infrastructure/db/database/ldb"
	"github.com/lattixnet/lattixd/infrastructure/logger"
	"github.com/lattixnet/lattixd/util/panics"
	"github.com/lattixnet/lattixd/version"
)

func main() {
	defer panics.HandlePanic(log, nil)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command line arguments: %s\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}
	if cfg.ShowVersion {
		fmt.Printf("lattixd version %s\n", version.Version())
		return
	}

	err = os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory %s: %s\n", cfg.DataDir, err)
		os.Exit(1)
	}
	err = initLog(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %s\n", err)
		os.Exit(1)
	}
	defer logger.Backend().Close()

	log.Infof("Version %s", version.Version())

	db, err := ldb.NewLevelDB(filepath.Join(cfg.DataDir, defaultDbDirname))
	if err != nil {
		log.Errorf("Error opening the ledger database: %s", err)
		os.Exit(1)
	}
	defer func() {
		log.Infof("Gracefully shutting down the ledger database...")
		err := db.Close()
		if err != nil {
			log.Errorf("Error closing the ledger database: %s", err)
		}
	}()

	ledgerInstance := ledger.New(db, ledger.Config{
		PruningEnabled: !cfg.NoPruning,
	})
	writeQueue := writequeue.New()
	processor := cementprocessor.New(ledgerInstance, writeQueue, cementprocessor.Config{
		BatchSeparateMinTime: cfg.BatchSeparateMinTime,
	})
	processor.AddCementedObserver(func(blocks []*externalapi.Block) {
		log.Infof("Cemented %d blocks, %d total", len(blocks), ledgerInstance.CementedCount())
	})
	processor.AddAlreadyCementedObserver(func(hash externalapi.BlockHash) {
		log.Debugf("Block %s was already cemented", hash)
	})

	processor.Start()
	defer processor.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	log.Infof("Shutdown requested")
}
