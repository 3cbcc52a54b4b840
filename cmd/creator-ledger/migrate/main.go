package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/layer-3/creator-ledger/adapters/pg"
	"github.com/layer-3/creator-ledger/adapters/pg/migrations"
	"github.com/layer-3/creator-ledger/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [-config path] up|down\n")
	flag.PrintDefaults()
}

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading configuration file: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintf(os.Stderr, "database dsn is not configured (set %s)\n", config.EnvDatabaseURL)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	ctx := context.Background()
	db, err := pg.Connect(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("error connecting to database", zap.Error(err))
	}
	defer db.Close()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "up":
		err = migrations.Migrate(ctx, db)
	case "down":
		err = migrations.Rollback(ctx, db)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("migration failed", zap.String("command", cmd), zap.Error(err))
	}
}
