package main

import (
	"alpaca-tools/internal/client"
	"alpaca-tools/internal/config"
	"alpaca-tools/internal/loader"
	"alpaca-tools/internal/logger"
	"alpaca-tools/internal/repository"
	"alpaca-tools/internal/service/trading"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"os"
	"time"
)

func main() {
	cfg, err := config.ParseSubmitArgs(os.Args[1:], time.Now())
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	report, err := run(cfg, log)
	if err != nil {
		log.Error("order submission stopped", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	for _, conf := range report.Submitted {
		fmt.Println(conf)
	}
	if !report.OK() {
		log.Sync()
		os.Exit(2)
	}
}

func run(cfg config.Submit, log *zap.Logger) (trading.Report, error) {
	creds, err := config.LoadCredentials(cfg.SecretsFile, cfg.Section)
	if err != nil {
		return trading.Report{}, err
	}

	rows, err := loader.LoadOrders(cfg.OrdersFile)
	if err != nil {
		return trading.Report{}, err
	}
	log.Info("orders loaded", zap.Int("rows", len(rows)), zap.String("file", cfg.OrdersFile), zap.String("batch", cfg.Batch))

	broker := client.NewAlpaca(creds, "", log)
	submitter := &trading.Submitter{
		Broker:   broker,
		Log:      log,
		Batch:    cfg.Batch,
		Paper:    broker.IsPaper(),
		DryRun:   cfg.DryRun,
		FailFast: cfg.FailFast,
	}

	if cfg.JournalDSN != "" {
		db, err := sql.Open("postgres", cfg.JournalDSN)
		if err != nil {
			return trading.Report{}, fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return trading.Report{}, fmt.Errorf("journal unreachable: %w", err)
		}
		journal := repository.NewOrderRepository(db)
		if err := journal.EnsureSchema(); err != nil {
			return trading.Report{}, err
		}
		submitter.Journal = journal
		log.Info("submission journal enabled")
	}

	return submitter.Submit(rows)
}
