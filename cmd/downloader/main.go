package main

import (
	"alpaca-tools/internal/client"
	"alpaca-tools/internal/config"
	"alpaca-tools/internal/loader"
	"alpaca-tools/internal/logger"
	"alpaca-tools/internal/service/marketdata"
	"errors"
	"fmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"os"
	"time"
)

func main() {
	cfg, err := config.ParseDownloadArgs(os.Args[1:], time.Now())
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

	if err := run(cfg, log); err != nil {
		log.Error("download finished with errors", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Download, log *zap.Logger) error {
	creds, err := config.LoadCredentials(cfg.SecretsFile, cfg.Section)
	if err != nil {
		return err
	}

	symbols, err := loader.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols in %s", cfg.SymbolsFile)
	}
	log.Info("symbols loaded", zap.Int("count", len(symbols)), zap.String("file", cfg.SymbolsFile))

	downloader := &marketdata.Downloader{
		Source:    client.NewAlpaca(creds, cfg.Feed, log),
		OutputDir: cfg.OutputDir,
		Log:       log,
	}

	results, err := downloader.DownloadAll(symbols, cfg.Window, cfg.TimeFrame)
	for _, res := range results {
		if res.Written {
			fmt.Printf("%s: %d rows -> %s\n", res.Kind, res.Rows, res.Path)
		} else {
			fmt.Printf("%s: no data\n", res.Kind)
		}
	}
	return err
}
