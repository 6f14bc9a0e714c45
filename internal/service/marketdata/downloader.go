package marketdata

import (
	"alpaca-tools/internal/model"
	"fmt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"path/filepath"
	"time"
)

// Result describes one finished download.
type Result struct {
	Kind    model.DataKind
	Path    string
	Rows    int
	Written bool
}

// Downloader fetches bars, quotes and trades and stores each kind as one CSV
// file in OutputDir. A kind that comes back empty is not written.
type Downloader struct {
	Source    Source
	OutputDir string
	Log       *zap.Logger
}

// FileName returns "<kind>_<YYYY-MM-DD>.csv" for the calendar day of start.
func FileName(kind model.DataKind, start time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, start.Format(time.DateOnly))
}

// DownloadAll downloads every kind in turn. A failing kind does not stop the
// others; all failures are returned combined.
func (d *Downloader) DownloadAll(symbols []string, window model.TimeWindow, tf model.TimeFrame) ([]Result, error) {
	var (
		results []Result
		errs    error
	)
	for _, kind := range model.DataKinds {
		var (
			res Result
			err error
		)
		switch kind {
		case model.KindBars:
			res, err = d.DownloadBars(symbols, window, tf)
		case model.KindQuotes:
			res, err = d.DownloadQuotes(symbols, window)
		case model.KindTrades:
			res, err = d.DownloadTrades(symbols, window)
		}
		if err != nil {
			d.logger().Error("download failed", zap.String("kind", string(kind)), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// DownloadBars fetches bars of every symbol and writes them to the bars file.
func (d *Downloader) DownloadBars(symbols []string, window model.TimeWindow, tf model.TimeFrame) (Result, error) {
	d.logger().Info("requesting bars",
		zap.Strings("symbols", symbols),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Stringer("timeframe", tf),
	)
	bars, err := d.Source.Bars(symbols, window, tf)
	if err != nil {
		return Result{Kind: model.KindBars}, err
	}
	rows := make([][]string, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, barRecord(b))
	}
	return d.store(model.KindBars, symbols, window, barHeader, rows)
}

// DownloadQuotes fetches quotes of every symbol and writes them to the quotes file.
func (d *Downloader) DownloadQuotes(symbols []string, window model.TimeWindow) (Result, error) {
	d.logger().Info("requesting quotes",
		zap.Strings("symbols", symbols),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
	)
	quotes, err := d.Source.Quotes(symbols, window)
	if err != nil {
		return Result{Kind: model.KindQuotes}, err
	}
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, quoteRecord(q))
	}
	return d.store(model.KindQuotes, symbols, window, quoteHeader, rows)
}

// DownloadTrades fetches trades of every symbol and writes them to the trades file.
func (d *Downloader) DownloadTrades(symbols []string, window model.TimeWindow) (Result, error) {
	d.logger().Info("requesting trades",
		zap.Strings("symbols", symbols),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
	)
	trades, err := d.Source.Trades(symbols, window)
	if err != nil {
		return Result{Kind: model.KindTrades}, err
	}
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, tradeRecord(t))
	}
	return d.store(model.KindTrades, symbols, window, tradeHeader, rows)
}

func (d *Downloader) store(kind model.DataKind, symbols []string, window model.TimeWindow, header []string, rows [][]string) (Result, error) {
	res := Result{
		Kind: kind,
		Path: filepath.Join(d.OutputDir, FileName(kind, window.Start)),
		Rows: len(rows),
	}
	if len(rows) == 0 {
		d.logger().Warn("no data returned, skipping file",
			zap.String("kind", string(kind)),
			zap.Strings("symbols", symbols),
			zap.Time("start", window.Start),
			zap.Time("end", window.End),
		)
		return res, nil
	}

	if err := writeCSV(res.Path, header, rows); err != nil {
		return res, err
	}
	res.Written = true
	d.logger().Info("data written",
		zap.String("kind", string(kind)),
		zap.Int("rows", res.Rows),
		zap.String("path", res.Path),
	)
	return res, nil
}

func (d *Downloader) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}
