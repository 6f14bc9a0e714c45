package marketdata

import (
	"alpaca-tools/internal/model"
	"encoding/csv"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSource struct {
	bars      []model.Bar
	quotes    []model.Quote
	trades    []model.Trade
	quotesErr error
	calls     map[model.DataKind]int
	frame     model.TimeFrame
}

func (f *fakeSource) count(kind model.DataKind) {
	if f.calls == nil {
		f.calls = map[model.DataKind]int{}
	}
	f.calls[kind]++
}

func (f *fakeSource) Bars(symbols []string, window model.TimeWindow, tf model.TimeFrame) ([]model.Bar, error) {
	f.count(model.KindBars)
	f.frame = tf
	return f.bars, nil
}

func (f *fakeSource) Quotes(symbols []string, window model.TimeWindow) ([]model.Quote, error) {
	f.count(model.KindQuotes)
	return f.quotes, f.quotesErr
}

func (f *fakeSource) Trades(symbols []string, window model.TimeWindow) ([]model.Trade, error) {
	f.count(model.KindTrades)
	return f.trades, nil
}

var (
	windowStart = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	window      = model.TimeWindow{Start: windowStart, End: windowStart.Add(6*time.Hour + 30*time.Minute)}
	symbols     = []string{"AAPL", "MSFT"}
)

func newTestDownloader(t *testing.T, src Source) (*Downloader, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Downloader{Source: src, OutputDir: t.TempDir(), Log: zap.New(core)}, logs
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "bars_2024-03-01.csv", FileName(model.KindBars, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "trades_2023-12-31.csv", FileName(model.KindTrades, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	in := time.Date(2024, 3, 1, 23, 45, 12, 999999999, loc)

	got := model.StartOfDay(in)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), got)
	assert.Equal(t, got, model.StartOfDay(got))
}

func TestDownloadBarsWritesCSV(t *testing.T) {
	src := &fakeSource{bars: []model.Bar{
		{Symbol: "AAPL", Timestamp: windowStart, Open: 180, High: 181.5, Low: 179.25, Close: 181, Volume: 1200, TradeCount: 40, VWAP: 180.7},
		{Symbol: "MSFT", Timestamp: windowStart, Open: 400, High: 401, Low: 399, Close: 400.5, Volume: 900, TradeCount: 31, VWAP: 400.1},
	}}
	d, _ := newTestDownloader(t, src)

	res, err := d.DownloadBars(symbols, window, model.OneMinute)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, filepath.Join(d.OutputDir, "bars_2024-03-01.csv"), res.Path)
	assert.Equal(t, model.OneMinute, src.frame)

	records := readCSV(t, res.Path)
	require.Len(t, records, 3)
	assert.Equal(t, barHeader, records[0])
	assert.Equal(t, []string{"AAPL", "2024-03-01T09:30:00Z", "180", "181.5", "179.25", "181", "1200", "40", "180.7"}, records[1])
	assert.Equal(t, "MSFT", records[2][0])
}

func TestDownloadOverwritesExistingFile(t *testing.T) {
	src := &fakeSource{trades: []model.Trade{
		{Symbol: "AAPL", Timestamp: windowStart, Exchange: "V", Price: 180.15, Size: 100, ID: 7, Conditions: []string{"@", "I"}, Tape: "C"},
	}}
	d, _ := newTestDownloader(t, src)
	path := filepath.Join(d.OutputDir, "trades_2024-03-01.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\nstale\nstale\n"), 0o644))

	_, err := d.DownloadTrades(symbols, window)
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, tradeHeader, records[0])
	assert.Equal(t, []string{"AAPL", "2024-03-01T09:30:00Z", "V", "180.15", "100", "7", "@ I", "C"}, records[1])
}

func TestDownloadEmptyResultSkipsFileAndWarns(t *testing.T) {
	d, logs := newTestDownloader(t, &fakeSource{})

	res, err := d.DownloadQuotes(symbols, window)
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Zero(t, res.Rows)

	_, statErr := os.Stat(res.Path)
	assert.True(t, os.IsNotExist(statErr), "no file for an empty result")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "quotes", warnings[0].ContextMap()["kind"])
}

func TestDownloadAllContinuesPastFailingKind(t *testing.T) {
	apiErr := errors.New("subscription does not permit querying recent SIP data")
	src := &fakeSource{
		bars:      []model.Bar{{Symbol: "AAPL", Timestamp: windowStart, Close: 1}},
		quotesErr: apiErr,
		trades:    []model.Trade{{Symbol: "MSFT", Timestamp: windowStart, Price: 1, Size: 1}},
	}
	d, logs := newTestDownloader(t, src)

	results, err := d.DownloadAll(symbols, window, model.OneMinute)
	require.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "quotes")

	require.Len(t, results, 2)
	assert.Equal(t, model.KindBars, results[0].Kind)
	assert.Equal(t, model.KindTrades, results[1].Kind)
	assert.Equal(t, map[model.DataKind]int{model.KindBars: 1, model.KindQuotes: 1, model.KindTrades: 1}, src.calls)
	assert.Equal(t, 1, logs.FilterMessage("download failed").Len())

	_, statErr := os.Stat(filepath.Join(d.OutputDir, "quotes_2024-03-01.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadCreatesOutputDir(t *testing.T) {
	src := &fakeSource{bars: []model.Bar{{Symbol: "AAPL", Timestamp: windowStart}}}
	d, _ := newTestDownloader(t, src)
	d.OutputDir = filepath.Join(d.OutputDir, "nested", "out")

	res, err := d.DownloadBars(symbols, window, model.OneMinute)
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}
