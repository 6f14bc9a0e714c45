package marketdata

import (
	"alpaca-tools/internal/model"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	barHeader   = []string{"symbol", "timestamp", "open", "high", "low", "close", "volume", "trade_count", "vwap"}
	quoteHeader = []string{"symbol", "timestamp", "bid_exchange", "bid_price", "bid_size", "ask_exchange", "ask_price", "ask_size", "conditions", "tape"}
	tradeHeader = []string{"symbol", "timestamp", "exchange", "price", "size", "id", "conditions", "tape"}
)

func barRecord(b model.Bar) []string {
	return []string{
		b.Symbol,
		formatTime(b.Timestamp),
		formatFloat(b.Open),
		formatFloat(b.High),
		formatFloat(b.Low),
		formatFloat(b.Close),
		strconv.FormatUint(b.Volume, 10),
		strconv.FormatUint(b.TradeCount, 10),
		formatFloat(b.VWAP),
	}
}

func quoteRecord(q model.Quote) []string {
	return []string{
		q.Symbol,
		formatTime(q.Timestamp),
		q.BidExchange,
		formatFloat(q.BidPrice),
		strconv.FormatUint(q.BidSize, 10),
		q.AskExchange,
		formatFloat(q.AskPrice),
		strconv.FormatUint(q.AskSize, 10),
		strings.Join(q.Conditions, " "),
		q.Tape,
	}
}

func tradeRecord(t model.Trade) []string {
	return []string{
		t.Symbol,
		formatTime(t.Timestamp),
		t.Exchange,
		formatFloat(t.Price),
		strconv.FormatUint(t.Size, 10),
		strconv.FormatInt(t.ID, 10),
		strings.Join(t.Conditions, " "),
		t.Tape,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeCSV creates or truncates path and writes header and rows to it.
func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
