package config

import (
	"alpaca-tools/internal/model"
	"fmt"
	"github.com/spf13/pflag"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultSecretsFile = "alpaca.secrets"
	DefaultSymbolsFile = "symbols.txt"
	DefaultOrdersFile  = "orders.csv"
)

// Download is the configuration of one downloader run.
type Download struct {
	SecretsFile string
	Section     string
	SymbolsFile string
	Window      model.TimeWindow
	TimeFrame   model.TimeFrame
	Feed        string
	OutputDir   string
	LogFile     string
	LogLevel    string
}

// Submit is the configuration of one submitter run.
type Submit struct {
	SecretsFile string
	Section     string
	OrdersFile  string
	Batch       string
	DryRun      bool
	FailFast    bool
	JournalDSN  string
	LogFile     string
	LogLevel    string
}

// ParseDownloadArgs parses the downloader command line. now supplies the
// default window: from the start of today until now.
func ParseDownloadArgs(args []string, now time.Time) (Download, error) {
	var (
		c                 Download
		start, end, frame string
	)
	fs := pflag.NewFlagSet("downloader", pflag.ContinueOnError)
	fs.StringVar(&c.SecretsFile, "secrets", DefaultSecretsFile, "INI file with the API key, secret and endpoint")
	fs.StringVar(&c.Section, "section", DefaultSection, "section of the secrets file to use")
	fs.StringVar(&c.SymbolsFile, "symbols", DefaultSymbolsFile, "text file with one ticker symbol per line")
	fs.StringVar(&start, "start_time", "", "window start, ISO-8601 (default: start of today)")
	fs.StringVar(&end, "end_time", "", "window end, ISO-8601 (default: now)")
	fs.StringVar(&frame, "timeframe", model.OneMinute.String(), "bar frequency, e.g. 1Min, 15Min, 1Hour, 1Day")
	fs.StringVar(&c.Feed, "feed", "", "market data feed (iex or sip); empty uses the account default")
	fs.StringVar(&c.OutputDir, "output_dir", ".", "directory the CSV files are written to")
	addLogFlags(fs, &c.LogFile, &c.LogLevel)
	if err := fs.Parse(args); err != nil {
		return c, err
	}

	c.Window = model.TimeWindow{Start: model.StartOfDay(now), End: now}
	var err error
	if start != "" {
		if c.Window.Start, err = ParseTime(start, now.Location()); err != nil {
			return c, fmt.Errorf("--start_time: %w", err)
		}
	}
	if end != "" {
		if c.Window.End, err = ParseTime(end, now.Location()); err != nil {
			return c, fmt.Errorf("--end_time: %w", err)
		}
	}
	if c.TimeFrame, err = model.ParseTimeFrame(frame); err != nil {
		return c, fmt.Errorf("--timeframe: %w", err)
	}
	c.Feed = strings.ToLower(strings.TrimSpace(c.Feed))
	return c, nil
}

// ParseSubmitArgs parses the submitter command line. now dates the default
// batch name.
func ParseSubmitArgs(args []string, now time.Time) (Submit, error) {
	var c Submit
	fs := pflag.NewFlagSet("submitter", pflag.ContinueOnError)
	fs.StringVar(&c.SecretsFile, "secrets", DefaultSecretsFile, "INI file with the API key, secret and endpoint")
	fs.StringVar(&c.Section, "section", DefaultSection, "section of the secrets file to use")
	fs.StringVar(&c.OrdersFile, "orders", DefaultOrdersFile, "comma or tab separated file with the orders to submit")
	fs.StringVar(&c.Batch, "batch", "", "seed of the generated client order IDs (default: <orders file>@<date>)")
	fs.BoolVar(&c.DryRun, "dry_run", false, "build and log the orders without submitting them")
	fs.BoolVar(&c.FailFast, "fail_fast", false, "stop at the first row that fails")
	fs.StringVar(&c.JournalDSN, "journal_dsn", "", "PostgreSQL DSN of the submission journal (optional)")
	addLogFlags(fs, &c.LogFile, &c.LogLevel)
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.Batch == "" {
		c.Batch = filepath.Base(c.OrdersFile) + "@" + now.Format(time.DateOnly)
	}
	return c, nil
}

func addLogFlags(fs *pflag.FlagSet, file, level *string) {
	fs.StringVar(file, "log_file", "", "also append logs to this file")
	fs.StringVar(level, "log_level", "info", "log level (debug, info, warn, error)")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTime accepts RFC 3339 timestamps and zone-less ISO-8601 date-times or
// dates; the latter are interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
