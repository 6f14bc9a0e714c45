package marketdata

import "alpaca-tools/internal/model"

// Source fetches one data kind for a set of symbols over a window in a single
// call. Implemented by client.Alpaca.
type Source interface {
	Bars(symbols []string, window model.TimeWindow, tf model.TimeFrame) ([]model.Bar, error)
	Quotes(symbols []string, window model.TimeWindow) ([]model.Quote, error)
	Trades(symbols []string, window model.TimeWindow) ([]model.Trade, error)
}
