package client

import (
	"alpaca-tools/internal/model"
	"fmt"
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
	"strings"
)

type tradingAPI interface {
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

type marketDataAPI interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
	GetMultiQuotes(symbols []string, req marketdata.GetQuotesRequest) (map[string][]marketdata.Quote, error)
	GetMultiTrades(symbols []string, req marketdata.GetTradesRequest) (map[string][]marketdata.Trade, error)
}

// Alpaca wraps the trading and market data clients of the Alpaca SDK behind
// the domain types of this module. Paging, retries and authentication are
// left to the SDK.
type Alpaca struct {
	trading tradingAPI
	data    marketDataAPI
	paper   bool
	log     *zap.Logger
}

// NewAlpaca builds both SDK clients from one credentials record. The trading
// client talks to creds.Endpoint; feed selects the market data feed and may
// be empty.
func NewAlpaca(creds model.Credentials, feed string, log *zap.Logger) *Alpaca {
	if log == nil {
		log = zap.NewNop()
	}
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    creds.Key,
		APISecret: creds.Secret,
		BaseURL:   strings.TrimRight(creds.Endpoint, "/"),
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    creds.Key,
		APISecret: creds.Secret,
		Feed:      marketdata.Feed(feed),
	})

	log.Info("alpaca client initialized",
		zap.String("key", maskKey(creds.Key)),
		zap.String("endpoint", creds.Endpoint),
		zap.Bool("paper", creds.IsPaper()),
	)

	return &Alpaca{trading: trading, data: data, paper: creds.IsPaper(), log: log}
}

// IsPaper reports whether orders go to the paper trading API.
func (a *Alpaca) IsPaper() bool {
	return a.paper
}

// Bars fetches bars of every symbol over the window in one request.
func (a *Alpaca) Bars(symbols []string, window model.TimeWindow, tf model.TimeFrame) ([]model.Bar, error) {
	symbols = uniqueSymbols(symbols)
	raw, err := a.data.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: toTimeFrame(tf),
		Start:     window.Start,
		End:       window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}

	var out []model.Bar
	for _, symbol := range symbols {
		for _, b := range raw[symbol] {
			out = append(out, model.Bar{
				Symbol:     symbol,
				Timestamp:  b.Timestamp,
				Open:       b.Open,
				High:       b.High,
				Low:        b.Low,
				Close:      b.Close,
				Volume:     uint64(b.Volume),
				TradeCount: uint64(b.TradeCount),
				VWAP:       b.VWAP,
			})
		}
	}
	return out, nil
}

// Quotes fetches quotes of every symbol over the window in one request.
func (a *Alpaca) Quotes(symbols []string, window model.TimeWindow) ([]model.Quote, error) {
	symbols = uniqueSymbols(symbols)
	raw, err := a.data.GetMultiQuotes(symbols, marketdata.GetQuotesRequest{
		Start: window.Start,
		End:   window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("get quotes: %w", err)
	}

	var out []model.Quote
	for _, symbol := range symbols {
		for _, q := range raw[symbol] {
			out = append(out, model.Quote{
				Symbol:      symbol,
				Timestamp:   q.Timestamp,
				BidExchange: q.BidExchange,
				BidPrice:    q.BidPrice,
				BidSize:     uint64(q.BidSize),
				AskExchange: q.AskExchange,
				AskPrice:    q.AskPrice,
				AskSize:     uint64(q.AskSize),
				Conditions:  q.Conditions,
				Tape:        q.Tape,
			})
		}
	}
	return out, nil
}

// Trades fetches trades of every symbol over the window in one request.
func (a *Alpaca) Trades(symbols []string, window model.TimeWindow) ([]model.Trade, error) {
	symbols = uniqueSymbols(symbols)
	raw, err := a.data.GetMultiTrades(symbols, marketdata.GetTradesRequest{
		Start: window.Start,
		End:   window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	var out []model.Trade
	for _, symbol := range symbols {
		for _, t := range raw[symbol] {
			out = append(out, model.Trade{
				Symbol:     symbol,
				Timestamp:  t.Timestamp,
				Exchange:   t.Exchange,
				Price:      t.Price,
				Size:       uint64(t.Size),
				ID:         int64(t.ID),
				Conditions: t.Conditions,
				Tape:       t.Tape,
			})
		}
	}
	return out, nil
}

// PlaceOrder submits one order request and returns the API's confirmation.
func (a *Alpaca) PlaceOrder(req model.OrderRequest) (*model.OrderConfirmation, error) {
	placeReq, err := toPlaceOrderRequest(req)
	if err != nil {
		return nil, err
	}

	a.log.Debug("placing order",
		zap.String("symbol", placeReq.Symbol),
		zap.String("type", string(placeReq.Type)),
		zap.String("client_order_id", placeReq.ClientOrderID),
	)
	order, err := a.trading.PlaceOrder(placeReq)
	if err != nil {
		return nil, fmt.Errorf("place %s order for %s: %w", req.Type(), placeReq.Symbol, err)
	}
	return toConfirmation(order), nil
}

func toPlaceOrderRequest(req model.OrderRequest) (alpaca.PlaceOrderRequest, error) {
	base := req.Base()

	side, ok := sides[base.Side]
	if !ok {
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("%w: %q", model.ErrInvalidOrderSide, base.Side)
	}
	tif, ok := timesInForce[base.TimeInForce]
	if !ok {
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("%w: %q", model.ErrInvalidTimeInForce, base.TimeInForce)
	}

	qty := base.Qty
	out := alpaca.PlaceOrderRequest{
		Symbol:        base.Symbol,
		Qty:           &qty,
		Side:          side,
		TimeInForce:   tif,
		ClientOrderID: base.ClientOrderID,
		ExtendedHours: base.ExtendedHours,
	}

	switch o := req.(type) {
	case model.MarketOrder:
		out.Type = alpaca.Market
	case model.LimitOrder:
		out.Type = alpaca.Limit
		out.LimitPrice = &o.LimitPrice
	case model.StopOrder:
		out.Type = alpaca.Stop
		out.StopPrice = &o.StopPrice
	case model.StopLimitOrder:
		out.Type = alpaca.StopLimit
		out.LimitPrice = &o.LimitPrice
		out.StopPrice = &o.StopPrice
	case model.TrailingStopOrder:
		out.Type = alpaca.TrailingStop
		out.TrailPrice = o.TrailPrice
		out.TrailPercent = o.TrailPercent
	default:
		return alpaca.PlaceOrderRequest{}, &model.InvalidOrderTypeError{Value: string(req.Type())}
	}
	return out, nil
}

var sides = map[model.Side]alpaca.Side{
	model.SideBuy:  alpaca.Buy,
	model.SideSell: alpaca.Sell,
}

var timesInForce = map[model.TimeInForce]alpaca.TimeInForce{
	model.TIFDay: alpaca.Day,
	model.TIFGTC: alpaca.GTC,
	model.TIFOPG: alpaca.OPG,
	model.TIFCLS: alpaca.CLS,
	model.TIFIOC: alpaca.IOC,
	model.TIFFOK: alpaca.FOK,
}

func toConfirmation(o *alpaca.Order) *model.OrderConfirmation {
	conf := &model.OrderConfirmation{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		OrderType:     string(o.Type),
		Status:        string(o.Status),
		SubmittedAt:   o.SubmittedAt,
	}
	if o.Qty != nil {
		conf.Qty = o.Qty.String()
	}
	return conf
}

func toTimeFrame(tf model.TimeFrame) marketdata.TimeFrame {
	var unit marketdata.TimeFrameUnit
	switch tf.Unit {
	case model.UnitHour:
		unit = marketdata.Hour
	case model.UnitDay:
		unit = marketdata.Day
	case model.UnitWeek:
		unit = marketdata.Week
	case model.UnitMonth:
		unit = marketdata.Month
	default:
		unit = marketdata.Min
	}
	return marketdata.NewTimeFrame(tf.Amount, unit)
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", len(key)-4)
}
