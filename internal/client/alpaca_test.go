package client

import (
	"alpaca-tools/internal/model"
	"errors"
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
	"time"
)

type fakeTrading struct {
	got []alpaca.PlaceOrderRequest
	err error
}

func (f *fakeTrading) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return &alpaca.Order{
		ID:            "order-1",
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Qty:           req.Qty,
		Status:        "accepted",
		SubmittedAt:   time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
	}, nil
}

type fakeMarketData struct {
	symbols []string
	barsReq marketdata.GetBarsRequest
	bars    map[string][]marketdata.Bar
	quotes  map[string][]marketdata.Quote
	trades  map[string][]marketdata.Trade
	err     error
}

func (f *fakeMarketData) GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	f.symbols, f.barsReq = symbols, req
	return f.bars, f.err
}

func (f *fakeMarketData) GetMultiQuotes(symbols []string, req marketdata.GetQuotesRequest) (map[string][]marketdata.Quote, error) {
	f.symbols = symbols
	return f.quotes, f.err
}

func (f *fakeMarketData) GetMultiTrades(symbols []string, req marketdata.GetTradesRequest) (map[string][]marketdata.Trade, error) {
	f.symbols = symbols
	return f.trades, f.err
}

func newTestAlpaca(tr tradingAPI, md marketDataAPI) *Alpaca {
	return &Alpaca{trading: tr, data: md, log: zap.NewNop()}
}

func base() model.OrderBase {
	return model.OrderBase{
		Symbol:        "AAPL",
		Qty:           decimal.NewFromInt(10),
		Side:          model.SideBuy,
		TimeInForce:   model.TIFDay,
		ClientOrderID: "cid-1",
	}
}

func TestToPlaceOrderRequest(t *testing.T) {
	limit := decimal.RequireFromString("123.45")
	stop := decimal.RequireFromString("120")
	trail := decimal.RequireFromString("2.5")

	cases := []struct {
		name string
		req  model.OrderRequest
		typ  alpaca.OrderType
		chk  func(t *testing.T, r alpaca.PlaceOrderRequest)
	}{
		{"market", model.MarketOrder{OrderBase: base()}, alpaca.Market, func(t *testing.T, r alpaca.PlaceOrderRequest) {
			assert.Nil(t, r.LimitPrice)
			assert.Nil(t, r.StopPrice)
			assert.Nil(t, r.TrailPrice)
			assert.Nil(t, r.TrailPercent)
		}},
		{"limit", model.LimitOrder{OrderBase: base(), LimitPrice: limit}, alpaca.Limit, func(t *testing.T, r alpaca.PlaceOrderRequest) {
			require.NotNil(t, r.LimitPrice)
			assert.True(t, limit.Equal(*r.LimitPrice))
			assert.Nil(t, r.StopPrice)
		}},
		{"stop", model.StopOrder{OrderBase: base(), StopPrice: stop}, alpaca.Stop, func(t *testing.T, r alpaca.PlaceOrderRequest) {
			require.NotNil(t, r.StopPrice)
			assert.True(t, stop.Equal(*r.StopPrice))
			assert.Nil(t, r.LimitPrice)
		}},
		{"stop limit", model.StopLimitOrder{OrderBase: base(), LimitPrice: limit, StopPrice: stop}, alpaca.StopLimit, func(t *testing.T, r alpaca.PlaceOrderRequest) {
			require.NotNil(t, r.LimitPrice)
			require.NotNil(t, r.StopPrice)
			assert.True(t, limit.Equal(*r.LimitPrice))
			assert.True(t, stop.Equal(*r.StopPrice))
		}},
		{"trailing stop", model.TrailingStopOrder{OrderBase: base(), TrailPercent: &trail}, alpaca.TrailingStop, func(t *testing.T, r alpaca.PlaceOrderRequest) {
			assert.Nil(t, r.TrailPrice)
			require.NotNil(t, r.TrailPercent)
			assert.True(t, trail.Equal(*r.TrailPercent))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := toPlaceOrderRequest(tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, r.Type)
			assert.Equal(t, "AAPL", r.Symbol)
			require.NotNil(t, r.Qty)
			assert.True(t, decimal.NewFromInt(10).Equal(*r.Qty))
			assert.Equal(t, alpaca.Buy, r.Side)
			assert.Equal(t, alpaca.Day, r.TimeInForce)
			assert.Equal(t, "cid-1", r.ClientOrderID)
			tc.chk(t, r)
		})
	}
}

func TestToPlaceOrderRequestMapsSideAndTimeInForce(t *testing.T) {
	b := base()
	b.Side = model.SideSell
	b.TimeInForce = model.TIFGTC
	b.ExtendedHours = true

	r, err := toPlaceOrderRequest(model.MarketOrder{OrderBase: b})
	require.NoError(t, err)
	assert.Equal(t, alpaca.Sell, r.Side)
	assert.Equal(t, alpaca.GTC, r.TimeInForce)
	assert.True(t, r.ExtendedHours)

	b.TimeInForce = "WEEK"
	_, err = toPlaceOrderRequest(model.MarketOrder{OrderBase: b})
	assert.ErrorIs(t, err, model.ErrInvalidTimeInForce)
}

func TestPlaceOrder(t *testing.T) {
	tr := &fakeTrading{}
	a := newTestAlpaca(tr, nil)

	conf, err := a.PlaceOrder(model.MarketOrder{OrderBase: base()})
	require.NoError(t, err)
	require.Len(t, tr.got, 1)
	assert.Equal(t, "order-1", conf.OrderID)
	assert.Equal(t, "cid-1", conf.ClientOrderID)
	assert.Equal(t, "AAPL", conf.Symbol)
	assert.Equal(t, "buy", conf.Side)
	assert.Equal(t, "market", conf.OrderType)
	assert.Equal(t, "10", conf.Qty)
	assert.Equal(t, "accepted", conf.Status)
}

func TestPlaceOrderWrapsAPIError(t *testing.T) {
	apiErr := errors.New("insufficient buying power")
	a := newTestAlpaca(&fakeTrading{err: apiErr}, nil)

	_, err := a.PlaceOrder(model.MarketOrder{OrderBase: base()})
	require.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "AAPL")
}

func TestBarsFlattensInSymbolOrder(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	md := &fakeMarketData{bars: map[string][]marketdata.Bar{
		"MSFT": {{Timestamp: ts, Open: 400, High: 401, Low: 399, Close: 400.5, Volume: 1000, TradeCount: 12, VWAP: 400.2}},
		"AAPL": {
			{Timestamp: ts, Open: 180, High: 181, Low: 179, Close: 180.5, Volume: 500},
			{Timestamp: ts.Add(time.Minute), Open: 180.5, High: 182, Low: 180, Close: 181, Volume: 700},
		},
	}}
	a := newTestAlpaca(nil, md)
	window := model.TimeWindow{Start: ts, End: ts.Add(time.Hour)}

	bars, err := a.Bars([]string{"AAPL", "MSFT", "AAPL", "NVDA"}, window, model.TimeFrame{Amount: 5, Unit: model.UnitMinute})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, md.symbols)
	assert.Equal(t, window.Start, md.barsReq.Start)
	assert.Equal(t, window.End, md.barsReq.End)
	assert.Equal(t, marketdata.NewTimeFrame(5, marketdata.Min), md.barsReq.TimeFrame)

	require.Len(t, bars, 3)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, "AAPL", bars[1].Symbol)
	assert.Equal(t, "MSFT", bars[2].Symbol)
	assert.Equal(t, uint64(1000), bars[2].Volume)
	assert.Equal(t, uint64(12), bars[2].TradeCount)
}

func TestQuotesAndTrades(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	md := &fakeMarketData{
		quotes: map[string][]marketdata.Quote{
			"AAPL": {{Timestamp: ts, BidExchange: "Q", BidPrice: 180.1, BidSize: 3, AskExchange: "P", AskPrice: 180.2, AskSize: 4, Conditions: []string{"R"}, Tape: "C"}},
		},
		trades: map[string][]marketdata.Trade{
			"AAPL": {{ID: 42, Timestamp: ts, Exchange: "V", Price: 180.15, Size: 100, Conditions: []string{"@"}, Tape: "C"}},
		},
	}
	a := newTestAlpaca(nil, md)
	window := model.TimeWindow{Start: ts, End: ts.Add(time.Hour)}

	quotes, err := a.Quotes([]string{"AAPL"}, window)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, uint64(4), quotes[0].AskSize)
	assert.Equal(t, 180.1, quotes[0].BidPrice)

	trades, err := a.Trades([]string{"AAPL"}, window)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(42), trades[0].ID)
	assert.Equal(t, uint64(100), trades[0].Size)
}

func TestMarketDataErrorIsWrapped(t *testing.T) {
	apiErr := errors.New("forbidden")
	a := newTestAlpaca(nil, &fakeMarketData{err: apiErr})

	_, err := a.Quotes([]string{"AAPL"}, model.TimeWindow{})
	assert.ErrorIs(t, err, apiErr)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "PKAB****", maskKey("PKABCDEF"))
	assert.Equal(t, "****", maskKey("PK"))
}
