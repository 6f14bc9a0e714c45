package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DataKind names one of the downloadable market data sets. Its value is also
// the output file prefix.
type DataKind string

const (
	KindBars   DataKind = "bars"
	KindQuotes DataKind = "quotes"
	KindTrades DataKind = "trades"
)

// DataKinds lists every kind in download order.
var DataKinds = []DataKind{KindBars, KindQuotes, KindTrades}

// TimeWindow is the half-open interval [Start, End) a download covers.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// TimeFrameUnit is the unit part of a bar frequency.
type TimeFrameUnit string

const (
	UnitMinute TimeFrameUnit = "Min"
	UnitHour   TimeFrameUnit = "Hour"
	UnitDay    TimeFrameUnit = "Day"
	UnitWeek   TimeFrameUnit = "Week"
	UnitMonth  TimeFrameUnit = "Month"
)

// TimeFrame is the bar sampling frequency, e.g. 1Min or 4Hour.
type TimeFrame struct {
	Amount int
	Unit   TimeFrameUnit
}

// OneMinute is the default bar frequency.
var OneMinute = TimeFrame{Amount: 1, Unit: UnitMinute}

// String renders the frequency in the form ParseTimeFrame accepts, e.g. "15Min".
func (tf TimeFrame) String() string {
	return strconv.Itoa(tf.Amount) + string(tf.Unit)
}

// ParseTimeFrame parses strings like "1Min", "15min", "1Hour" or "1Day".
func ParseTimeFrame(s string) (TimeFrame, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return TimeFrame{}, fmt.Errorf("invalid timeframe %q: missing amount", s)
	}
	amount, err := strconv.Atoi(s[:i])
	if err != nil || amount <= 0 {
		return TimeFrame{}, fmt.Errorf("invalid timeframe %q: amount must be positive", s)
	}
	for _, unit := range []TimeFrameUnit{UnitMinute, UnitHour, UnitDay, UnitWeek, UnitMonth} {
		if strings.EqualFold(s[i:], string(unit)) {
			return TimeFrame{Amount: amount, Unit: unit}, nil
		}
	}
	return TimeFrame{}, fmt.Errorf("invalid timeframe %q: unknown unit %q", s, s[i:])
}

// Bar is one OHLCV aggregate of a symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     uint64
	TradeCount uint64
	VWAP       float64
}

// Quote is one bid/ask snapshot of a symbol.
type Quote struct {
	Symbol      string
	Timestamp   time.Time
	BidExchange string
	BidPrice    float64
	BidSize     uint64
	AskExchange string
	AskPrice    float64
	AskSize     uint64
	Conditions  []string
	Tape        string
}

// Trade is one executed trade tick of a symbol.
type Trade struct {
	Symbol     string
	Timestamp  time.Time
	Exchange   string
	Price      float64
	Size       uint64
	ID         int64
	Conditions []string
	Tape       string
}

// StartOfDay returns 00:00:00.000000 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
