package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidOrderSide   = errors.New("invalid order side")
	ErrInvalidTimeInForce = errors.New("invalid time in force")
	ErrInvalidValue       = errors.New("invalid field value")
	ErrNonPositivePrice   = errors.New("price must be positive")
)

// InvalidOrderTypeError carries the ORDER_TYPE value that matched no known tag.
type InvalidOrderTypeError struct {
	Value string
}

func (e *InvalidOrderTypeError) Error() string {
	return fmt.Sprintf("invalid order type %q", e.Value)
}

// Is matches ErrInvalidOrderType.
func (e *InvalidOrderTypeError) Is(target error) bool {
	return target == ErrInvalidOrderType
}

// Orders file columns.
const (
	ColSymbol        = "SYMBOL"
	ColQty           = "QTY"
	ColOrderSide     = "ORDER_SIDE"
	ColOrderType     = "ORDER_TYPE"
	ColTimeInForce   = "TIME_IN_FORCE"
	ColLimitPrice    = "LIMIT_PRICE"
	ColStopPrice     = "STOP_PRICE"
	ColTrailPrice    = "TRAIL_PRICE"
	ColTrailPercent  = "TRAIL_PERCENT"
	ColClientOrderID = "CLIENT_ORDER_ID"
	ColExtendedHours = "EXTENDED_HOURS"
)

// OrderType is the closed set of order types the builder accepts.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStop         OrderType = "STOP"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

var orderTypes = map[string]OrderType{
	"MARKET":        OrderTypeMarket,
	"LIMIT":         OrderTypeLimit,
	"STOP":          OrderTypeStop,
	"STOP_LIMIT":    OrderTypeStopLimit,
	"TRAILING_STOP": OrderTypeTrailingStop,
}

// ParseOrderType maps a case-insensitive tag onto OrderType. Unknown values
// return an *InvalidOrderTypeError.
func ParseOrderType(s string) (OrderType, error) {
	if t, ok := orderTypes[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", &InvalidOrderTypeError{Value: s}
}

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide maps an ORDER_SIDE value, in any case, to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderSide, s)
}

// TimeInForce says how long an order stays working.
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC"
	TIFOPG TimeInForce = "OPG"
	TIFCLS TimeInForce = "CLS"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

var timesInForce = map[string]TimeInForce{
	"DAY": TIFDay,
	"GTC": TIFGTC,
	"OPG": TIFOPG,
	"CLS": TIFCLS,
	"IOC": TIFIOC,
	"FOK": TIFFOK,
}

// ParseTimeInForce maps a TIME_IN_FORCE value, in any case, to a TimeInForce.
func ParseTimeInForce(s string) (TimeInForce, error) {
	if tif, ok := timesInForce[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return tif, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeInForce, s)
}

// OrderRow is one data line of the orders file. Fields is keyed by the
// upper-cased header name; Line is the line number in the file, counting
// the header as line 1.
type OrderRow struct {
	Line   int
	Fields map[string]string
}

// Lookup returns the value of a column and whether it is present and non-empty.
func (r OrderRow) Lookup(col string) (string, bool) {
	v, ok := r.Fields[col]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Get returns the value of a required column.
func (r OrderRow) Get(col string) (string, error) {
	v, ok := r.Lookup(col)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, col)
	}
	return v, nil
}

// OrderBase is the part shared by every order request. It is embedded by each
// variant and is not submittable on its own.
type OrderBase struct {
	Symbol        string
	Qty           decimal.Decimal
	Side          Side
	TimeInForce   TimeInForce
	ClientOrderID string
	ExtendedHours bool
}

// Base returns the fields shared by every order variant.
func (b OrderBase) Base() OrderBase { return b }

// OrderRequest is implemented only by the variants declared in this file.
type OrderRequest interface {
	Base() OrderBase
	Type() OrderType
	isOrderRequest()
}

// MarketOrder executes at the current market price.
type MarketOrder struct {
	OrderBase
}

// LimitOrder executes at LimitPrice or better.
type LimitOrder struct {
	OrderBase
	LimitPrice decimal.Decimal
}

// StopOrder becomes a market order once StopPrice trades.
type StopOrder struct {
	OrderBase
	StopPrice decimal.Decimal
}

// StopLimitOrder becomes a limit order at LimitPrice once StopPrice trades.
type StopLimitOrder struct {
	OrderBase
	LimitPrice decimal.Decimal
	StopPrice  decimal.Decimal
}

// TrailingStopOrder needs exactly one of TrailPrice and TrailPercent; the
// trading API enforces it.
type TrailingStopOrder struct {
	OrderBase
	TrailPrice   *decimal.Decimal
	TrailPercent *decimal.Decimal
}

// Type reports the variant tag.
func (MarketOrder) Type() OrderType       { return OrderTypeMarket }
func (LimitOrder) Type() OrderType        { return OrderTypeLimit }
func (StopOrder) Type() OrderType         { return OrderTypeStop }
func (StopLimitOrder) Type() OrderType    { return OrderTypeStopLimit }
func (TrailingStopOrder) Type() OrderType { return OrderTypeTrailingStop }

func (MarketOrder) isOrderRequest()       {}
func (LimitOrder) isOrderRequest()        {}
func (StopOrder) isOrderRequest()         {}
func (StopLimitOrder) isOrderRequest()    {}
func (TrailingStopOrder) isOrderRequest() {}

// OrderConfirmation is what the trading API returned for an accepted order.
type OrderConfirmation struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	OrderType     string
	Qty           string
	Status        string
	SubmittedAt   time.Time
}

// String is the one-line form printed after a successful submission.
func (c OrderConfirmation) String() string {
	return fmt.Sprintf("%s %s %s %s qty=%s status=%s id=%s", c.Symbol, c.Side, c.OrderType, c.ClientOrderID, c.Qty, c.Status, c.OrderID)
}

// SubmittedOrder is a journal record of an accepted order.
type SubmittedOrder struct {
	ClientOrderID string
	OrderID       string
	Symbol        string
	Side          string
	OrderType     string
	Qty           decimal.Decimal
	LimitPrice    decimal.NullDecimal
	StopPrice     decimal.NullDecimal
	TrailPrice    decimal.NullDecimal
	TrailPercent  decimal.NullDecimal
	Status        string
	SubmittedAt   time.Time
}

// NewSubmittedOrder flattens an accepted request and its confirmation.
func NewSubmittedOrder(req OrderRequest, conf OrderConfirmation) *SubmittedOrder {
	base := req.Base()
	rec := &SubmittedOrder{
		ClientOrderID: base.ClientOrderID,
		OrderID:       conf.OrderID,
		Symbol:        base.Symbol,
		Side:          string(base.Side),
		OrderType:     string(req.Type()),
		Qty:           base.Qty,
		Status:        conf.Status,
		SubmittedAt:   conf.SubmittedAt,
	}
	if conf.ClientOrderID != "" {
		rec.ClientOrderID = conf.ClientOrderID
	}
	switch o := req.(type) {
	case LimitOrder:
		rec.LimitPrice = decimal.NewNullDecimal(o.LimitPrice)
	case StopOrder:
		rec.StopPrice = decimal.NewNullDecimal(o.StopPrice)
	case StopLimitOrder:
		rec.LimitPrice = decimal.NewNullDecimal(o.LimitPrice)
		rec.StopPrice = decimal.NewNullDecimal(o.StopPrice)
	case TrailingStopOrder:
		if o.TrailPrice != nil {
			rec.TrailPrice = decimal.NewNullDecimal(*o.TrailPrice)
		}
		if o.TrailPercent != nil {
			rec.TrailPercent = decimal.NewNullDecimal(*o.TrailPercent)
		}
	}
	return rec
}
