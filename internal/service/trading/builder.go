package trading

import (
	"alpaca-tools/internal/model"
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"sort"
	"strconv"
	"strings"
)

// clientOrderIDSpace namespaces the UUIDv5 client order IDs of this tool.
var clientOrderIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("alpaca-tools/submitter"))

// BuildOrderRequest maps one orders-file row onto the order request variant
// named by its ORDER_TYPE column. It does no I/O.
func BuildOrderRequest(row model.OrderRow) (model.OrderRequest, error) {
	rawType, err := row.Get(model.ColOrderType)
	if err != nil {
		return nil, err
	}
	orderType, err := model.ParseOrderType(rawType)
	if err != nil {
		return nil, err
	}

	base, err := buildBase(row)
	if err != nil {
		return nil, err
	}

	switch orderType {
	case model.OrderTypeMarket:
		return model.MarketOrder{OrderBase: base}, nil

	case model.OrderTypeLimit:
		limit, err := requiredPrice(row, model.ColLimitPrice)
		if err != nil {
			return nil, err
		}
		return model.LimitOrder{OrderBase: base, LimitPrice: limit}, nil

	case model.OrderTypeStop:
		stop, err := requiredPrice(row, model.ColStopPrice)
		if err != nil {
			return nil, err
		}
		return model.StopOrder{OrderBase: base, StopPrice: stop}, nil

	case model.OrderTypeStopLimit:
		limit, err := requiredPrice(row, model.ColLimitPrice)
		if err != nil {
			return nil, err
		}
		stop, err := requiredPrice(row, model.ColStopPrice)
		if err != nil {
			return nil, err
		}
		return model.StopLimitOrder{OrderBase: base, LimitPrice: limit, StopPrice: stop}, nil

	case model.OrderTypeTrailingStop:
		trailPrice, err := optionalPrice(row, model.ColTrailPrice)
		if err != nil {
			return nil, err
		}
		trailPercent, err := optionalPrice(row, model.ColTrailPercent)
		if err != nil {
			return nil, err
		}
		return model.TrailingStopOrder{OrderBase: base, TrailPrice: trailPrice, TrailPercent: trailPercent}, nil
	}

	return nil, &model.InvalidOrderTypeError{Value: rawType}
}

func buildBase(row model.OrderRow) (model.OrderBase, error) {
	var base model.OrderBase

	symbol, err := row.Get(model.ColSymbol)
	if err != nil {
		return base, err
	}
	rawQty, err := row.Get(model.ColQty)
	if err != nil {
		return base, err
	}
	qty, err := parseDecimal(model.ColQty, rawQty)
	if err != nil {
		return base, err
	}
	rawSide, err := row.Get(model.ColOrderSide)
	if err != nil {
		return base, err
	}
	side, err := model.ParseSide(rawSide)
	if err != nil {
		return base, err
	}
	rawTIF, err := row.Get(model.ColTimeInForce)
	if err != nil {
		return base, err
	}
	tif, err := model.ParseTimeInForce(rawTIF)
	if err != nil {
		return base, err
	}

	base = model.OrderBase{
		Symbol:      symbol,
		Qty:         qty,
		Side:        side,
		TimeInForce: tif,
	}
	if v, ok := row.Lookup(model.ColClientOrderID); ok {
		base.ClientOrderID = v
	}
	if v, ok := row.Lookup(model.ColExtendedHours); ok {
		ext, err := strconv.ParseBool(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q", model.ErrInvalidValue, model.ColExtendedHours, v)
		}
		base.ExtendedHours = ext
	}
	return base, nil
}

func requiredPrice(row model.OrderRow, col string) (decimal.Decimal, error) {
	raw, err := row.Get(col)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return parsePrice(col, raw)
}

func optionalPrice(row model.OrderRow, col string) (*decimal.Decimal, error) {
	raw, ok := row.Lookup(col)
	if !ok {
		return nil, nil
	}
	price, err := parsePrice(col, raw)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func parsePrice(col, raw string) (decimal.Decimal, error) {
	price, err := parseDecimal(col, raw)
	if err != nil {
		return price, err
	}
	if !price.IsPositive() {
		return price, fmt.Errorf("%w: %s=%s", model.ErrNonPositivePrice, col, raw)
	}
	return price, nil
}

func parseDecimal(col, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return d, fmt.Errorf("%w: %s=%q", model.ErrInvalidValue, col, raw)
	}
	return d, nil
}

// ClientOrderID derives a stable client order ID for row within batch: the
// same batch, line and row content always give the same ID.
func ClientOrderID(batch string, row model.OrderRow) string {
	cols := make([]string, 0, len(row.Fields))
	for col := range row.Fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString(batch)
	b.WriteString("|")
	b.WriteString(strconv.Itoa(row.Line))
	for _, col := range cols {
		b.WriteString("|")
		b.WriteString(col)
		b.WriteString("=")
		b.WriteString(strings.ToUpper(row.Fields[col]))
	}
	return uuid.NewSHA1(clientOrderIDSpace, []byte(b.String())).String()
}
