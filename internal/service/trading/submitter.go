package trading

import (
	"alpaca-tools/internal/model"
	"errors"
	"fmt"
	"go.uber.org/zap"
)

// Broker places one order request and returns the API confirmation.
type Broker interface {
	PlaceOrder(req model.OrderRequest) (*model.OrderConfirmation, error)
}

// Journal remembers accepted orders by client order ID.
type Journal interface {
	// FindOrderByClientOrderID returns nil when nothing is recorded.
	FindOrderByClientOrderID(clientOrderID string) (*model.SubmittedOrder, error)
	InsertOrder(order *model.SubmittedOrder) error
}

// ErrAborted wraps the row error that stopped a fail-fast run.
var ErrAborted = errors.New("submission aborted")

// RowFailure is a row that could not be built or was rejected.
type RowFailure struct {
	Line   int
	Symbol string
	Err    error
}

// Report is the outcome of one submission run.
type Report struct {
	Submitted []model.OrderConfirmation
	// Planned holds the requests built in dry-run mode.
	Planned []model.OrderRequest
	// Skipped holds the journal records of rows submitted by an earlier run.
	Skipped  []model.SubmittedOrder
	Failures []RowFailure
}

// OK reports whether every row was submitted, planned or skipped.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Submitter walks the order rows in file order and submits one request per
// row. A failing row is recorded and the walk continues unless FailFast is
// set. Rows without a CLIENT_ORDER_ID get one derived from Batch.
type Submitter struct {
	Broker  Broker
	Journal Journal
	Log     *zap.Logger
	Batch   string
	// Paper marks the broker as a paper trading account.
	Paper    bool
	DryRun   bool
	FailFast bool
}

// Submit processes rows in order. The returned error is non-nil only when a
// fail-fast run stops; row failures of a normal run are in Report.Failures.
func (s *Submitter) Submit(rows []model.OrderRow) (Report, error) {
	var report Report
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("order submission started",
		zap.Int("rows", len(rows)),
		zap.String("batch", s.Batch),
		zap.Bool("paper", s.Paper),
		zap.Bool("dry_run", s.DryRun),
		zap.Bool("fail_fast", s.FailFast),
	)
	if !s.Paper && !s.DryRun {
		log.Warn("orders will be placed on a live trading account")
	}

	for _, row := range rows {
		if _, ok := row.Lookup(model.ColClientOrderID); !ok && s.Batch != "" {
			row = withField(row, model.ColClientOrderID, ClientOrderID(s.Batch, row))
		}
		symbol, _ := row.Lookup(model.ColSymbol)
		rowLog := log.With(zap.Int("line", row.Line), zap.String("symbol", symbol))

		err := s.submitRow(row, rowLog, &report)
		if err == nil {
			continue
		}
		rowLog.Error("order row failed", zap.Error(err))
		report.Failures = append(report.Failures, RowFailure{Line: row.Line, Symbol: symbol, Err: err})
		if s.FailFast {
			logSummary(log, report, len(rows))
			return report, fmt.Errorf("%w at line %d: %w", ErrAborted, row.Line, err)
		}
	}

	logSummary(log, report, len(rows))
	return report, nil
}

func (s *Submitter) submitRow(row model.OrderRow, log *zap.Logger, report *Report) error {
	req, err := BuildOrderRequest(row)
	if err != nil {
		return err
	}
	base := req.Base()
	log = log.With(
		zap.String("type", string(req.Type())),
		zap.String("client_order_id", base.ClientOrderID),
	)

	if s.Journal != nil && base.ClientOrderID != "" {
		prev, err := s.Journal.FindOrderByClientOrderID(base.ClientOrderID)
		if err != nil {
			return fmt.Errorf("journal lookup: %w", err)
		}
		if prev != nil {
			log.Info("order already submitted, skipping",
				zap.String("order_id", prev.OrderID),
				zap.String("status", prev.Status),
				zap.Time("submitted_at", prev.SubmittedAt),
			)
			report.Skipped = append(report.Skipped, *prev)
			return nil
		}
	}

	if s.DryRun {
		log.Info("dry run, order not submitted",
			zap.String("side", string(base.Side)),
			zap.Stringer("qty", base.Qty),
			zap.String("tif", string(base.TimeInForce)),
		)
		report.Planned = append(report.Planned, req)
		return nil
	}

	log.Info("submitting order")
	conf, err := s.Broker.PlaceOrder(req)
	if err != nil {
		return err
	}
	log.Info("order submitted",
		zap.String("order_id", conf.OrderID),
		zap.String("status", conf.Status),
		zap.Time("submitted_at", conf.SubmittedAt),
	)
	report.Submitted = append(report.Submitted, *conf)

	if s.Journal != nil {
		if err := s.Journal.InsertOrder(model.NewSubmittedOrder(req, *conf)); err != nil {
			log.Warn("order submitted but not journaled", zap.Error(err))
		}
	}
	return nil
}

func withField(row model.OrderRow, col, value string) model.OrderRow {
	fields := make(map[string]string, len(row.Fields)+1)
	for k, v := range row.Fields {
		fields[k] = v
	}
	fields[col] = value
	return model.OrderRow{Line: row.Line, Fields: fields}
}

func logSummary(log *zap.Logger, r Report, rows int) {
	fields := []zap.Field{
		zap.Int("rows", rows),
		zap.Int("submitted", len(r.Submitted)),
		zap.Int("planned", len(r.Planned)),
		zap.Int("skipped", len(r.Skipped)),
		zap.Int("failed", len(r.Failures)),
	}
	if r.OK() {
		log.Info("order submission finished", fields...)
		return
	}
	log.Warn("order submission finished with failures", fields...)
	for _, f := range r.Failures {
		log.Warn("failed row", zap.Int("line", f.Line), zap.String("symbol", f.Symbol), zap.Error(f.Err))
	}
}
