// Package crosssection assembles per-ticker time series into per-feature
// cross-sectional tables: one row per date, one column per ticker.
package crosssection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// CollisionSuffix is appended to a repeated ticker identifier.
const CollisionSuffix = "_r"

// MissingFeaturePolicy decides what happens when a ticker lacks a feature column.
type MissingFeaturePolicy int

const (
	// FailOnMissing fails the whole feature with a FeatureNotFoundError.
	FailOnMissing MissingFeaturePolicy = iota
	// SkipMissing logs a warning and leaves the ticker's column all null.
	SkipMissing
)

func (p MissingFeaturePolicy) String() string {
	if p == SkipMissing {
		return "skip"
	}
	return "fail"
}

// ParseMissingFeaturePolicy accepts "fail" (or "") and "skip".
func ParseMissingFeaturePolicy(s string) (MissingFeaturePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return FailOnMissing, nil
	case "skip":
		return SkipMissing, nil
	}
	return FailOnMissing, fmt.Errorf("unknown missing feature policy %q", s)
}

// TickerTable is one entry of the ordered ticker -> table mapping.
type TickerTable struct {
	Ticker string
	Table  *table.Table
}

// Options configures an assembly.
type Options struct {
	DateColumn     string
	Range          DateRange
	Features       []string
	MissingFeature MissingFeaturePolicy
	// Workers bounds the number of features assembled at once.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int
}

func (o Options) validate() error {
	if o.DateColumn == "" {
		return errors.New("date column is required")
	}
	if len(o.Features) == 0 {
		return errors.New("at least one feature is required")
	}
	seen := make(map[string]bool, len(o.Features))
	for _, f := range o.Features {
		if f == "" {
			return errors.New("feature names must not be empty")
		}
		if seen[f] {
			return fmt.Errorf("feature %q requested twice", f)
		}
		seen[f] = true
	}
	if o.Range.End.Before(o.Range.Start) {
		return fmt.Errorf("invalid date range %s", o.Range)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// Result maps each requested feature to its table or to the error that
// stopped it. Every requested feature appears in exactly one of the maps.
type Result struct {
	Features []string
	Tables   map[string]*table.Table
	Errors   map[string]error
}

// Failed lists the features that did not assemble, in request order.
func (r *Result) Failed() []string {
	var out []string
	for _, f := range r.Features {
		if _, ok := r.Errors[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the per-feature errors in request order, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		errs = append(errs, fmt.Errorf("feature %s: %w", f, r.Errors[f]))
	}
	return errors.Join(errs...)
}

// Assembler builds cross-sectional tables. It holds no per-call state and is
// safe for concurrent use.
type Assembler struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Assembly
}

// New returns an Assembler. A nil logger uses slog.Default(); m may be nil.
func New(opts Options, logger *slog.Logger, m *metrics.Assembly) (*Assembler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		opts:    opts,
		logger:  logger.With("component", "crosssection"),
		metrics: m,
	}, nil
}

// Assemble is a convenience wrapper around New and Assembler.Assemble.
func Assemble(ctx context.Context, inputs []TickerTable, opts Options) (*Result, error) {
	a, err := New(opts, nil, nil)
	if err != nil {
		return nil, err
	}
	return a.Assemble(ctx, inputs)
}

// prepared is a ticker's range-filtered, date-sorted, de-duplicated table.
type prepared struct {
	ticker string
	column string
	table  *table.Table
	err    error
}

// Assemble builds one table per requested feature. A failing feature is
// reported in Result.Errors and never affects the others. The returned error
// is non-nil only when the context is done before any work starts.
func (a *Assembler) Assemble(ctx context.Context, inputs []TickerTable) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	a.metrics.Tickers(len(inputs))

	preps := a.prepare(ctx, inputs)

	features := a.opts.Features
	tables := make([]*table.Table, len(features))
	errs := make([]error, len(features))

	g := new(errgroup.Group)
	g.SetLimit(a.opts.Workers)
	for i, feature := range features {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			tables[i], errs[i] = a.assembleFeature(ctx, preps, feature)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Features: append([]string(nil), features...),
		Tables:   make(map[string]*table.Table, len(features)),
		Errors:   make(map[string]error),
	}
	for i, feature := range features {
		if errs[i] != nil {
			res.Errors[feature] = errs[i]
			a.metrics.FeatureFailed(feature, errorKind(errs[i]))
			a.logger.Error("feature assembly failed", "feature", feature, "error", errs[i])
			continue
		}
		res.Tables[feature] = tables[i]
	}

	a.logger.Info("assembly complete",
		"tickers", len(inputs),
		"features", len(features),
		"failed", len(res.Errors),
		"range", a.opts.Range.String(),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// AssembleFeature builds the table for a single feature.
func (a *Assembler) AssembleFeature(ctx context.Context, inputs []TickerTable, feature string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.assembleFeature(ctx, a.prepare(ctx, inputs), feature)
}

// prepare filters every ticker once. Output column names are resolved here,
// in input order, so a repeated identifier is suffixed the same way whatever
// order the joins later run in.
func (a *Assembler) prepare(ctx context.Context, inputs []TickerTable) []prepared {
	preps := make([]prepared, len(inputs))
	used := make(map[string]bool, len(inputs)+1)
	used[a.opts.DateColumn] = true
	for i, in := range inputs {
		name := in.Ticker
		for used[name] {
			name += CollisionSuffix
		}
		if name != in.Ticker {
			cerr := &JoinCollisionError{Ticker: in.Ticker, Renamed: name}
			a.logger.Warn("join collision", "ticker", in.Ticker, "renamed", name, "error", cerr)
			a.metrics.Collision()
		}
		used[name] = true
		preps[i] = prepared{ticker: in.Ticker, column: name}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				preps[i].err = err
				return nil
			}
			preps[i].table, preps[i].err = a.prepareOne(in)
			return nil
		})
	}
	_ = g.Wait()
	return preps
}

func (a *Assembler) prepareOne(in TickerTable) (*table.Table, error) {
	if in.Table == nil {
		return nil, &SchemaError{Ticker: in.Ticker, Column: a.opts.DateColumn, Reason: "no table supplied"}
	}
	filtered, err := FilterRange(in.Table, a.opts.DateColumn, a.opts.Range)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) && se.Ticker == "" {
			se.Ticker = in.Ticker
		}
		return nil, err
	}
	sorted, dropped, err := SortByDate(filtered, a.opts.DateColumn)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		a.logger.Warn("duplicate dates dropped, first occurrence kept",
			"ticker", in.Ticker, "dropped", dropped)
		a.metrics.DuplicateDates(dropped)
	}
	return sorted, nil
}

func (a *Assembler) assembleFeature(ctx context.Context, preps []prepared, feature string) (*table.Table, error) {
	start := time.Now()
	if len(preps) == 0 {
		return nil, &EmptyInputError{Feature: feature, Reason: "no tickers supplied"}
	}

	tickers := make([]string, len(preps))
	kinds := make([]table.Kind, len(preps))
	panels := make([]*panel, 0, len(preps))
	rows := 0
	fallback := table.NullKind

	for i, p := range preps {
		tickers[i] = p.column
		kinds[i] = table.NullKind
		if p.err != nil {
			return nil, p.err
		}
		projected, err := Project(p.table, a.opts.DateColumn, feature, p.column)
		if err != nil {
			if errors.Is(err, ErrFeatureNotFound) && a.opts.MissingFeature == SkipMissing {
				a.logger.Warn("feature missing, ticker left null",
					"feature", feature, "ticker", p.ticker)
				a.metrics.MissingFeature(feature)
				continue
			}
			return nil, err
		}
		col, _ := projected.Col(p.column)
		kinds[i] = col.Kind()
		if fallback == table.NullKind {
			fallback = col.Kind()
		}
		rows += projected.Nrow()
		panels = append(panels, newPanel(projected, a.opts.DateColumn, i, i))
	}
	if fallback == table.NullKind {
		fallback = table.Float
	}
	for i := range kinds {
		if kinds[i] == table.NullKind {
			kinds[i] = fallback
		}
	}

	if len(panels) == 0 {
		return nil, &EmptyInputError{Feature: feature, Reason: "no ticker has the feature column"}
	}
	if rows == 0 {
		return nil, &EmptyInputError{Feature: feature, Reason: fmt.Sprintf("no rows within %s", a.opts.Range)}
	}

	acc, err := accumulate(ctx, panels)
	if err != nil {
		return nil, err
	}
	out, err := finalize(acc, a.opts.DateColumn, tickers, kinds)
	if err != nil {
		return nil, err
	}

	a.metrics.ObserveFeature(feature, time.Since(start), out.Nrow())
	a.logger.Debug("feature assembled",
		"feature", feature, "rows", out.Nrow(), "tickers", len(tickers), "elapsed", time.Since(start))
	return out, nil
}
