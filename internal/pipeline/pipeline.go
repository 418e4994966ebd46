// Package pipeline wires loading, feature derivation, assembly, portfolio
// construction and journaling into the runs driven by the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/config"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/crosssection"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/features"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/frame"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/runid"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Assembly
	registry *features.Registry
}

// New returns a pipeline for cfg. A nil logger uses slog.Default(); m may be nil.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Assembly) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		logger:   logger.With("component", "pipeline"),
		metrics:  m,
		registry: features.DefaultRegistry(),
	}
}

// WithRegistry replaces the calculation registry used when deriving features.
func (p *Pipeline) WithRegistry(r *features.Registry) *Pipeline {
	p.registry = r
	return p
}

// Load reads the configured tickers and, when enabled, derives the requested
// columns each ticker lacks.
func (p *Pipeline) Load(ctx context.Context) ([]crosssection.TickerTable, error) {
	loader := frame.NewLoader(p.cfg.InputDir, p.cfg.DateColumn, p.logger)
	loader.Workers = p.cfg.Workers
	inputs, err := loader.Load(ctx, p.cfg.Identifiers)
	if err != nil {
		return nil, err
	}
	if !p.cfg.Derive {
		return inputs, nil
	}

	wanted := append([]string(nil), p.cfg.Features...)
	if p.cfg.PortfolioEnabled() {
		wanted = append(wanted, p.cfg.Rebalance.SignalColumn)
	}
	for i, in := range inputs {
		inputs[i].Table = p.derive(in, wanted)
	}
	return inputs, nil
}

// derive sorts a ticker by date, dropping repeated dates, and adds the wanted
// columns it can. Failures are logged and assembly reports the missing
// features.
func (p *Pipeline) derive(in crosssection.TickerTable, wanted []string) *table.Table {
	dates, err := crosssection.NormalizeDateColumn(in.Table, p.cfg.DateColumn)
	if err != nil {
		return in.Table
	}
	normalized, err := in.Table.WithColumn(dates)
	if err != nil {
		return in.Table
	}
	sorted, dropped, err := crosssection.SortByDate(normalized, p.cfg.DateColumn)
	if err != nil {
		return in.Table
	}
	if nulls := dates.NullCount(); nulls > 0 {
		p.logger.Warn("rows without a date dropped", "ticker", in.Ticker, "rows", nulls)
	}
	if dropped > 0 {
		p.logger.Warn("duplicate dates dropped, first occurrence kept", "ticker", in.Ticker, "rows", dropped)
		p.metrics.DuplicateDates(dropped)
	}
	out, err := p.registry.Derive(sorted, wanted...)
	if err != nil {
		p.logger.Warn("feature derivation failed", "ticker", in.Ticker, "error", err)
		return sorted
	}
	if added := out.Ncol() - sorted.Ncol(); added > 0 {
		p.logger.Debug("derived features", "ticker", in.Ticker, "added", added)
	}
	return out
}

// Assemble builds the configured cross-sections.
func (p *Pipeline) Assemble(ctx context.Context, inputs []crosssection.TickerTable) (*crosssection.Result, error) {
	opts, err := p.cfg.Options()
	if err != nil {
		return nil, err
	}
	a, err := crosssection.New(opts, p.logger, p.metrics)
	if err != nil {
		return nil, err
	}
	return a.Assemble(ctx, inputs)
}

// Allocation is the output of portfolio construction.
type Allocation struct {
	SignalName string
	Signal     *table.Table
	Weights    *portfolio.Weights
}

// Portfolio computes the rebalance signal for the target symbol and the
// top-N weights from the assembled signal and universe cross-sections.
func (p *Pipeline) Portfolio(inputs []crosssection.TickerTable, res *crosssection.Result) (*Allocation, error) {
	target := p.cfg.Rebalance.TargetSymbol
	var src *table.Table
	for _, in := range inputs {
		if in.Ticker == target {
			src = in.Table
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("rebalance target %q was not loaded", target)
	}

	r, err := p.cfg.Range()
	if err != nil {
		return nil, err
	}
	signal, err := portfolio.RebalanceSignal(src, p.cfg.DateColumn, p.cfg.Rebalance.SignalColumn, r, p.cfg.SignalParams())
	if err != nil {
		return nil, fmt.Errorf("rebalance signal for %s: %w", target, err)
	}

	signals, err := crossSection(res, p.cfg.Portfolio.SignalFeature)
	if err != nil {
		return nil, err
	}
	universeTable, err := crossSection(res, p.cfg.Portfolio.UniverseFeature)
	if err != nil {
		return nil, err
	}

	dates, err := portfolio.RebalanceDates(signal, p.cfg.DateColumn, portfolio.SignalColumn)
	if err != nil {
		return nil, err
	}
	universe, err := portfolio.Universe(universeTable, p.cfg.DateColumn)
	if err != nil {
		return nil, err
	}
	w, err := portfolio.EqualWeights(signals, universe, dates, p.cfg.DateColumn, p.cfg.Portfolio.TopN)
	if err != nil {
		return nil, err
	}
	p.logger.Info("portfolio built",
		"target", target, "rebalances", len(dates), "weighted_dates", len(w.Dates), "top_n", p.cfg.Portfolio.TopN)

	return &Allocation{SignalName: "rebalance_signal_" + target, Signal: signal, Weights: w}, nil
}

func crossSection(res *crosssection.Result, feature string) (*table.Table, error) {
	if t, ok := res.Tables[feature]; ok {
		return t, nil
	}
	if err, ok := res.Errors[feature]; ok {
		return nil, fmt.Errorf("cross-section %s unavailable: %w", feature, err)
	}
	return nil, fmt.Errorf("cross-section %s was not assembled", feature)
}

// OpenJournal opens every configured output format.
func (p *Pipeline) OpenJournal() (journal.Journal, error) {
	out := p.cfg.Output
	var multi journal.Multi
	for _, f := range out.Formats {
		switch f {
		case "csv":
			j, err := journal.NewCSV(out.Dir)
			if err != nil {
				multi.Close()
				return nil, err
			}
			multi = append(multi, j)
		case "xlsx":
			multi = append(multi, journal.NewXLSX(underDir(out.Dir, out.Workbook)))
		case "sqlite":
			j, err := journal.NewSQLite(out.DBPath)
			if err != nil {
				multi.Close()
				return nil, err
			}
			multi = append(multi, j)
		default:
			multi.Close()
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}
	return multi, nil
}

func underDir(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Outcome is everything a run produced.
type Outcome struct {
	Run        journal.Run
	Result     *crosssection.Result
	Allocation *Allocation
}

// Run loads, assembles, optionally builds the portfolio, and records the
// results to j. Feature failures are recorded in the run rather than
// returned; the error covers I/O and portfolio failures.
func (p *Pipeline) Run(ctx context.Context, j journal.Journal, withPortfolio bool) (*Outcome, error) {
	inputs, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := p.Assemble(ctx, inputs)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res}
	var perr error
	if withPortfolio && p.cfg.PortfolioEnabled() {
		if out.Allocation, perr = p.Portfolio(inputs, res); perr != nil {
			p.logger.Error("portfolio construction failed", "error", perr)
		}
	}

	r, err := p.cfg.Range()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out.Run = journal.Run{
		RunID:      runid.At(now),
		Created:    now,
		Start:      r.Start,
		End:        r.End,
		DateColumn: p.cfg.DateColumn,
		Features:   res.Features,
		Tickers:    Tickers(res, inputs),
		Failed:     res.Failed(),
	}

	if err := p.Record(ctx, j, out); err != nil {
		return out, err
	}
	if path := p.cfg.Output.MetricsFile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			p.logger.Warn("metrics textfile not written", "path", path, "error", err)
		}
	}
	return out, perr
}

// Record writes an outcome to j.
func (p *Pipeline) Record(ctx context.Context, j journal.Journal, out *Outcome) error {
	runID := out.Run.RunID
	var errs []error
	errs = append(errs, j.RecordRun(ctx, out.Run))
	for _, f := range out.Result.Features {
		if t, ok := out.Result.Tables[f]; ok {
			errs = append(errs, j.RecordCrossSection(ctx, runID, f, t))
		}
	}
	if a := out.Allocation; a != nil {
		errs = append(errs, j.RecordCrossSection(ctx, runID, a.SignalName, a.Signal))
		errs = append(errs, j.RecordWeights(ctx, runID, a.Weights))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("record run %s: %w", runID, err)
	}
	p.logger.Info("run recorded", "run_id", runID, "features", len(out.Result.Tables), "failed", len(out.Run.Failed))
	return nil
}

// Tickers returns the output column names of an assembly: those of any
// assembled table, or the input identifiers when nothing assembled.
func Tickers(res *crosssection.Result, inputs []crosssection.TickerTable) []string {
	for _, f := range res.Features {
		if t, ok := res.Tables[f]; ok {
			names := t.Names()
			return names[1:]
		}
	}
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.Ticker
	}
	return out
}
