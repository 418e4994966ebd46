// Package journal persists assembled cross-sections, rebalance signals and
// portfolio weights.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

var ErrNotFound = errors.New("not found")

// Run describes one assembly run.
type Run struct {
	RunID      string
	Created    time.Time
	Start      time.Time
	End        time.Time
	DateColumn string

	// Features requested, in order
	Features []string
	// Tickers as they appear in the cross-section columns
	Tickers []string
	// Features that could not be assembled
	Failed []string
}

// Journal records the outputs of a run. RecordCrossSection is also used for
// auxiliary tables such as the rebalance signal, keyed by name.
type Journal interface {
	RecordRun(ctx context.Context, run Run) error
	RecordCrossSection(ctx context.Context, runID, name string, t *table.Table) error
	RecordWeights(ctx context.Context, runID string, w *portfolio.Weights) error
	Close() error
}

// Multi fans every record out to all journals.
type Multi []Journal

func (m Multi) RecordRun(ctx context.Context, run Run) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordRun(ctx, run))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordCrossSection(ctx context.Context, runID, name string, t *table.Table) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordCrossSection(ctx, runID, name, t))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordWeights(ctx context.Context, runID string, w *portfolio.Weights) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordWeights(ctx, runID, w))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
