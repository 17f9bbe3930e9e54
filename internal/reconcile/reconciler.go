// Package reconcile periodically replays every group's history and compares
// it with the stored balances.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
)

// Verifier is the part of the ledger the reconciler drives.
type Verifier interface {
	GroupIDs(ctx context.Context) ([]string, error)
	Verify(ctx context.Context, groupID string) error
}

// Report is the result of one reconciliation pass.
type Report struct {
	Checked      int
	Inconsistent []*models.InconsistencyError
}

// Reconciler runs consistency checks over all groups.
type Reconciler struct {
	verifier    Verifier
	concurrency int
}

// New creates a Reconciler checking up to concurrency groups in parallel.
func New(verifier Verifier, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{verifier: verifier, concurrency: concurrency}
}

// RunOnce checks every group with history, or only groupIDs when given.
// Inconsistent groups are reported, not returned as errors; an error means a
// check could not be carried out.
func (r *Reconciler) RunOnce(ctx context.Context, groupIDs ...string) (*Report, error) {
	if len(groupIDs) == 0 {
		ids, err := r.verifier.GroupIDs(ctx)
		if err != nil {
			metrics.ReconcileRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to list groups: %w", err)
		}
		groupIDs = ids
	}

	var (
		mu     sync.Mutex
		report = &Report{Checked: len(groupIDs)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range groupIDs {
		g.Go(func() error {
			err := r.verifier.Verify(ctx, id)
			var inconsistent *models.InconsistencyError
			switch {
			case err == nil:
				return nil
			case errors.As(err, &inconsistent):
				slog.Error("Ledger drift detected", "group_id", id, "problems", inconsistent.Problems)
				mu.Lock()
				report.Inconsistent = append(report.Inconsistent, inconsistent)
				mu.Unlock()
				return nil
			default:
				return fmt.Errorf("verify group %s: %w", id, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	sort.Slice(report.Inconsistent, func(i, j int) bool {
		return report.Inconsistent[i].GroupID < report.Inconsistent[j].GroupID
	})
	metrics.InconsistentGroups.Set(float64(len(report.Inconsistent)))
	if len(report.Inconsistent) > 0 {
		metrics.ReconcileRuns.WithLabelValues("drift").Inc()
	} else {
		metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	}
	return report, nil
}

// Run calls RunOnce every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Reconciler started", "interval", interval, "concurrency", r.concurrency)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciler stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				slog.Error("Reconcile run failed", "error", err)
				continue
			}
			slog.Info("Reconcile run finished", "groups", report.Checked, "inconsistent", len(report.Inconsistent))
		}
	}
}
