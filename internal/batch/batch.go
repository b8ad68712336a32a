// Package batch scores many trials concurrently and collects their
// summaries, optionally persisting results and writing reports.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/banshee-data/rula.report/internal/db"
	"github.com/banshee-data/rula.report/internal/motion"
	"github.com/banshee-data/rula.report/internal/report"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/timeutil"
	"golang.org/x/sync/errgroup"
)

// DefaultTrialTimeout bounds a single trial when Options leaves it unset.
const DefaultTrialTimeout = 2 * time.Minute

// Job is one trial to score. Load runs on a worker goroutine.
type Job struct {
	// Name identifies the trial in failure rows when Load fails.
	Name string
	Load func() (*motion.Trial, error)
}

// FileJob loads a trial document from path.
func FileJob(path string) Job {
	base := filepath.Base(path)
	return Job{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Load: func() (*motion.Trial, error) { return motion.LoadTrialFile(path) },
	}
}

// TrialJob wraps an already loaded trial.
func TrialJob(t *motion.Trial) Job {
	return Job{Name: t.TrialID, Load: func() (*motion.Trial, error) { return t, nil }}
}

// Options configures a batch run. Store and Reports are optional.
type Options struct {
	Params       rula.Params
	Workers      int
	TrialTimeout time.Duration

	Store   *db.DB
	Reports *report.Writer
	Clock   timeutil.Clock
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) trialTimeout() time.Duration {
	if o.TrialTimeout > 0 {
		return o.TrialTimeout
	}
	return DefaultTrialTimeout
}

func (o Options) clock() timeutil.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return timeutil.RealClock{}
}

// Result is the outcome of a batch run.
type Result struct {
	// RunID is empty when no store is configured.
	RunID string
	// Summaries are in job order, one per job.
	Summaries []*summary.TrialSummary
	Failed    int
	Elapsed   time.Duration
	// SummaryPage is the cross-trial report page, if reports were written.
	SummaryPage string
}

// Run scores every job on a bounded worker pool. A trial that cannot be
// scored becomes a failed summary row; a configuration error cancels the
// whole run and is returned.
func Run(ctx context.Context, jobs []Job, opts Options) (*Result, error) {
	if err := opts.Params.Validate(); err != nil {
		opsf("invalid parameters: %v", err)
		return nil, err
	}

	clock := opts.clock()
	start := clock.Now()
	out := &Result{Summaries: make([]*summary.TrialSummary, len(jobs))}

	if opts.Store != nil {
		run, err := opts.Store.CreateRun(opts.Params)
		if err != nil {
			return nil, err
		}
		out.RunID = run.RunID
	}
	opsf("run %s: scoring %d trials with %d workers", out.RunID, len(jobs), opts.workers())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := runJob(gctx, job, opts, out.RunID)
			if err != nil {
				return err
			}
			out.Summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opsf("run %s: aborted: %v", out.RunID, err)
		return nil, err
	}

	for _, s := range out.Summaries {
		if s.Status == summary.StatusFailed {
			out.Failed++
		}
	}
	if opts.Reports != nil {
		path, err := opts.Reports.WriteSummary(out.Summaries)
		if err != nil {
			return nil, err
		}
		out.SummaryPage = path
	}

	out.Elapsed = clock.Since(start)
	if opts.Store != nil {
		if err := opts.Store.FinishRun(out.RunID, len(jobs), out.Failed, out.Elapsed); err != nil {
			return nil, err
		}
	}
	opsf("run %s: %d trials, %d failed in %s", out.RunID, len(jobs), out.Failed, out.Elapsed)
	return out, nil
}

// runJob loads, scores, summarises and stores one trial.
func runJob(ctx context.Context, job Job, opts Options, runID string) (*summary.TrialSummary, error) {
	clock := opts.clock()
	start := clock.Now()

	res, sum, err := scoreJob(ctx, job, opts)
	if err != nil {
		return nil, err
	}
	if sum.Status == summary.StatusFailed {
		opsf("trial %s failed: %s", sum.TrialID, sum.Reason)
	} else {
		diagf("trial %s: %s, %.1f%% valid, final median %g", sum.TrialID, sum.Status, sum.ValidPercent, sum.Final.Median)
	}

	if opts.Store != nil {
		if _, err := opts.Store.SaveTrial(runID, res, sum); err != nil {
			return nil, err
		}
	}
	if opts.Reports != nil && res != nil && sum.Status != summary.StatusFailed {
		if _, err := opts.Reports.WriteTrial(res, sum); err != nil {
			return nil, err
		}
	}
	tracef("trial %s: done in %s", sum.TrialID, clock.Since(start))
	return sum, nil
}

// scoreJob returns a nil result with a failed summary for trial-level
// errors, and an error only when the run must stop.
func scoreJob(ctx context.Context, job Job, opts Options) (*rula.TrialResult, *summary.TrialSummary, error) {
	trial, err := job.Load()
	if err != nil {
		if errors.Is(err, rula.ErrConfiguration) {
			return nil, nil, fmt.Errorf("trial %s: %w", job.Name, err)
		}
		return nil, summary.FailedTrial(job.Name, "", "", err), nil
	}

	tctx, cancel := context.WithTimeout(ctx, opts.trialTimeout())
	defer cancel()

	res, err := rula.Score(tctx, trial, opts.Params)
	switch {
	case err == nil:
		return res, summary.SummarizeTrial(res), nil
	case errors.Is(err, rula.ErrConfiguration):
		return nil, nil, err
	case ctx.Err() != nil:
		// The run itself was cancelled.
		return nil, nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("timed out after %s", opts.trialTimeout())
	}
	return nil, summary.FailedTrial(trial.TrialID, trial.SubjectID, trial.Condition, err), nil
}
