package batch

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rula.report/internal/db"
	"github.com/banshee-data/rula.report/internal/fsutil"
	"github.com/banshee-data/rula.report/internal/motion"
	"github.com/banshee-data/rula.report/internal/report"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/testutil"
	"github.com/banshee-data/rula.report/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialJobs(ids ...string) []Job {
	jobs := make([]Job, len(ids))
	for i, id := range ids {
		jobs[i] = TrialJob(testutil.WorkedExampleTrial(id, 20, 10))
	}
	return jobs
}

func TestRun_Summaries(t *testing.T) {
	jobs := append(trialJobs("T01", "T02", "T03"), FileJob(filepath.Join(t.TempDir(), "missing.json")))

	res, err := Run(context.Background(), jobs, Options{Params: rula.DefaultParams(), Workers: 2})
	require.NoError(t, err)

	assert.Empty(t, res.RunID)
	require.Len(t, res.Summaries, 4)
	assert.Equal(t, 1, res.Failed)
	for i, id := range []string{"T01", "T02", "T03"} {
		s := res.Summaries[i]
		assert.Equal(t, id, s.TrialID)
		assert.Equal(t, summary.StatusScored, s.Status)
		assert.Equal(t, 3.0, s.Final.Median)
	}
	missing := res.Summaries[3]
	assert.Equal(t, "missing", missing.TrialID)
	assert.Equal(t, summary.StatusFailed, missing.Status)
	assert.Contains(t, missing.Reason, "failed to open trial file")
}

func TestRun_StoreAndReports(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "rula.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	clock.AutoStep(250 * time.Millisecond)
	fs := fsutil.NewMemoryFileSystem()

	res, err := Run(context.Background(), trialJobs("T01", "T02"), Options{
		Params:  rula.DefaultParams(),
		Workers: 1,
		Store:   store,
		Reports: report.NewWriter(fs, "out"),
		Clock:   clock,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	assert.Positive(t, res.Elapsed)

	run, err := store.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Trials)
	assert.Zero(t, run.Failed)
	assert.Equal(t, res.Elapsed.Milliseconds(), run.DurationMs)

	stored, err := store.RunSummaries(res.RunID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "T01", stored[0].TrialID)

	loaded, err := store.LoadResult(mustResolve(t, store, "T02"))
	require.NoError(t, err)
	assert.Len(t, loaded.Final, 20)

	assert.Equal(t, filepath.Join("out", report.SummaryFile), res.SummaryPage)
	assert.True(t, fs.Exists(res.SummaryPage))
	assert.True(t, fs.Exists(filepath.Join("out", "T01", "final.png")))
	assert.True(t, fs.Exists(filepath.Join("out", "T02", "chart.html")))
}

func mustResolve(t *testing.T, store *db.DB, id string) string {
	t.Helper()
	resultID, err := store.ResolveResultID(id)
	require.NoError(t, err)
	return resultID
}

func TestRun_ConfigurationErrorStopsRun(t *testing.T) {
	tests := []struct {
		name   string
		params func(*rula.Params)
		jobs   []Job
	}{
		{
			name:   "invalid params",
			params: func(p *rula.Params) { p.BodyLoad = 9 },
			jobs:   trialJobs("T01"),
		},
		{
			name:   "unknown trunk landmark",
			params: func(p *rula.Params) { p.TrunkLandmark = "Tail" },
			jobs:   trialJobs("T01", "T02"),
		},
		{
			name:   "trial without frames",
			params: func(*rula.Params) {},
			jobs: append(trialJobs("T01"), TrialJob(&motion.Trial{
				TrialID:   "empty",
				FrameRate: 10,
				Joints:    motion.MustSchema(motion.XsensJoints),
			})),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := rula.DefaultParams()
			tt.params(&p)
			res, err := Run(context.Background(), tt.jobs, Options{Params: p, Workers: 1})
			assert.ErrorIs(t, err, rula.ErrConfiguration)
			assert.Nil(t, res)
		})
	}
}

func TestRun_TrialTimeout(t *testing.T) {
	res, err := Run(context.Background(), trialJobs("slow"), Options{
		Params:       rula.DefaultParams(),
		TrialTimeout: time.Nanosecond,
	})
	require.NoError(t, err)
	require.Len(t, res.Summaries, 1)
	assert.Equal(t, summary.StatusFailed, res.Summaries[0].Status)
	assert.Equal(t, "timed out after 1ns", res.Summaries[0].Reason)
	assert.Equal(t, 1, res.Failed)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, trialJobs("T01", "T02"), Options{Params: rula.DefaultParams()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRun_Empty(t *testing.T) {
	res, err := Run(context.Background(), nil, Options{Params: rula.DefaultParams()})
	require.NoError(t, err)
	assert.Empty(t, res.Summaries)
	assert.Zero(t, res.Failed)
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	assert.Positive(t, o.workers())
	assert.Equal(t, DefaultTrialTimeout, o.trialTimeout())
	assert.IsType(t, timeutil.RealClock{}, o.clock())

	o = Options{Workers: 3, TrialTimeout: time.Second}
	assert.Equal(t, 3, o.workers())
	assert.Equal(t, time.Second, o.trialTimeout())
}

func TestFileJob_Name(t *testing.T) {
	job := FileJob(filepath.Join("data", "subject1_trial2.json"))
	assert.Equal(t, "subject1_trial2", job.Name)
}

func TestRun_Logging(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	_, err := Run(context.Background(), trialJobs("T01"), Options{Params: rula.DefaultParams(), Workers: 1})
	require.NoError(t, err)

	assert.Contains(t, ops.String(), "[batch] ")
	assert.Contains(t, ops.String(), "scoring 1 trials with 1 workers")
	assert.Contains(t, ops.String(), "1 trials, 0 failed")
	assert.Contains(t, diag.String(), "trial T01: scored, 100.0% valid, final median 3")
	assert.Contains(t, trace.String(), "trial T01: done in")
}
