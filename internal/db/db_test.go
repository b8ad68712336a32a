package db

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/testutil"
	"github.com/banshee-data/rula.report/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "rula.db"))
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	clock.AutoStep(time.Second)
	db.SetClock(clock)
	t.Cleanup(func() { db.Close() })
	return db
}

func scoredTrial(t *testing.T, id string) (*rula.TrialResult, *summary.TrialSummary) {
	t.Helper()
	res, err := rula.Score(context.Background(), testutil.WorkedExampleTrial(id, 50, 10), rula.DefaultParams())
	require.NoError(t, err)
	return res, summary.SummarizeTrial(res)
}

func assertSameBits(t *testing.T, want, got []float64, name string) {
	t.Helper()
	require.Len(t, got, len(want), name)
	for i := range want {
		if math.Float64bits(want[i]) != math.Float64bits(got[i]) {
			t.Fatalf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestNewDB_Migrates(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('scoring_runs', 'trial_results', 'step_series')`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestBlobEncoding(t *testing.T) {
	in := []float64{1, math.NaN(), -0.5, math.Inf(1)}
	out, err := decodeSeries(encodeSeries(in))
	require.NoError(t, err)
	assertSameBits(t, in, out, "series")

	assert.Nil(t, encodeSeries(nil))
	out, err = decodeSeries(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = decodeSeries([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.Nil(t, nullFloat(math.NaN()))
	assert.Equal(t, 2.5, nullFloat(2.5))
}

func TestRuns(t *testing.T) {
	db := setupTestDB(t)

	p := rula.DefaultParams()
	p.ArmLoad = 2
	run, err := db.CreateRun(p)
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.NotEmpty(t, run.Version)

	require.NoError(t, db.FinishRun(run.RunID, 4, 1, 1500*time.Millisecond))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Trials)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, p, got.Params)

	second, err := db.CreateRun(rula.DefaultParams())
	require.NoError(t, err)
	latest, err := db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)

	_, err = db.GetRun("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.FinishRun("missing", 0, 0, 0), ErrNotFound))
}

func TestLatestRun_Empty(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.LatestRun()
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveTrial_RoundTrip(t *testing.T) {
	db := setupTestDB(t)

	res, sum := scoredTrial(t, "T01")
	res.SubjectID = "S1"
	// Missing values must be stored as well.
	res.Final[3] = math.NaN()
	res.Steps[0].Scores[3] = math.NaN()
	res.NaNFrames = 1

	run, err := db.CreateRun(res.Params)
	require.NoError(t, err)
	resultID, err := db.SaveTrial(run.RunID, res, sum)
	require.NoError(t, err)

	got, err := db.LoadResult(resultID)
	require.NoError(t, err)

	assert.Equal(t, res.TrialID, got.TrialID)
	assert.Equal(t, "S1", got.SubjectID)
	assert.Equal(t, res.Frames, got.Frames)
	assert.Equal(t, 1, got.NaNFrames)
	assert.Equal(t, res.Params, got.Params)
	assertSameBits(t, res.Times, got.Times, "times")
	assertSameBits(t, res.Durations, got.Durations, "durations")
	assertSameBits(t, res.Final, got.Final, "final")

	require.Len(t, got.Steps, len(res.Steps))
	for i, want := range res.Steps {
		s := got.Steps[i]
		assert.Equal(t, want.Name, s.Name)
		assert.Equal(t, want.Step, s.Step)
		assert.Equal(t, want.Side, s.Side)
		assert.Equal(t, want.Band, s.Band, want.Name)
		assert.Equal(t, want.Capped, s.Capped)
		assertSameBits(t, want.Scores, s.Scores, want.Name)
		assertSameBits(t, want.Angle, s.Angle, want.Name+" angle")
		assertSameBits(t, want.Offset, s.Offset, want.Name+" offset")
	}

	loaded, err := db.LoadSummary(resultID)
	require.NoError(t, err)
	assert.Equal(t, sum.TrialID, loaded.TrialID)
	assert.Equal(t, sum.Status, loaded.Status)
	assert.Equal(t, sum.Final.Median, loaded.Final.Median)
	assert.Len(t, loaded.Steps, len(sum.Steps))
}

func TestSaveTrial_Failed(t *testing.T) {
	db := setupTestDB(t)

	run, err := db.CreateRun(rula.DefaultParams())
	require.NoError(t, err)

	sum := summary.FailedTrial("T09", "S2", "seated", errors.New("no frames"))
	resultID, err := db.SaveTrial(run.RunID, nil, sum)
	require.NoError(t, err)

	rows, err := db.ListTrials(run.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, summary.StatusFailed, rows[0].Status)
	assert.Equal(t, "seated", rows[0].Condition)
	assert.Nil(t, rows[0].FinalMedian)
	assert.NotEmpty(t, rows[0].Reason)

	res, err := db.LoadResult(resultID)
	require.NoError(t, err)
	assert.Empty(t, res.Steps)
	assert.Nil(t, res.Final)

	_, err = db.SaveTrial(run.RunID, nil, nil)
	assert.Error(t, err)
}

func TestListAndResolve(t *testing.T) {
	db := setupTestDB(t)

	run, err := db.CreateRun(rula.DefaultParams())
	require.NoError(t, err)

	res, sum := scoredTrial(t, "T01")
	first, err := db.SaveTrial(run.RunID, res, sum)
	require.NoError(t, err)
	res2, sum2 := scoredTrial(t, "T02")
	_, err = db.SaveTrial(run.RunID, res2, sum2)
	require.NoError(t, err)

	other, err := db.CreateRun(rula.DefaultParams())
	require.NoError(t, err)
	newer, err := db.SaveTrial(other.RunID, res, sum)
	require.NoError(t, err)

	all, err := db.ListTrials("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newer, all[0].ResultID)
	require.NotNil(t, all[0].FinalMedian)
	assert.Equal(t, 3.0, *all[0].FinalMedian)

	byRun, err := db.ListTrials(run.RunID)
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"result id", first, first},
		{"trial id resolves to newest", "T01", newer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ResolveResultID(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = db.ResolveResultID("T99")
	assert.True(t, errors.Is(err, ErrNotFound))

	sums, err := db.RunSummaries(run.RunID)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "T01", sums[0].TrialID)
	assert.Equal(t, "T02", sums[1].TrialID)
}

func TestLoad_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.LoadResult("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = db.LoadSummary("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	_, sum := scoredTrial(t, "T01")
	run, err := db.CreateRun(rula.DefaultParams())
	require.NoError(t, err)
	_, err = db.SaveTrial(run.RunID, nil, sum)
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	t.Run("debug index", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("tailsql registered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.NotEqual(t, http.StatusNotFound, w.Code)
	})

	t.Run("backup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))

		gz, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		data, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
	})
}
