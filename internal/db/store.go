package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/version"
	"github.com/google/uuid"
)

// Run is one invocation of the batch scorer.
type Run struct {
	RunID      string      `json:"run_id"`
	CreatedAt  int64       `json:"created_at"`
	Version    string      `json:"version"`
	Params     rula.Params `json:"params"`
	Trials     int         `json:"trials"`
	Failed     int         `json:"failed"`
	DurationMs int64       `json:"duration_ms"`
}

// TrialRecord is the listing row of a stored trial result.
type TrialRecord struct {
	ResultID    string         `json:"result_id"`
	RunID       string         `json:"run_id"`
	TrialID     string         `json:"trial_id"`
	SubjectID   string         `json:"subject_id,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	Frames      int            `json:"frames"`
	NaNFrames   int            `json:"nan_frames"`
	Status      summary.Status `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	FinalMedian *float64       `json:"final_median"`
	FinalQ1     *float64       `json:"final_q1"`
	FinalQ3     *float64       `json:"final_q3"`
	CreatedAt   int64          `json:"created_at"`
}

// CreateRun records the start of a scoring run and the parameters it uses.
func (db *DB) CreateRun(p rula.Params) (*Run, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	run := &Run{
		RunID:     uuid.New().String(),
		CreatedAt: db.now(),
		Version:   version.String(),
		Params:    p,
	}
	err = retryOnBusy(func() error {
		_, err := db.Exec(`INSERT INTO scoring_runs (run_id, created_at, version, params_json) VALUES (?, ?, ?, ?)`,
			run.RunID, run.CreatedAt, run.Version, string(paramsJSON))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the run totals.
func (db *DB) FinishRun(runID string, trials, failed int, elapsed time.Duration) error {
	return retryOnBusy(func() error {
		res, err := db.Exec(`UPDATE scoring_runs SET trials = ?, failed = ?, duration_ms = ? WHERE run_id = ?`,
			trials, failed, elapsed.Milliseconds(), runID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil
	})
}

const runColumns = `run_id, created_at, version, params_json, trials, failed, COALESCE(duration_ms, 0)`

func scanRun(row *sql.Row) (*Run, error) {
	var (
		run        Run
		paramsJSON string
	)
	if err := row.Scan(&run.RunID, &run.CreatedAt, &run.Version, &paramsJSON, &run.Trials, &run.Failed, &run.DurationMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run: %w", ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode params: %w", run.RunID, err)
	}
	return &run, nil
}

// GetRun loads a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	return scanRun(db.QueryRow(`SELECT `+runColumns+` FROM scoring_runs WHERE run_id = ?`, runID))
}

// LatestRun returns the most recently created run.
func (db *DB) LatestRun() (*Run, error) {
	return scanRun(db.QueryRow(`SELECT ` + runColumns + ` FROM scoring_runs ORDER BY created_at DESC LIMIT 1`))
}

// SaveTrial stores a trial's summary and, when res is non-nil, every step
// series. A trial that failed before scoring is saved with res == nil.
// Returns the new result ID.
func (db *DB) SaveTrial(runID string, res *rula.TrialResult, sum *summary.TrialSummary) (string, error) {
	if sum == nil {
		return "", errors.New("trial summary is required")
	}
	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	resultID := uuid.New().String()
	createdAt := db.now()
	var (
		frames, nanFrames     int
		times, durations, fin []byte
	)
	if res != nil {
		frames, nanFrames = res.Frames, res.NaNFrames
		times = encodeSeries(res.Times)
		durations = encodeSeries(res.Durations)
		fin = encodeSeries(res.Final)
	}

	err = retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO trial_results (
				result_id, run_id, trial_id, subject_id, condition, frames, nan_frames,
				status, reason, final_median, final_q1, final_q3,
				times, durations, final, summary_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resultID, runID, sum.TrialID, sum.SubjectID, sum.Condition, frames, nanFrames,
			string(sum.Status), sum.Reason,
			nullFloat(sum.Final.Median), nullFloat(sum.Final.Q1), nullFloat(sum.Final.Q3),
			times, durations, fin, string(summaryJSON), createdAt,
		)
		if err != nil {
			return err
		}

		if res != nil {
			stmt, err := tx.Prepare(`
				INSERT INTO step_series (
					result_id, name, step, side, position, scores, angle, lateral_offset, band_json, capped
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for i, s := range res.Steps {
				var band interface{}
				if s.Band != nil {
					b, err := json.Marshal(s.Band)
					if err != nil {
						return err
					}
					band = string(b)
				}
				if _, err := stmt.Exec(resultID, s.Name, s.Step, s.Side, i,
					encodeSeries(s.Scores), encodeSeries(s.Angle), encodeSeries(s.Offset), band, s.Capped); err != nil {
					return fmt.Errorf("step %s: %w", s.Name, err)
				}
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("failed to save trial %s: %w", sum.TrialID, err)
	}
	return resultID, nil
}

// ListTrials returns stored results, newest first. An empty runID lists
// every run.
func (db *DB) ListTrials(runID string) ([]TrialRecord, error) {
	query := `
		SELECT result_id, run_id, trial_id, COALESCE(subject_id, ''), COALESCE(condition, ''),
			frames, nan_frames, status, COALESCE(reason, ''),
			final_median, final_q1, final_q3, created_at
		FROM trial_results`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at DESC, trial_id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialRecord
	for rows.Next() {
		var (
			r              TrialRecord
			status         string
			median, q1, q3 sql.NullFloat64
		)
		if err := rows.Scan(&r.ResultID, &r.RunID, &r.TrialID, &r.SubjectID, &r.Condition,
			&r.Frames, &r.NaNFrames, &status, &r.Reason, &median, &q1, &q3, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = summary.Status(status)
		r.FinalMedian = floatPtr(median)
		r.FinalQ1 = floatPtr(q1)
		r.FinalQ3 = floatPtr(q3)
		out = append(out, r)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ResolveResultID accepts a result ID or a trial ID and returns the
// matching result ID; a trial ID resolves to its newest result.
func (db *DB) ResolveResultID(id string) (string, error) {
	var resultID string
	err := db.QueryRow(`
		SELECT result_id FROM trial_results
		WHERE result_id = ? OR trial_id = ?
		ORDER BY (result_id = ?) DESC, created_at DESC
		LIMIT 1`, id, id, id).Scan(&resultID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("trial %s: %w", id, ErrNotFound)
	}
	return resultID, err
}

// LoadResult rebuilds the full scoring result of a stored trial.
func (db *DB) LoadResult(resultID string) (*rula.TrialResult, error) {
	var (
		res                     rula.TrialResult
		runID, paramsJSON       string
		times, durations, final []byte
	)
	err := db.QueryRow(`
		SELECT r.run_id, r.trial_id, COALESCE(r.subject_id, ''), COALESCE(r.condition, ''),
			r.frames, r.nan_frames, r.times, r.durations, r.final, s.params_json
		FROM trial_results r JOIN scoring_runs s ON s.run_id = r.run_id
		WHERE r.result_id = ?`, resultID).Scan(
		&runID, &res.TrialID, &res.SubjectID, &res.Condition,
		&res.Frames, &res.NaNFrames, &times, &durations, &final, &paramsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &res.Params); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode params: %w", runID, err)
	}
	if res.Times, err = decodeSeries(times); err != nil {
		return nil, err
	}
	if res.Durations, err = decodeSeries(durations); err != nil {
		return nil, err
	}
	if res.Final, err = decodeSeries(final); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT name, step, COALESCE(side, ''), scores, angle, lateral_offset, band_json, capped
		FROM step_series WHERE result_id = ? ORDER BY position`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s                     rula.StepSeries
			scores, angle, offset []byte
			band                  sql.NullString
		)
		if err := rows.Scan(&s.Name, &s.Step, &s.Side, &scores, &angle, &offset, &band, &s.Capped); err != nil {
			return nil, err
		}
		if s.Scores, err = decodeSeries(scores); err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		if s.Angle, err = decodeSeries(angle); err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		if s.Offset, err = decodeSeries(offset); err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		if band.Valid {
			s.Band = &rula.Band{}
			if err := json.Unmarshal([]byte(band.String), s.Band); err != nil {
				return nil, fmt.Errorf("step %s: failed to decode band: %w", s.Name, err)
			}
		}
		res.Steps = append(res.Steps, s)
	}
	return &res, rows.Err()
}

// LoadSummary returns the stored summary of one result.
func (db *DB) LoadSummary(resultID string) (*summary.TrialSummary, error) {
	var raw string
	err := db.QueryRow(`SELECT summary_json FROM trial_results WHERE result_id = ?`, resultID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var s summary.TrialSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("result %s: failed to decode summary: %w", resultID, err)
	}
	return &s, nil
}

// RunSummaries returns every trial summary of a run ordered by trial ID.
func (db *DB) RunSummaries(runID string) ([]*summary.TrialSummary, error) {
	rows, err := db.Query(`SELECT summary_json FROM trial_results WHERE run_id = ? ORDER BY trial_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*summary.TrialSummary
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s summary.TrialSummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
