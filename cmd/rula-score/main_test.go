package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rula.report/internal/batch"
	"github.com/banshee-data/rula.report/internal/config"
	"github.com/banshee-data/rula.report/internal/monitoring"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrialFile(t *testing.T, dir, id string) string {
	t.Helper()
	trial := testutil.WorkedExampleTrial(id, 20, 10)
	doc := map[string]interface{}{
		"trial_id":     trial.TrialID,
		"subject_id":   "S1",
		"condition":    "seated",
		"frame_rate":   trial.FrameRate,
		"joint_angles": trial.JointAngles,
		"positions":    trial.Positions,
		"orientations": trial.Orientations,
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func resetLogs(t *testing.T) {
	t.Cleanup(func() {
		rula.SetLogWriters(nil, nil, nil)
		batch.SetLogWriters(nil, nil, nil)
		monitoring.SetLogger(nil)
	})
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*testing.T, *options)
	}{
		{
			name: "trial files",
			args: []string{"-workers", "3", "-timeout", "30s", "a.json", "b.json"},
			check: func(t *testing.T, o *options) {
				assert.Equal(t, 3, o.workers)
				assert.Equal(t, 30*time.Second, o.timeout)
				assert.Equal(t, []string{"a.json", "b.json"}, o.trials)
			},
		},
		{
			name: "version needs nothing else",
			args: []string{"-version"},
			check: func(t *testing.T, o *options) {
				assert.True(t, o.showVersion)
			},
		},
		{
			name: "serve only",
			args: []string{"-db", "r.db", "-listen", ":8080"},
			check: func(t *testing.T, o *options) {
				assert.Empty(t, o.trials)
				assert.Equal(t, ":8080", o.listen)
			},
		},
		{name: "no trials", args: nil, wantErr: true},
		{name: "listen without db", args: []string{"-listen", ":8080", "a.json"}, wantErr: true},
		{name: "negative workers", args: []string{"-workers", "-1", "a.json"}, wantErr: true},
		{name: "unknown flag", args: []string{"-bogus", "a.json"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"arm_load": 2, "workers": 2}`), 0644))

	cfg, err := loadConfig(&options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.GetArmLoad())
	assert.Equal(t, 2, cfg.GetWorkers())

	_, err = loadConfig(&options{configPath: filepath.Join(dir, "missing.json")})
	assert.Error(t, err)

	// Without -config the repository defaults are only used when present
	// in the working directory; the package directory has none.
	cfg, err = loadConfig(&options{})
	require.NoError(t, err)
	assert.Equal(t, config.EmptyScoringConfig(), cfg)
}

func TestRun_CSVToStdout(t *testing.T) {
	resetLogs(t)
	dir := t.TempDir()
	o := &options{trials: []string{writeTrialFile(t, dir, "T01"), writeTrialFile(t, dir, "T02")}}

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), o, &stdout, &stderr))

	rows, err := csv.NewReader(&stdout).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"T01", "S1", "seated", "scored"}, rows[1][:4])
	assert.Contains(t, stderr.String(), "scored 2 trials (0 failed)")
}

func TestRun_OutputDirAndDB(t *testing.T) {
	resetLogs(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	o := &options{
		dbPath:  filepath.Join(dir, "rula.db"),
		outDir:  out,
		workers: 2,
		trials:  []string{writeTrialFile(t, dir, "T01")},
	}

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), o, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	for _, name := range []string{"summary.csv", "index.html", filepath.Join("T01", "final.png")} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_ConfigurationError(t *testing.T) {
	resetLogs(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scoring.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"trunk_landmark": "Tail"}`), 0644))

	o := &options{configPath: cfgPath, trials: []string{writeTrialFile(t, dir, "T01")}}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), o, &stdout, &stderr)
	assert.ErrorIs(t, err, rula.ErrConfiguration)
	assert.Empty(t, stdout.String())
}
