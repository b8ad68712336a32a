package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
)

// StepNames lists every step series name across summaries in first-seen
// order. It fixes the CSV column layout.
func StepNames(summaries []*TrialSummary) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range summaries {
		for _, st := range s.Steps {
			if !seen[st.Name] {
				seen[st.Name] = true
				names = append(names, st.Name)
			}
		}
	}
	return names
}

// CSVWriter wraps csv.Writer with one row per trial.
type CSVWriter struct {
	w     *csv.Writer
	steps []string
}

// NewCSVWriter creates a writer whose step columns follow steps.
func NewCSVWriter(w io.Writer, steps []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), steps: steps}
}

// WriteHeader writes the column names.
func (c *CSVWriter) WriteHeader() error {
	header := []string{"trial_id", "subject_id", "condition", "status", "valid_percent", "reason"}
	for _, name := range c.steps {
		header = append(header, name+"_median", name+"_q1", name+"_q3")
	}
	header = append(header, "final_median", "final_q1", "final_q3")
	for b := 1; b <= HistogramBins; b++ {
		header = append(header, fmt.Sprintf("final_pct_%d", b))
	}
	return c.w.Write(header)
}

// WriteTrial writes one trial row. Steps the trial lacks are left empty.
func (c *CSVWriter) WriteTrial(s *TrialSummary) error {
	row := []string{
		s.TrialID,
		s.SubjectID,
		s.Condition,
		string(s.Status),
		fmt.Sprintf("%.2f", s.ValidPercent),
		s.Reason,
	}
	for _, name := range c.steps {
		st, ok := s.Step(name)
		if !ok {
			row = append(row, "", "", "")
			continue
		}
		row = append(row, formatValue(st.Stat.Median), formatValue(st.Stat.Q1), formatValue(st.Stat.Q3))
	}
	row = append(row, formatValue(s.Final.Median), formatValue(s.Final.Q1), formatValue(s.Final.Q3))
	for _, pct := range s.Final.Histogram {
		row = append(row, fmt.Sprintf("%.2f", pct))
	}
	return c.w.Write(row)
}

// Flush writes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteCSV writes a header and one row per summary.
func WriteCSV(w io.Writer, summaries []*TrialSummary) error {
	c := NewCSVWriter(w, StepNames(summaries))
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := c.WriteTrial(s); err != nil {
			return fmt.Errorf("trial %s: %w", s.TrialID, err)
		}
	}
	return c.Flush()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
