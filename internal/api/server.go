// Package api serves stored scoring results over HTTP for visualisers.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/rula.report/internal/db"
	"github.com/banshee-data/rula.report/internal/monitoring"
	"github.com/banshee-data/rula.report/internal/report"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/go-echarts/go-echarts/v2/components"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db         *db.DB
	assetsHost string
}

func NewServer(db *db.DB) *Server {
	return &Server{db: db, assetsHost: report.DefaultAssetsHost}
}

// SetAssetsHost changes where rendered chart pages load echarts from.
func (s *Server) SetAssetsHost(host string) { s.assetsHost = host }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs/latest", s.showLatestRun)
	mux.HandleFunc("GET /api/trials", s.listTrials)
	mux.HandleFunc("GET /api/trials/{id}", s.showTrial)
	mux.HandleFunc("GET /api/trials/{id}/summary", s.showTrialSummary)
	mux.HandleFunc("GET /api/trials/{id}/chart", s.showTrialChart)
	mux.HandleFunc("GET /api/groups", s.showGroups)
	mux.HandleFunc("GET /api/summary.csv", s.downloadCSV)
	mux.HandleFunc("GET /api/summary/chart", s.showSummaryChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeJSON encodes v before writing anything, so an encoding failure can
// still be reported as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to encode response: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (s *Server) writePage(w http.ResponseWriter, page *components.Page) {
	var buf bytes.Buffer
	if err := report.Render(&buf, page); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// storeError maps a store error onto a response.
func (s *Server) storeError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve %s: %v", what, err))
}

// runID returns the ?run= parameter, defaulting to the latest run.
func (s *Server) runID(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("run"); id != "" {
		return id, nil
	}
	run, err := s.db.LatestRun()
	if err != nil {
		return "", err
	}
	return run.RunID, nil
}

func (s *Server) showLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.LatestRun()
	if err != nil {
		s.storeError(w, "run", err)
		return
	}
	s.writeJSON(w, run)
}

func (s *Server) listTrials(w http.ResponseWriter, r *http.Request) {
	trials, err := s.db.ListTrials(r.URL.Query().Get("run"))
	if err != nil {
		s.storeError(w, "trials", err)
		return
	}
	if trials == nil {
		trials = []db.TrialRecord{}
	}
	s.writeJSON(w, trials)
}

func (s *Server) showTrial(w http.ResponseWriter, r *http.Request) {
	resultID, err := s.db.ResolveResultID(r.PathValue("id"))
	if err != nil {
		s.storeError(w, "trial", err)
		return
	}
	res, err := s.db.LoadResult(resultID)
	if err != nil {
		s.storeError(w, "trial", err)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) showTrialSummary(w http.ResponseWriter, r *http.Request) {
	resultID, err := s.db.ResolveResultID(r.PathValue("id"))
	if err != nil {
		s.storeError(w, "summary", err)
		return
	}
	sum, err := s.db.LoadSummary(resultID)
	if err != nil {
		s.storeError(w, "summary", err)
		return
	}
	s.writeJSON(w, sum)
}

func (s *Server) showTrialChart(w http.ResponseWriter, r *http.Request) {
	resultID, err := s.db.ResolveResultID(r.PathValue("id"))
	if err != nil {
		s.storeError(w, "trial", err)
		return
	}
	res, err := s.db.LoadResult(resultID)
	if err != nil {
		s.storeError(w, "trial", err)
		return
	}
	sum, err := s.db.LoadSummary(resultID)
	if err != nil {
		s.storeError(w, "summary", err)
		return
	}
	if sum.Status == summary.StatusFailed {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("trial %s was not scored: %s", sum.TrialID, sum.Reason))
		return
	}
	s.writePage(w, report.TrialPage(res, sum, s.assetsHost))
}

func (s *Server) runSummaries(w http.ResponseWriter, r *http.Request) ([]*summary.TrialSummary, bool) {
	runID, err := s.runID(r)
	if err != nil {
		s.storeError(w, "run", err)
		return nil, false
	}
	sums, err := s.db.RunSummaries(runID)
	if err != nil {
		s.storeError(w, "summaries", err)
		return nil, false
	}
	return sums, true
}

func (s *Server) showGroups(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = string(summary.BySubject)
	}
	key, err := summary.ParseGroupKey(by)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sums, ok := s.runSummaries(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, summary.GroupBy(sums, key))
}

func (s *Server) downloadCSV(w http.ResponseWriter, r *http.Request) {
	sums, ok := s.runSummaries(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := summary.WriteCSV(&buf, sums); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write CSV: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=rula-summary.csv")
	w.Write(buf.Bytes())
}

func (s *Server) showSummaryChart(w http.ResponseWriter, r *http.Request) {
	sums, ok := s.runSummaries(w, r)
	if !ok {
		return
	}
	s.writePage(w, report.SummaryPage(sums, s.assetsHost))
}
