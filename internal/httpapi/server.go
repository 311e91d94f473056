// Package httpapi exposes the planner over HTTP. Request and response
// bodies use snake_case JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mnemos/internal/logging"
	"mnemos/internal/model"
	"mnemos/internal/stats"
)

const maxBodyBytes = 1 << 20

// Planner is the subset of platform.Planner the handlers need.
type Planner interface {
	Plan(ctx context.Context, state model.State) (model.Plan, error)
	History(ctx context.Context, limit int) ([]model.PlanRecord, error)
}

type Server struct {
	planner      Planner
	log          *logging.Logger
	historyLimit int
	mux          *http.ServeMux
}

func NewServer(planner Planner, log *logging.Logger, historyLimit int) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		planner:      planner,
		log:          log,
		historyLimit: historyLimit,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /study-plan", s.handleStudyPlan)
	s.mux.HandleFunc("POST /study-plan/session", s.handleSession)
	s.mux.HandleFunc("GET /plans", s.handlePlans)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
}

type studyPlanRequest struct {
	AvgTime      *float64 `json:"avg_time"`
	CorrectRatio *float64 `json:"correct_ratio"`
}

func (s *Server) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	var req studyPlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch {
	case req.AvgTime == nil:
		writeDetail(w, http.StatusUnprocessableEntity, "avg_time: field required")
		return
	case req.CorrectRatio == nil:
		writeDetail(w, http.StatusUnprocessableEntity, "correct_ratio: field required")
		return
	}

	plan, err := s.planner.Plan(r.Context(), model.State{AvgTime: *req.AvgTime, CorrectRatio: *req.CorrectRatio})
	if err != nil {
		s.planFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan.Forecast)
}

type sessionRequest struct {
	Answers []stats.Answer `json:"answers"`
}

type sessionResponse struct {
	Summary stats.Summary  `json:"summary"`
	Plan    model.Forecast `json:"plan"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	summary, err := stats.Summarize(req.Answers)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan, err := s.planner.Plan(r.Context(), summary.State())
	if err != nil {
		s.planFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Summary: summary, Plan: plan.Forecast})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("limit: invalid value %q", raw))
			return
		}
		limit = n
	}

	records, err := s.planner.History(r.Context(), limit)
	if err != nil {
		s.log.Errorf("list plans: %v", err)
		writeDetail(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if records == nil {
		records = []model.PlanRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode writes the error response itself and reports whether the handler
// should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		if dec.Decode(&struct{}{}) != io.EOF {
			writeDetail(w, http.StatusBadRequest, "malformed JSON body: unexpected data after object")
			return false
		}
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value))
		return false
	}
	writeDetail(w, http.StatusBadRequest, "malformed JSON body")
	return false
}

func (s *Server) planFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeDetail(w, http.StatusServiceUnavailable, "request canceled")
		return
	}
	writeDetail(w, http.StatusInternalServerError, "study plan failed")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
