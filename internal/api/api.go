// Package api exposes the REST surface: submission intake, review
// retrieval, validation ingestion, accuracy metrics, and queue health.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bountylab/reviewd/internal/accuracy"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/queue"
	"github.com/bountylab/reviewd/internal/store"
	"github.com/bountylab/reviewd/internal/worker"
)

// Server provides the REST API handlers.
type Server struct {
	store      store.Store
	dispatcher queue.Dispatcher
	validator  *accuracy.Validator
	log        *slog.Logger
}

// NewServer creates a new API server.
func NewServer(s store.Store, d queue.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      s,
		dispatcher: d,
		validator:  accuracy.NewValidator(s, logger),
		log:        logger,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/submissions", s.createSubmission)
	mux.HandleFunc("POST /api/v1/submissions/batch", s.createSubmissionBatch)
	mux.HandleFunc("GET /api/v1/submissions/{id}/review", s.getReviewBySubmission)

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)

	mux.HandleFunc("POST /api/v1/validations", s.createValidation)
	mux.HandleFunc("GET /api/v1/accuracy", s.accuracyMetrics)

	mux.HandleFunc("GET /api/v1/queue/stats", s.queueStats)
	mux.HandleFunc("GET /api/v1/queue/health", s.queueHealth)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Submissions ---

func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) {
	var job worker.ReviewJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if job.SubmissionID == "" || job.URL == "" {
		writeError(w, http.StatusBadRequest, "submissionId and url are required")
		return
	}
	if job.Kind == "" {
		job.Kind = models.CodeKindRepository
	}

	event, err := queue.NewEvent(queue.EventReviewSingle, job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jobID, err := s.dispatcher.Send(r.Context(), event, queue.DefaultJobOptions())
	if err != nil {
		s.log.Error("failed to enqueue submission", "submission_id", job.SubmissionID, "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":        jobID,
		"submissionId": job.SubmissionID,
	})
}

func (s *Server) createSubmissionBatch(w http.ResponseWriter, r *http.Request) {
	var batch worker.BatchJob
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(batch.Jobs) == 0 {
		writeError(w, http.StatusBadRequest, "jobs is required")
		return
	}

	event, err := queue.NewEvent(queue.EventReviewBatch, batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jobID, err := s.dispatcher.Send(r.Context(), event, queue.DefaultJobOptions())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId": jobID,
		"count": len(batch.Jobs),
	})
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	reviews, err := s.store.ListReviews(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	review, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) getReviewBySubmission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	review, err := s.store.GetReviewBySubmission(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// --- Validations & accuracy ---

type validationRequest struct {
	SubmissionID string           `json:"submissionId"`
	HumanScore   float64          `json:"humanScore"`
	HumanLabel   models.EarnLabel `json:"humanLabel"`
}

func (s *Server) createValidation(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SubmissionID == "" || req.HumanLabel == "" {
		writeError(w, http.StatusBadRequest, "submissionId and humanLabel are required")
		return
	}

	review, err := s.store.GetReviewBySubmission(r.Context(), req.SubmissionID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record := s.validator.Record(r.Context(), req.SubmissionID,
		review.Score, review.Label, req.HumanScore, req.HumanLabel)
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) accuracyMetrics(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		since = time.Now().AddDate(0, 0, -days)
	}

	metrics, err := s.validator.Metrics(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// --- Queue ---

func (s *Server) queueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dispatcher.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) queueHealth(w http.ResponseWriter, r *http.Request) {
	health := s.dispatcher.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
