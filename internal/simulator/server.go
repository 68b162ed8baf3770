// Package simulator is an in-process stand-in for the remote translation job
// service. Jobs complete after a random fraction of their video length and
// a configurable share of them end in the error status.
package simulator

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-translator/pkg/schema"
)

// DefaultErrorRate is the share of jobs that finish with the error status.
const DefaultErrorRate = 0.1

type job struct {
	completesAt time.Time
	failed      bool
}

type Server struct {
	mu        sync.Mutex
	jobs      map[schema.JobID]job
	rnd       *rand.Rand
	errorRate float64
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Server)

func WithErrorRate(rate float64) Option {
	return func(s *Server) { s.errorRate = rate }
}

// WithRand fixes the random source, for reproducible runs.
func WithRand(r *rand.Rand) Option {
	return func(s *Server) { s.rnd = r }
}

func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(opts ...Option) *Server {
	s := &Server{
		jobs:      make(map[schema.JobID]job),
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		errorRate: DefaultErrorRate,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router exposes POST /jobs and GET /status/{jobID}.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/jobs", s.createJob)
	r.Get("/status/{jobID}", s.getStatus)
	return r
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	length, err := strconv.Atoi(r.URL.Query().Get("video_length"))
	if err != nil || length < 0 {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, errorResponse{Detail: "video_length must be a non-negative integer"})
		return
	}

	id := schema.JobID(uuid.NewString())

	s.mu.Lock()
	// Completion lands uniformly in [0.5, 1.5) x video_length seconds.
	seconds := float64(length) * (0.5 + s.rnd.Float64())
	j := job{
		completesAt: s.now().Add(time.Duration(seconds * float64(time.Second))),
		failed:      s.rnd.Float64() < s.errorRate,
	}
	s.jobs[id] = j
	s.mu.Unlock()

	s.logger.Info("created job", "job_id", id, "video_length", length, "completes_at", j.completesAt, "will_fail", j.failed)
	render.JSON(w, r, schema.CreateJobResponse{JobID: id})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	id := schema.JobID(chi.URLParam(r, "jobID"))

	s.mu.Lock()
	j, ok := s.jobs[id]
	now := s.now()
	s.mu.Unlock()

	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Detail: "Job not found"})
		return
	}

	status := schema.JobStatusPending
	switch {
	case j.failed:
		status = schema.JobStatusError
	case !now.Before(j.completesAt):
		status = schema.JobStatusCompleted
	}
	render.JSON(w, r, map[string]any{"result": status})
}
