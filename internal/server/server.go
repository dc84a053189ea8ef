// Package server exposes the transform pipeline over HTTP: one shared
// pipeline, request-scoped modes, JSON errors, prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plainview/internal/audit"
	"plainview/internal/logging"
	"plainview/internal/model"
	"plainview/internal/pipeline"
)

// Server serves transform requests over one shared pipeline. The
// ledger is optional; when nil, runs are not recorded and the runs
// endpoints report audit as disabled.
type Server struct {
	cfg     *model.Config
	pipe    *pipeline.Pipeline
	ledger  *audit.Ledger
	metrics *metrics
	log     *slog.Logger
}

// New creates a server around a built pipeline.
func New(cfg *model.Config, pipe *pipeline.Pipeline, ledger *audit.Ledger) *Server {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Server{
		cfg:     cfg,
		pipe:    pipe,
		ledger:  ledger,
		metrics: newMetrics(),
		log:     logging.New("server"),
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/transform", s.handleTransform)
		r.Get("/modes", s.handleModes)
		r.Get("/ruleset", s.handleRuleset)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})
	return r
}

// Run serves until the context is canceled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

type transformRequest struct {
	// Exactly one of Narrative or URL supplies the input.
	Narrative string `json:"narrative,omitempty"`
	URL       string `json:"url,omitempty"`

	Source string `json:"source,omitempty"` // label for inline narratives
	Mode   string `json:"mode,omitempty"`   // defaults to the configured mode
	Format string `json:"format,omitempty"` // json (default) or text
}

type transformResponse struct {
	RunID          string             `json:"run_id"`
	Source         string             `json:"source"`
	Mode           model.Mode         `json:"mode"`
	RulesetVersion string             `json:"ruleset_version"`
	OracleProvider string             `json:"oracle_provider"`
	Counts         model.Counts       `json:"counts"`
	Diagnostics    []model.Diagnostic `json:"diagnostics,omitempty"`
	Document       json.RawMessage    `json:"document"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	var req transformRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if (req.Narrative == "") == (req.URL == "") {
		s.writeError(w, http.StatusBadRequest,
			fmt.Errorf("exactly one of narrative or url is required"))
		return
	}

	modeStr := req.Mode
	if modeStr == "" {
		modeStr = s.cfg.Mode
	}
	mode, err := model.ParseMode(modeStr)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var report *model.Report
	if req.URL != "" {
		report, err = s.pipe.TransformURL(r.Context(), req.URL, mode)
	} else {
		source := req.Source
		if source == "" {
			source = "inline"
		}
		report, err = s.pipe.Transform(r.Context(), source, req.Narrative, mode)
	}
	included, excluded := countsOf(report)
	s.metrics.observe(string(mode), err, time.Since(started).Seconds(), included, excluded)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	if s.ledger != nil {
		if err := s.ledger.Record(report); err != nil {
			s.log.Warn("ledger record failed", "run_id", report.RunID, "error", err)
		}
	}

	if req.Format == "text" {
		text, err := s.pipe.RenderText(report)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Run-Id", report.RunID)
		_, _ = w.Write([]byte(text))
		return
	}

	doc, err := s.pipe.RenderJSON(report)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transformResponse{
		RunID:          report.RunID,
		Source:         report.Source,
		Mode:           report.Mode,
		RulesetVersion: report.RulesetVersion,
		OracleProvider: report.OracleProvider,
		Counts:         report.Counts,
		Diagnostics:    report.Diagnostics,
		Document:       doc,
	})
}

func countsOf(report *model.Report) (included, excluded int) {
	if report == nil {
		return 0, 0
	}
	return report.Counts.Included, report.Counts.Excluded
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"ruleset": s.pipe.RulesetVersion(),
	})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"modes": []model.Mode{
			model.ModeStrict, model.ModeFull, model.ModeTimeline,
			model.ModeEventsOnly, model.ModeRecomposition,
		},
		"default": s.cfg.Mode,
	})
}

func (s *Server) handleRuleset(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": s.pipe.RulesetVersion(),
		"path":    s.cfg.Rules.Path,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("audit ledger disabled"))
		return
	}
	runs, err := s.ledger.List(50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("audit ledger disabled"))
		return
	}
	report, err := s.ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Warn("request failed", "status", status, "error", err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
