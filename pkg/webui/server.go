// Package webui serves benchmark run results over HTTP. It exposes a
// small JSON API backed by the sqlite results store plus a minimal HTML
// index for browsing runs from a workstation.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/adebench/adebench/pkg/logger"
	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/results/sqlite"
)

// ResultsStore is the read surface the server needs from the results
// database. *sqlite.Store satisfies it.
type ResultsStore interface {
	ListRuns(ctx context.Context, limit int) ([]sqlite.RunInfo, error)
	RunSummary(ctx context.Context, runID string) ([]sqlite.SkillSetSummary, error)
	RunResults(ctx context.Context, runID string) ([]results.TrialResult, error)
}

// Server hosts the results API.
type Server struct {
	store  ResultsStore
	router *mux.Router
	server *http.Server
}

// NewServer creates a server over the given store.
func NewServer(store ResultsStore) *Server {
	s := &Server{
		store:  store,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/api/runs", s.handleListRuns).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}", s.handleRunSummary).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}/results", s.handleRunResults).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.G(ctx).WithField("addr", addr).Info("results server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down results server")
		}
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "results server failed")
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		logger.G(r.Context()).WithError(err).Error("list runs failed")
		return
	}
	if runs == nil {
		runs = []sqlite.RunInfo{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	summary, err := s.store.RunSummary(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to summarize run")
		logger.G(r.Context()).WithError(err).WithField("run_id", runID).Error("run summary failed")
		return
	}
	if len(summary) == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     runID,
		"skill_sets": summary,
	})
}

func (s *Server) handleRunResults(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	trials, err := s.store.RunResults(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load run results")
		logger.G(r.Context()).WithError(err).WithField("run_id", runID).Error("run results failed")
		return
	}
	if trials == nil {
		trials = []results.TrialResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"results": trials,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>adebench results</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 10px; text-align: left; }
</style>
</head>
<body>
<h1>adebench runs</h1>
<table>
<tr><th>Run</th><th>Trials</th><th>First started</th></tr>
{{range .Runs}}
<tr>
<td><a href="/api/runs/{{.RunID}}">{{.RunID}}</a></td>
<td>{{.Trials}}</td>
<td>{{.StartedAt.Format "2006-01-02 15:04:05"}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		logger.G(r.Context()).WithError(err).Error("index failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]any{"Runs": runs}); err != nil {
		logger.G(r.Context()).WithError(err).Error("rendering index failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.WithError(err).Error("encoding response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}
