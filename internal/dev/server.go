package dev

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scenes-dev/scenes/internal/check"
	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/pipeline"
	"github.com/scenes-dev/scenes/internal/telemetry"
)

// ReloadPath is the WebSocket endpoint for rebuild notifications.
const ReloadPath = "/_scenes/reload"

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Pipeline runs rebuilds. Defaults to a pipeline over Config.
	Pipeline *pipeline.Pipeline

	// Metrics records pipeline and reload metrics.
	Metrics *telemetry.Metrics

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnBuildStart is called when a rebuild starts.
	OnBuildStart func(changes []Change)

	// OnBuildComplete is called when a rebuild completes.
	OnBuildComplete func(result BuildResult)

	// OnReload is called when clients are notified.
	OnReload func(clients int)
}

// BuildResult is the outcome of one rebuild.
type BuildResult struct {
	// Changes that triggered the rebuild; nil for the initial build.
	Changes []Change

	// Outcome is nil when the manifest could not be loaded.
	Outcome *pipeline.Outcome

	Err      error
	Duration time.Duration
}

// Success reports whether artifacts were regenerated.
func (r BuildResult) Success() bool {
	return r.Err == nil && r.Outcome != nil && !r.Outcome.Skipped
}

// Report returns the validation report, or nil.
func (r BuildResult) Report() *check.Report {
	if r.Outcome == nil {
		return nil
	}
	return r.Outcome.Report
}

// Server is the development registry server.
type Server struct {
	config   *config.Config
	options  ServerOptions
	pipeline *pipeline.Pipeline
	watcher  *Watcher
	reload   *ReloadServer
	log      *slog.Logger
	changeCh chan []Change

	buildMu sync.Mutex
	last    BuildResult

	mu         sync.Mutex
	running    bool
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "dev")

	p := options.Pipeline
	if p == nil {
		var err error
		p, err = pipeline.New(cfg, pipeline.Options{Metrics: options.Metrics, Logger: log})
		if err != nil {
			return nil, err
		}
	}

	root, err := filepath.Abs(cfg.Dir())
	if err != nil {
		return nil, errors.New("S041").Wrap(err)
	}

	watcher := NewWatcher(WatcherConfig{
		Root:     root,
		Paths:    CollectWatchPaths(cfg),
		Ignore:   cfg.Dev.Ignore,
		Debounce: cfg.Dev.Debounce,
		Classify: Classifier(cfg),
		Logger:   log,
	})

	metrics := options.Metrics
	reload := NewReloadServer(func(n int) {
		metrics.SetReloadClients(n)
	})

	return &Server{
		config:   cfg,
		options:  options,
		pipeline: p,
		watcher:  watcher,
		reload:   reload,
		log:      log,
	}, nil
}

// Handler returns the HTTP routes:
//
//	GET /r/{name}.json      generated artifacts
//	GET /_scenes/status     last rebuild summary
//	GET /_scenes/reload     WebSocket rebuild notifications
//	GET /healthz            liveness
//	GET /metrics            Prometheus metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	gatherer := s.options.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get(ReloadPath, s.reload.HandleWebSocket)
	r.Get("/_scenes/status", s.handleStatus)
	r.Get("/r/{file}", s.handleArtifact)

	return r
}

var artifactFile = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\.json$`)

// handleArtifact serves one file from the output directory.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if !artifactFile.MatchString(name) {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.config.AbsOutputPath(), name))
	if os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error("reading artifact failed", "file", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

type status struct {
	OK         bool            `json:"ok"`
	Skipped    bool            `json:"skipped"`
	Error      string          `json:"error,omitempty"`
	Errors     int             `json:"errors"`
	Warnings   int             `json:"warnings"`
	Items      []string        `json:"items"`
	Findings   []check.Finding `json:"findings"`
	DurationMS int64           `json:"durationMs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	res := s.LastBuild()
	st := status{
		OK:         res.Success(),
		Items:      builtItems(res),
		Findings:   []check.Finding{},
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		st.Error = res.Err.Error()
	}
	if res.Outcome != nil {
		st.Skipped = res.Outcome.Skipped
	}
	if report := res.Report(); report != nil {
		st.Errors = report.Errors()
		st.Warnings = report.Warnings()
		if report.Findings != nil {
			st.Findings = report.Findings
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Start runs the initial build, then watches and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.config.DevAddress())
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return errors.New("S041").
			WithDetailf("listening on %s: %v", s.config.DevAddress(), err).
			WithSuggestion("Pick another port with dev.port in scenes.json or SCENES_DEV_PORT").
			Wrap(err)
	}

	s.Rebuild(ctx, nil)

	s.changeCh = make(chan []Change, 1)
	s.watcher.OnChange(func(changes []Change) {
		select {
		case s.changeCh <- changes:
		case <-ctx.Done():
		}
	})
	go func() {
		if err := s.watcher.Start(ctx); err != nil {
			s.log.Error("watcher stopped", "error", err)
		}
	}()
	go s.processChanges(ctx)

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("serving registry", "url", s.URL(), "output", s.config.OutputPath())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return errors.New("S041").Wrap(err)
		}
		return nil
	}
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	if addr := s.Addr(); addr != "" {
		return "http://" + addr
	}
	return s.config.DevURL()
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.watcher.Stop()
	s.reload.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// processChanges serializes rebuilds and coalesces bursts.
func (s *Server) processChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case changes := <-s.changeCh:
			draining := true
			for draining {
				select {
				case next := <-s.changeCh:
					changes = append(changes, next...)
				default:
					draining = false
				}
			}
			s.Rebuild(ctx, changes)
		}
	}
}

// Rebuild reruns the pipeline and notifies reload clients. Scene sources
// named in changes are reread; with nil changes every cached source is
// dropped.
func (s *Server) Rebuild(ctx context.Context, changes []Change) BuildResult {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if s.options.OnBuildStart != nil {
		s.options.OnBuildStart(changes)
	}

	if changes == nil {
		s.pipeline.Invalidate()
	} else {
		var paths []string
		for _, c := range changes {
			s.log.Info("changed", "path", c.Path, "type", c.Type.String())
			if c.Type == ChangeScene {
				paths = append(paths, c.Path)
			}
		}
		if len(paths) > 0 {
			s.pipeline.Invalidate(paths...)
		}
	}

	start := time.Now()
	out, err := s.pipeline.Run(ctx, false)
	res := BuildResult{
		Changes:  changes,
		Outcome:  out,
		Err:      err,
		Duration: time.Since(start),
	}
	s.last = res

	s.notify(res)

	if s.options.OnBuildComplete != nil {
		s.options.OnBuildComplete(res)
	}
	return res
}

// LastBuild returns the most recent rebuild result.
func (s *Server) LastBuild() BuildResult {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.last
}

// ReloadServer returns the WebSocket hub.
func (s *Server) ReloadServer() *ReloadServer {
	return s.reload
}

func (s *Server) notify(res BuildResult) {
	report := res.Report()
	var errs, warns int
	if report != nil {
		errs, warns = report.Errors(), report.Warnings()
	}

	switch {
	case res.Err != nil:
		s.log.Error("rebuild failed", "error", res.Err)
		s.reload.NotifyError(res.Err.Error(), errs, warns)
	case res.Outcome.Skipped:
		s.log.Warn("rebuild skipped", "summary", report.Summary())
		s.reload.NotifyError(report.Summary(), errs, warns)
	default:
		items := builtItems(res)
		s.log.Info("rebuilt", "items", len(items), "warnings", warns, "duration", res.Duration.Round(time.Millisecond))
		s.reload.NotifyRebuild(items, warns)
	}

	if s.options.OnReload != nil {
		s.options.OnReload(s.reload.ClientCount())
	}
}

func builtItems(res BuildResult) []string {
	items := []string{}
	if res.Outcome == nil || res.Outcome.Result == nil {
		return items
	}
	for _, a := range res.Outcome.Result.Written {
		items = append(items, a.Name)
	}
	return items
}
