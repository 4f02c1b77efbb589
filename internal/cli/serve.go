package cli

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drawsync/pkg/buildinfo"
	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/pipeline"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
	maxRequestBody  = 1 << 20
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	root      string
	drawioBin string
	store     storeOpts
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept sync requests over HTTP",
		Long: `Start an HTTP server that runs syncs on request.

  POST /sync              run a sync; the body holds the sync options as JSON
  GET  /manifest?document=  show the recorded pages of a document
  GET  /healthz           liveness and build information

Document paths are resolved against --root and must stay inside it. Runs
for the same document are serialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&opts.root, "root", ".", "directory that holds the documents")
	cmd.Flags().StringVar(&opts.drawioBin, "drawio-bin", "", "drawio executable (default $DRAWIO_BIN or drawio)")
	cmd.Flags().StringVar(&opts.store.target, "store", "", "manifest store: file (default), redis://..., mongodb://...")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	addr := opts.addr
	if addr == "" {
		addr = cfg.Serve.Addr
	}
	if addr == "" {
		addr = defaultAddr
	}

	runner, err := c.newRunner(ctx, opts.store, c.drawioBinary(opts.drawioBin))
	if err != nil {
		return err
	}
	defer runner.Close()

	if chk, ok := runner.Renderer.(interface{ Check() error }); ok {
		if err := chk.Check(); err != nil {
			c.Logger.Warn("exporter not available; syncs will fail", "err", err)
		}
	}

	srv, err := newServer(runner, opts.root, c.Logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr, "root", srv.root)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// =============================================================================
// Server
// =============================================================================

// server routes HTTP sync requests to a pipeline runner.
type server struct {
	router   *chi.Mux
	runner   *pipeline.Runner
	root     string
	realRoot string // root with symlinks resolved
	locks    *keyedMutex
	logger   *log.Logger
}

func newServer(runner *pipeline.Runner, root string, logger *log.Logger) (*server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve root %s", root)
	}
	resolved, err := evalExisting(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve root %s", root)
	}
	s := &server{
		router:   chi.NewRouter(),
		runner:   runner,
		root:     abs,
		realRoot: resolved,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/sync", s.handleSync)
	s.router.Get("/manifest", s.handleManifest)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger attaches a request-scoped logger to the context and logs
// each request when it completes.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With("req", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), l)))

		l.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start).Round(time.Millisecond))
	})
}

// response is the envelope of every JSON reply.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), response{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	if errors.IsConfiguration(err) {
		return http.StatusBadRequest
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownPage, errors.ErrCodeDocumentParse:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeManifestCorrupt:
		return http.StatusConflict
	}
	if goerrors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"status": "healthy",
		"build":  buildinfo.Get(),
	}})
}

// syncRequest is the body of POST /sync.
type syncRequest struct {
	pipeline.Options
	Timeout string `json:"timeout,omitempty"`
}

// syncResponse summarizes a run.
type syncResponse struct {
	RunID      string        `json:"run_id"`
	Document   string        `json:"document"`
	Manifest   string        `json:"manifest"`
	Pages      int           `json:"pages"`
	Planned    int           `json:"planned"`
	Skipped    int           `json:"skipped"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []pageFailure `json:"failures,omitempty"`
	DryRun     bool          `json:"dry_run,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

type pageFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	opts := req.Options
	if len(opts.Extra) > 0 {
		// Exporter arguments could redirect output outside root.
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "exporter arguments are not accepted over HTTP"))
		return
	}
	doc, err := s.resolve(opts.Document)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Document = doc
	if opts.OutputDir != "" {
		if opts.OutputDir, err = s.resolve(opts.OutputDir); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid timeout %q", req.Timeout))
			return
		}
		opts.JobTimeout = d
	}
	opts.Logger = loggerFromContext(r.Context())

	unlock := s.locks.Lock(doc)
	res, err := s.runner.Execute(r.Context(), opts)
	unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := syncResponse{
		RunID:      res.RunID,
		Document:   res.Document,
		Manifest:   res.ManifestLocation,
		Pages:      res.Pages,
		Planned:    res.Planned(),
		Skipped:    res.Skipped,
		Succeeded:  res.Exec.Succeeded,
		Failed:     res.Exec.Failed(),
		DryRun:     opts.DryRun,
		DurationMS: res.Stats.Total.Milliseconds(),
	}
	for _, f := range res.Exec.Failures {
		resp.Failures = append(resp.Failures, pageFailure{Index: f.Index, Name: f.Name, Error: errors.UserMessage(f.Err)})
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: resp})
}

// manifestEntry is one page record in GET /manifest.
type manifestEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Hash  string `json:"hash"`
	Path  string `json:"path"`
}

func (s *server) handleManifest(w http.ResponseWriter, r *http.Request) {
	doc, err := s.resolve(r.URL.Query().Get("document"))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := s.runner.Store.Load(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]manifestEntry, 0, len(m))
	for _, p := range m.Pages() {
		entries = append(entries, manifestEntry{Index: p.Index, Name: p.Name, Hash: p.Hash, Path: p.Path})
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"document": doc,
		"location": s.runner.Store.Location(doc),
		"pages":    entries,
	}})
}

// resolve turns a request path into an absolute path inside root. The
// check runs on the path with symlinks resolved, so a link inside root
// cannot point outside it.
func (s *server) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "document is required")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)

	resolved, err := evalExisting(p)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve path %s", p)
	}
	if !within(s.realRoot, resolved) {
		return "", errors.New(errors.ErrCodeInvalidInput, "path %s is outside the served root", p)
	}
	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// appends the rest unchanged. Output folders may not exist yet.
func evalExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	base, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(p)), nil
}

// =============================================================================
// Per-document locking
// =============================================================================

// keyedMutex serializes work per key. Entries are dropped once no
// goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
