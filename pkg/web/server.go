package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/lens"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
	"github.com/ritzau/citegraph/pkg/pubsub"
	"github.com/ritzau/citegraph/pkg/selection"
	"github.com/ritzau/citegraph/pkg/view"
)

// Options configures the server
type Options struct {
	AllowedOrigins []string                // CORS origins, empty means localhost only
	StaticDir      string                  // Renderer assets, optional
	Tables         *dataset.CategoryTables // Per-category publication tables, optional
}

// ViewInfo describes one view in the view list
type ViewInfo struct {
	Name   string      `json:"name"`
	Kind   view.Kind   `json:"kind"`
	Status view.Status `json:"status"`
}

// SelectionResponse is the selection of a view for presentation panels
type SelectionResponse struct {
	selection.Snapshot
	CitedByImpact []model.Node `json:"citedByImpact"`
	RecordURL     string       `json:"recordUrl,omitempty"`
}

// StyleEvent is a style diff of one view, published on the styles topic
type StyleEvent struct {
	View string `json:"view"`
	*lens.StyleDiff
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	views     []*view.View
	byName    map[string]*view.View
	publisher pubsub.Publisher
	opts      Options
}

// NewServer creates a server for the given views. The publisher should be
// the one the views' renderers publish to.
func NewServer(views []*view.View, publisher pubsub.Publisher, opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		views:     views,
		byName:    make(map[string]*view.View, len(views)),
		publisher: publisher,
		opts:      opts,
	}
	for _, v := range views {
		s.byName[v.Name()] = v
	}
	s.setupRoutes()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", logging.RequestIDHeader},
		ExposedHeaders: []string{logging.RequestIDHeader},
		MaxAge:         300,
	})
	s.handler = logging.RequestIDMiddleware(corsHandler(s.router))
	return s
}

// Handler returns the HTTP handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/views", s.handleViews).Methods("GET")
	s.router.HandleFunc("/api/views/{view}/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/views/{view}/selection", s.handleSelection).Methods("GET")
	s.router.HandleFunc("/api/views/{view}/selection", s.handleClear).Methods("DELETE")
	s.router.HandleFunc("/api/views/{view}/select", s.handleSelect).Methods("POST")
	s.router.HandleFunc("/api/views/{view}/search", s.handleSearch).Methods("GET")
	s.router.HandleFunc("/api/views/{view}/reload", s.handleReload).Methods("POST")
	s.router.HandleFunc("/api/categories/{id}/publications", s.handleCategoryPublications).Methods("GET")

	if s.opts.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

// LoadAll loads every view, publishing its status. Failures are reported on
// the status topic and do not stop the other views.
func (s *Server) LoadAll(ctx context.Context) {
	for _, v := range s.views {
		_ = s.Reload(ctx, v.Name())
	}
}

// Reload reloads one view and publishes the outcome
func (s *Server) Reload(ctx context.Context, name string) error {
	v, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown view: %s", name)
	}

	s.publishStatus(v, "loading", "")
	if err := v.Load(ctx); err != nil {
		s.publishStatus(v, "error", err.Error())
		return err
	}
	s.publishStatus(v, "ready", "")
	s.publishStyles(v)
	return nil
}

func (s *Server) publishStatus(v *view.View, state, message string) {
	st := v.Status()
	status := pubsub.DatasetStatus{
		View:         v.Name(),
		State:        state,
		Message:      message,
		Nodes:        st.Nodes,
		Links:        st.Links,
		InvalidLinks: st.InvalidLinks,
	}
	if err := s.publisher.Publish(pubsub.TopicDatasetStatus, state, status); err != nil {
		logging.Warn("failed to publish dataset status", "view", v.Name(), "error", err)
	}
}

// publishStyles sends the style changes of a view to the renderer
func (s *Server) publishStyles(v *view.View) {
	diff, err := v.StyleUpdate()
	if err != nil {
		logging.Warn("failed to compute style update", "view", v.Name(), "error", err)
		return
	}
	if diff.Empty() {
		return
	}
	payload := StyleEvent{View: v.Name(), StyleDiff: diff}
	if err := s.publisher.Publish(pubsub.TopicStyles, "diff", payload); err != nil {
		logging.Warn("failed to publish style update", "view", v.Name(), "error", err)
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	switch topic {
	case pubsub.TopicDatasetStatus, pubsub.TopicSelection, pubsub.TopicStyles:
	default:
		http.Error(w, fmt.Sprintf("Unknown topic: %s", topic), http.StatusNotFound)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	logging.DebugContext(r.Context(), "subscriber connected", "topic", topic)
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	infos := make([]ViewInfo, 0, len(s.views))
	for _, v := range s.views {
		infos = append(infos, ViewInfo{Name: v.Name(), Kind: v.Kind(), Status: v.Status()})
	}
	writeJSON(w, r, http.StatusOK, infos)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	styled, err := v.Styled()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, styled)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeSelection(w, r, v)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "Node id required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if _, err := v.Select(ctx, req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	logging.InfoContext(r.Context(), "node selected", "view", v.Name(), "id", req.ID)

	s.publishStyles(v)
	s.writeSelection(w, r, v)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := v.Clear(); err != nil {
		writeError(w, r, err)
		return
	}
	s.publishStyles(v)
	s.writeSelection(w, r, v)
}

func (s *Server) writeSelection(w http.ResponseWriter, r *http.Request, v *view.View) {
	snap, err := v.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := SelectionResponse{Snapshot: snap, CitedByImpact: snap.CitedByImpact()}
	if snap.Selected != nil {
		resp.RecordURL = v.RecordURL(snap.Selected.ID)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("Invalid limit: %s", raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	results, err := v.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, results)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Reload(r.Context(), v.Name()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ViewInfo{Name: v.Name(), Kind: v.Kind(), Status: v.Status()})
}

func (s *Server) handleCategoryPublications(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tables == nil {
		http.Error(w, "No publication tables configured", http.StatusNotFound)
		return
	}

	id := mux.Vars(r)["id"]
	nodes, report, err := s.opts.Tables.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report.Log(s.opts.Tables.Dir)
	writeJSON(w, r, http.StatusOK, nodes)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	name := mux.Vars(r)["view"]
	v, ok := s.byName[name]
	if !ok {
		http.Error(w, fmt.Sprintf("View not found: %s", name), http.StatusNotFound)
	}
	return v, ok
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var malformed *model.MalformedHierarchyError
	var loadErr *model.DatasetLoadError
	switch {
	case errors.Is(err, selection.ErrUnknownNode), errors.Is(err, dataset.ErrNoCategoryTable):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, view.ErrNotLoaded), errors.As(err, &malformed), errors.As(err, &loadErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		logging.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSON(w, r, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WarnContext(r.Context(), "failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Close SSE streams so Shutdown does not wait for them
		s.publisher.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
