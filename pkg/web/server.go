// Package web serves the current session over a JSON API and streams load
// progress, graph summaries and selection updates over Server-Sent Events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/mutual-graph/pkg/filter"
	"github.com/ritzau/mutual-graph/pkg/logging"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/pubsub"
	"github.com/ritzau/mutual-graph/pkg/selection"
	"github.com/ritzau/mutual-graph/pkg/session"
	"github.com/ritzau/mutual-graph/pkg/source"
)

var log = logging.New("web")

// maxUploadMemory is the multipart memory limit for POST /api/load. Larger
// uploads spill to temporary files.
const maxUploadMemory = 32 << 20

// heartbeatInterval spaces keep-alive comments on idle SSE streams.
const heartbeatInterval = 15 * time.Second

// GraphData holds the rendered graph of the current session
type GraphData struct {
	LoadID string       `json:"load_id"`
	Nodes  []model.Node `json:"nodes"`
	Edges  []model.Edge `json:"edges"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	manager   *session.Manager
	publisher pubsub.Publisher
	mode      filter.Mode // Hide-leaves mode for loads that do not specify one
}

// NewServer creates a server for manager. The publisher must be the one the
// manager publishes to.
func NewServer(manager *session.Manager, publisher pubsub.Publisher, mode filter.Mode) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		manager:   manager,
		publisher: publisher,
		mode:      mode,
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/load", s.handleLoad).Methods("POST")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/filter", s.handleFilter).Methods("PUT")
	s.router.HandleFunc("/api/select/{id}", s.handleSelect).Methods("POST")
	s.router.HandleFunc("/api/search/input", s.handleSearchInput).Methods("POST")
	s.router.HandleFunc("/api/search", s.handleSearch).Methods("POST")
	s.router.HandleFunc("/api/clear", s.handleClear).Methods("POST")
	s.router.HandleFunc("/api/avatars", s.handleAvatars).Methods("PUT")
	s.router.HandleFunc("/api/node/{id}/mutuals", s.handleMutuals).Methods("GET")
	s.router.HandleFunc("/api/export", s.handleExport).Methods("GET")
	s.router.HandleFunc("/api/layout/stabilized", s.handleStabilized).Methods("POST")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start listens on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("Shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	switch topic {
	case pubsub.TopicLoadStatus, pubsub.TopicGraph, pubsub.TopicSelection:
	default:
		http.Error(w, fmt.Sprintf("Unknown topic: %s", topic), http.StatusNotFound)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	sub, err := s.subscribe(r, topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				log.Debug("Error writing SSE event", "topic", topic, "error", err)
				return
			}
		case <-heartbeat.C:
			if err := pubsub.WriteComment(w, "keep-alive"); err != nil {
				return
			}
		}
		flush(w)
	}
}

// subscribe resumes from Last-Event-ID when the client reconnects and the
// publisher supports it.
func (s *Server) subscribe(r *http.Request, topic string) (pubsub.Subscription, error) {
	if after, err := strconv.Atoi(r.Header.Get("Last-Event-ID")); err == nil && after > 0 {
		if p, ok := s.publisher.(interface {
			SubscribeAfter(context.Context, string, int) (pubsub.Subscription, error)
		}); ok {
			return p.SubscribeAfter(r.Context(), topic, after)
		}
	}
	return s.publisher.Subscribe(r.Context(), topic)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, fmt.Sprintf("Invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	mode := s.mode
	if v := r.FormValue("hideLeaves"); v != "" {
		m, err := parseHideLeaves(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}

	files := make([]source.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("Reading %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("Reading %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		files = append(files, source.File{Name: fh.Filename, Data: data})
	}

	// A load runs to completion even if the client goes away
	sess, err := s.manager.Load(context.WithoutCancel(r.Context()), files, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary(false))
}

// parseHideLeaves accepts the filter modes as well as plain booleans.
func parseHideLeaves(v string) (filter.Mode, error) {
	if b, err := strconv.ParseBool(v); err == nil {
		return filter.ModeFor(b), nil
	}
	return filter.ParseMode(v)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &GraphData{
		LoadID: sess.ID,
		Nodes:  sess.Graph.Nodes(),
		Edges:  sess.Graph.Edges(),
	})
}

type filterRequest struct {
	HideLeaves bool `json:"hideLeaves"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.manager.SetHideLeaves(context.WithoutCancel(r.Context()), req.HideLeaves)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary(false))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	upd, err := sess.Select(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishSelection(upd)
	writeJSON(w, http.StatusOK, upd)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	upd := sess.Search(req.Query)
	s.publishSelection(upd)
	writeJSON(w, http.StatusOK, upd)
}

// handleSearchInput queues keystroke input; the debounced result arrives on
// the selection topic.
func (s *Server) handleSearchInput(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := s.manager.Session(); err != nil {
		writeError(w, err)
		return
	}
	s.manager.SubmitSearch(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	upd := sess.Clear()
	s.publishSelection(upd)
	writeJSON(w, http.StatusOK, upd)
}

type avatarsRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleAvatars(w http.ResponseWriter, r *http.Request) {
	var req avatarsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	upd := sess.SetAvatarMode(req.Enabled)
	s.publishSelection(upd)
	writeJSON(w, http.StatusOK, upd)
}

func (s *Server) handleMutuals(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	sidebar, err := sess.Mutuals(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sidebar)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.manager.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.ExportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		log.WarnContext(r.Context(), "Export write failed", "error", err)
	}
}

func (s *Server) handleStabilized(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.MarkStabilized(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishSelection(upd selection.Update) {
	if err := s.publisher.Publish(pubsub.TopicSelection, "update", upd); err != nil {
		log.Debug("Publish failed", "topic", pubsub.TopicSelection, "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
	File  string `json:"file,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var malformed *source.MalformedSourceError
	switch {
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), File: malformed.File})
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, selection.ErrUnknownNode):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrSuperseded):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Error encoding response", "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
