// Package server is the HTTP + WebSocket API surface: scan submission,
// report retrieval, deletion, a status stream and the public asset mount.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/model"
	"github.com/pagepulse/pagepulse/internal/report"
	"github.com/pagepulse/pagepulse/internal/store"
)

// assetPrefix is the URL path public assets (screenshots) are served under.
const assetPrefix = "/storage"

// wsPollInterval is how often the status stream re-reads a scan.
const wsPollInterval = time.Second

// Enqueuer submits scan ids to the analysis workers.
type Enqueuer interface {
	Enqueue(id string) error
}

// Server routes API requests to the store and the analysis queue.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	queue    Enqueuer
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func New(cfg *config.Config, st *store.Store, queue Enqueuer, logger logging.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		queue:  queue,
		router: chi.NewRouter(),
		logger: logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/scans", s.optionsHandler("GET, POST"))
	r.Options("/scans/{id}", s.optionsHandler("GET, DELETE"))
	r.Options("/ws/scans/{id}", s.optionsHandler("GET"))

	// Scans
	r.Post("/scans", s.handleSubmitScan)
	r.Get("/scans", s.handleListScans)
	r.Get("/scans/{id}", s.handleGetScan)
	r.Delete("/scans/{id}", s.handleDeleteScan)

	// WebSocket status stream
	r.Get("/ws/scans/{id}", s.handleScanWS)

	// Screenshots and other public assets
	publicDir := filepath.Join(s.cfg.StorageRoot, "public")
	r.Handle(assetPrefix+"/*", http.StripPrefix(assetPrefix+"/", http.FileServer(http.Dir(publicDir))))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req, err := model.ParseScanRequest(body.URL)
	if err != nil {
		s.logger.Warn("rejecting scan request", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	scan, err := s.store.Create(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("creating scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.queue.Enqueue(scan.ID); err != nil {
		s.logger.Warn("enqueuing scan",
			logging.Field{Key: "id", Value: scan.ID},
			logging.Field{Key: "error", Value: err.Error()})
		_ = s.store.Delete(r.Context(), scan.ID)
		writeError(w, http.StatusServiceUnavailable, "analysis queue is full, try again later")
		return
	}

	s.logger.Info("scan accepted",
		logging.Field{Key: "id", Value: scan.ID},
		logging.Field{Key: "url", Value: scan.URL})
	writeJSON(w, http.StatusAccepted, report.Build(scan, assetPrefix))
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	scans, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing scans", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report.BuildAll(scans, assetPrefix))
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scan, err := s.loadScanHealed(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		s.logger.Warn("loading scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report.Build(scan, assetPrefix))
}

// loadScanHealed reads a scan, first reclassifying it as failed if it sat
// in processing past the stale window. Readers never see a scan that looks
// alive but has no worker behind it.
func (s *Server) loadScanHealed(ctx context.Context, id string) (*model.Scan, error) {
	healed, err := s.store.FailIfStale(ctx, id, s.cfg.Sweeper.StaleAfter)
	if err != nil {
		return nil, err
	}
	if healed {
		s.logger.Warn("stale scan reclassified as failed", logging.Field{Key: "id", Value: id})
	}
	return s.store.Get(ctx, id)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	scan, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("deleting scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if scan.ScreenshotPath != nil && *scan.ScreenshotPath != "" {
		path := filepath.Join(s.cfg.StorageRoot, "public", filepath.FromSlash(*scan.ScreenshotPath))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing screenshot file",
				logging.Field{Key: "path", Value: path},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	s.logger.Info("scan deleted", logging.Field{Key: "id", Value: id})
	w.WriteHeader(http.StatusNoContent)
}

// handleScanWS streams a scan's report over a websocket until it reaches a
// terminal state. An update is pushed whenever the stored record changes.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx := r.Context()

	scan, err := s.loadScanHealed(ctx, id)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	if err := conn.WriteJSON(report.Build(scan, assetPrefix)); err != nil {
		return
	}
	lastUpdated := scan.UpdatedAt

	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()

	for !scan.Status.Terminal() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		scan, err = s.loadScanHealed(ctx, id)
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}

		if scan.UpdatedAt.Equal(lastUpdated) {
			continue
		}
		lastUpdated = scan.UpdatedAt

		if err := conn.WriteJSON(report.Build(scan, assetPrefix)); err != nil {
			// Client disconnected; the analysis itself keeps running.
			return
		}
	}
}
