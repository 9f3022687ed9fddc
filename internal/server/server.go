// Package server is the development preview server. It renders template
// partials over HTTP and tells connected browsers to reload over a WebSocket
// whenever the template sources change.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/xtpl/internal/config"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/loader"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/watcher"
)

// LoaderFactory creates a loader with an empty store.
type LoaderFactory func() *loader.Loader

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// PreviewServer serves rendered templates with live reload.
type PreviewServer struct {
	config       *config.Config
	newLoader    LoaderFactory
	loader       atomic.Pointer[loader.Loader]
	logger       logging.Logger
	errorHandler *xterrors.ErrorHandler

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	IDs       []string  `json:"ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a preview server. newLoader is called once now and again after
// every source change, so a change is never served from stale templates.
func New(cfg *config.Config, newLoader LoaderFactory, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	s := &PreviewServer{
		config:       cfg,
		newLoader:    newLoader,
		logger:       logger,
		errorHandler: xterrors.NewErrorHandler(logger),
		clients:      make(map[*websocket.Conn]*Client),
		broadcast:    make(chan []byte, 16),
		register:     make(chan *Client),
		unregister:   make(chan *websocket.Conn),
	}
	s.loader.Store(newLoader())
	return s
}

// Loader returns the loader currently serving requests.
func (s *PreviewServer) Loader() *loader.Loader {
	return s.loader.Load()
}

// Handler returns the HTTP routes of the server.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /render/{path...}", s.handleRender)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.logRequests(mux)
}

// Start serves on the configured address until ctx is done.
func (s *PreviewServer) Start(ctx context.Context) error {
	go s.runWebSocketHub(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err, "Shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Preview server listening", "addr", "http://"+s.config.Addr())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// HandleChanges is a watcher.ChangeHandler that reloads after edits.
func (s *PreviewServer) HandleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	s.Reload(ctx, ids)
	return nil
}

// Reload replaces the loader with a fresh one, resolves again the templates
// the old loader held, and tells every browser to reload.
func (s *PreviewServer) Reload(ctx context.Context, changed []string) {
	previous := s.loader.Swap(s.newLoader())

	if ids := previous.IDs(); len(ids) > 0 {
		// Files that fail now are reported, and resolved again on request.
		for _, id := range ids {
			if _, err := s.Loader().Resolve(ctx, []string{id}); err != nil {
				s.errorHandler.Handle(ctx, err)
			}
		}
	}

	s.logger.Info(ctx, "Templates reloaded", "changed", changed)
	s.broadcastMessage(ctx, UpdateMessage{Type: "reload", IDs: changed, Timestamp: time.Now().UTC()})
}

func (s *PreviewServer) broadcastMessage(ctx context.Context, msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to marshal message")
		return
	}

	select {
	case s.broadcast <- data:
	case <-ctx.Done():
	}
}

// Shutdown closes every WebSocket connection and stops the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *PreviewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
