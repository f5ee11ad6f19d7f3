// Package server exposes a small report endpoint so a browser can poll run
// results or stream forecast records live over a websocket. The pipeline
// stays a plain batch job when the server is disabled.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"volbot/src/datamodels"
	"volbot/src/metrics"
	"volbot/src/utils/errors"
)

type Server struct {
	addr          string
	upgrader      websocket.Upgrader
	httpMux       *http.ServeMux
	metricsWriter *metrics.WebsocketMetricsWriter

	mu     sync.RWMutex
	scores []datamodels.EvalScore
}

func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local research tool, no origin policy
			},
		},
		httpMux: http.NewServeMux(),
	}
}

func (s *Server) WithMetricsWriter(metricsWriter *metrics.WebsocketMetricsWriter) *Server {
	s.metricsWriter = metricsWriter
	return s
}

// UpdateScores replaces the scores served by the results endpoint.
func (s *Server) UpdateScores(scores []datamodels.EvalScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = scores
}

func (s *Server) Start(ctx context.Context) error {
	if s.metricsWriter == nil {
		return errors.New("metrics writer is nil")
	}
	s.httpMux.HandleFunc("/health", s.handleHealth)
	s.httpMux.HandleFunc("/results", s.handleResults)
	s.httpMux.HandleFunc("/ws", s.handleWebSocket)

	server := &http.Server{
		Addr:    s.addr,
		Handler: s.httpMux,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down report server")
		if err := server.Close(); err != nil {
			slog.Error("Failed to close report server", "error", err)
		}
	}()

	slog.Info("Starting report server", "addr", s.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrap(err, "report server failed")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	scores := s.scores
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(scores); err != nil {
		slog.Error("Failed to encode results", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)
		return
	}
	s.metricsWriter.AddClient(conn)
	slog.Info("Websocket client connected", "remote", conn.RemoteAddr())

	go func() {
		defer func() {
			s.metricsWriter.RemoveClient(conn)
			conn.Close()
		}()
		for {
			// clients only listen; read loop just detects disconnects
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
