// Package server exposes reasoning runs over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/agent"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxRequestBodySize bounds the JSON request, file content included.
const maxRequestBodySize = 1 << 20

// ReasonRequest starts one run.
type ReasonRequest struct {
	Prompt      string `json:"prompt"`
	FileContent string `json:"file_content,omitempty"`
}

// Info describes the configured controller.
type Info struct {
	Backend      string   `json:"backend"`
	ToolsEnabled bool     `json:"tools_enabled"`
	Tools        []string `json:"tools,omitempty"`
}

// Server routes requests to a reasoning controller. Every request gets its
// own run; runs share nothing but the controller.
type Server struct {
	controller *agent.Controller
	logger     *zap.Logger
	router     chi.Router
}

// New builds the router.
func New(controller *agent.Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{controller: controller, logger: logger}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.handleInfo)
		r.Post("/reason", s.handleReason)
	})
	r.Get("/ws/reason", s.handleWebSocket)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Runs stream for minutes, so there is no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Info{
		Backend:      s.controller.BackendName(),
		ToolsEnabled: s.controller.ToolsEnabled(),
		Tools:        s.controller.ToolNames(),
	})
}

func (s *Server) handleReason(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := s.start(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sse := strings.Contains(r.Header.Get("Accept"), "text/event-stream")
	if sse {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	w.Header().Set("X-Run-ID", run.ID())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	logger := s.logger.With(zap.String("run_id", run.ID()))

	for e := range run.All(r.Context()) {
		data, err := json.Marshal(e)
		if err != nil {
			logger.Warn("Failed to marshal emission", zap.Error(err))
			return
		}
		if sse {
			err = writeSSE(w, "message", string(data))
		} else {
			_, err = fmt.Fprintf(w, "%s\n", data)
		}
		if err != nil {
			logger.Warn("Client went away, abandoning run", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			logger.Debug("Flush not supported", zap.Error(err))
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("Failed to accept WebSocket", zap.Error(err))
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(maxRequestBodySize)

	ctx := r.Context()

	var req ReasonRequest
	if err := wsjson.Read(ctx, ws, &req); err != nil {
		s.logger.Debug("Failed to read WebSocket request", zap.Error(err))
		ws.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	run, err := s.start(req)
	if err != nil {
		if err := wsjson.Write(ctx, ws, map[string]string{"error": err.Error()}); err != nil {
			s.logger.Debug("Failed to send error", zap.Error(err))
		}
		ws.Close(websocket.StatusPolicyViolation, "invalid prompt")
		return
	}

	// The client sends nothing more; CloseRead handles control frames and
	// cancels ctx when the peer disconnects.
	ctx = ws.CloseRead(ctx)
	logger := s.logger.With(zap.String("run_id", run.ID()))

	for e := range run.All(ctx) {
		if err := wsjson.Write(ctx, ws, e); err != nil {
			logger.Warn("Client went away, abandoning run", zap.Error(err))
			return
		}
	}
	ws.Close(websocket.StatusNormalClosure, "run complete")
}

func (s *Server) start(req ReasonRequest) (*agent.Run, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	var opts []agent.RunOption
	if req.FileContent != "" {
		opts = append(opts, agent.WithFileContent(req.FileContent))
	}
	return s.controller.Start(req.Prompt, opts...)
}

// logRequests logs each request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
