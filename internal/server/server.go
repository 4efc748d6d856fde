// Package server exposes the distributor over HTTP: a pull endpoint that
// samples on demand, a WebSocket stream of push events, and a health
// endpoint reporting whether the sampler is still producing snapshots.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/distributor"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/scheduler"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Event is the frame written to WebSocket subscribers.
type Event struct {
	Event   string                `json:"event"`
	Payload models.SystemSnapshot `json:"payload"`
}

// Health is the body of GET /health.
type Health struct {
	Status        string           `json:"status"`
	Sampler       scheduler.Status `json:"sampler"`
	Subscribers   int              `json:"subscribers"`
	Published     uint64           `json:"published"`
	LastPublished time.Time        `json:"last_published"`
}

// Server serves snapshots to browser-based presentation hosts.
type Server struct {
	dist     *distributor.Distributor
	sampler  *scheduler.Scheduler
	token    string
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a Server. An empty token disables authentication.
func New(dist *distributor.Distributor, sampler *scheduler.Scheduler, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		dist:    dist,
		sampler: sampler,
		token:   token,
		logger:  logger.Named("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/system-info", s.handleSystemInfo)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("Listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !checkAuth(r, s.token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	snap, err := s.dist.Query(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	published, last := s.dist.Published()
	h := Health{
		Status:        "ok",
		Sampler:       s.sampler.Status(),
		Subscribers:   len(s.dist.Subscribers()),
		Published:     published,
		LastPublished: last,
	}

	code := http.StatusOK
	if s.sampler.Stale(time.Now()) {
		h.Status = "stale"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.dist.Subscribe("ws " + r.RemoteAddr)
	defer sub.Unsubscribe()

	// Clients never send anything meaningful; reading only detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(Event{Event: models.EventUpdateSystemInfo, Payload: snap})
			if err != nil {
				s.logger.Error("Failed to marshal event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("WebSocket subscriber gone",
					zap.String("subscriber", sub.ID.String()),
					zap.Error(err))
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// checkAuth accepts a bearer token or a token query parameter, the latter
// for WebSocket clients that cannot set headers.
func checkAuth(r *http.Request, token string) bool {
	if token == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && tokenEqual(strings.TrimPrefix(auth, "Bearer "), token) {
		return true
	}

	return tokenEqual(r.URL.Query().Get("token"), token)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
