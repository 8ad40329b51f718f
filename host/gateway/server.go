package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gorover/core"
)

// DeviceHeader carries the device name on every response
const DeviceHeader = "X-Rover-Device"

// Options configures a Server
type Options struct {
	DeviceName    string
	ControlPath   string // default /control.cgi
	WebsocketPath string // empty disables the websocket endpoint
	Publisher     Publisher
	Logger        *zap.SugaredLogger
}

// Server is the HTTP front end of one rover
type Server struct {
	backend Commander
	opts    Options
	logger  *zap.SugaredLogger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	lastCommand atomic.Int64 // unix nanos of the last dispatch
	requests    atomic.Uint64
	failures    atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*websocket.Conn
}

// NewServer creates a server that forwards tokens to backend
func NewServer(backend Commander, opts Options) *Server {
	if opts.ControlPath == "" {
		opts.ControlPath = "/control.cgi"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	s := &Server{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux:      http.NewServeMux(),
		sessions: make(map[string]*websocket.Conn),
	}

	s.mux.HandleFunc(opts.ControlPath, s.handleControl)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if opts.WebsocketPath != "" {
		s.mux.HandleFunc(opts.WebsocketPath, s.handleWebsocket)
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Dispatch runs one token through the backend, records activity and
// publishes the resulting status
func (s *Server) Dispatch(ctx context.Context, token string) (core.Status, error) {
	return s.dispatch(ctx, token, true)
}

// dispatch runs one token. Idle ticks pass touch=false so they do not
// count as command activity.
func (s *Server) dispatch(ctx context.Context, token string, touch bool) (core.Status, error) {
	s.requests.Add(1)
	st, err := s.backend.Command(ctx, token)
	if err != nil {
		s.failures.Add(1)
		return core.Status{}, err
	}
	if touch {
		s.lastCommand.Store(time.Now().UnixNano())
	}
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(st)
	}
	return st, nil
}

// LastCommand returns the time of the last successful command dispatch
func (s *Server) LastCommand() time.Time {
	n := s.lastCommand.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Stats returns the number of dispatch attempts and backend failures
func (s *Server) Stats() (requests, failures uint64) {
	return s.requests.Load(), s.failures.Load()
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Malformed forms degrade to an idle tick
	_ = r.ParseForm()
	token := r.FormValue("command")

	st, err := s.Dispatch(r.Context(), token)
	if err != nil {
		s.logger.Warnw("backend failed", "command", token, "error", err)
		http.Error(w, "backend unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}

	resp := core.NewResponse(st)
	defer resp.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(DeviceHeader, s.opts.DeviceName)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp); err != nil {
		s.logger.Debugw("response write failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(DeviceHeader, s.opts.DeviceName)
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok")
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Infow("gateway listening", "addr", ln.Addr().String(), "device", s.opts.DeviceName)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.closeSessions()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
