package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Heartbeat sends idle ticks so speed ramps down when commands stop.
// A tick is sent only when no command arrived during the last interval.
type Heartbeat struct {
	server   *Server
	interval time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewHeartbeat creates a heartbeat for server. A zero interval disables it.
func NewHeartbeat(server *Server, interval time.Duration) *Heartbeat {
	return &Heartbeat{
		server:   server,
		interval: interval,
		logger:   server.logger.Named("heartbeat"),
		now:      time.Now,
	}
}

// Run ticks until ctx is done
func (h *Heartbeat) Run(ctx context.Context) {
	if h.interval <= 0 {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

// tick sends one idle tick unless a command arrived recently
func (h *Heartbeat) tick(ctx context.Context) bool {
	if last := h.server.LastCommand(); !last.IsZero() && h.now().Sub(last) < h.interval {
		return false
	}
	st, err := h.server.dispatch(ctx, "", false)
	if err != nil {
		h.logger.Warnw("idle tick failed", "error", err)
		return false
	}
	h.logger.Debugw("idle tick", "vehicle_speed", st.Speed)
	return true
}
