package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorover/core"
)

// failingBackend always reports a link failure
type failingBackend struct{}

func (failingBackend) Command(context.Context, string) (core.Status, error) {
	return core.Status{}, errors.New("response timeout")
}

// recordingPublisher keeps every published status
type recordingPublisher struct {
	mu       sync.Mutex
	statuses []core.Status
}

func (p *recordingPublisher) Publish(st core.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, st)
}

func (p *recordingPublisher) all() []core.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Status(nil), p.statuses...)
}

func newTestServer(t *testing.T, backend Commander, pub Publisher) *Server {
	t.Helper()
	return NewServer(backend, Options{
		DeviceName:    "rover-TEST",
		WebsocketPath: "/ws",
		Publisher:     pub,
	})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestControlForwardRamp(t *testing.T) {
	s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), nil)
	h := s.Handler()

	rec := get(t, h, "/control.cgi?command=FWD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "rover-TEST", rec.Header().Get(DeviceHeader))
	assert.Equal(t, `{"status":1,"command":"2","vehicle_speed":"1"}`, rec.Body.String())

	rec = get(t, h, "/control.cgi?command=FWD")
	assert.Equal(t, `{"status":1,"command":"2","vehicle_speed":"2"}`, rec.Body.String())

	rec = get(t, h, "/control.cgi?command=STP")
	assert.Equal(t, `{"status":1,"command":"8","vehicle_speed":"0"}`, rec.Body.String())
}

func TestControlIdleInputs(t *testing.T) {
	tests := []string{
		"/control.cgi",
		"/control.cgi?command=",
		"/control.cgi?command=fwd",
		"/control.cgi?command=xyz",
		"/control.cgi?command=%ZZ",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), nil)
			rec := get(t, s.Handler(), target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, `{"status":1,"command":"9","vehicle_speed":"0"}`, rec.Body.String())
		})
	}
}

func TestControlPostForm(t *testing.T) {
	s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), nil)

	form := url.Values{"command": {"BLT"}}
	req := httptest.NewRequest(http.MethodPost, "/control.cgi", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"status":1,"command":"5","vehicle_speed":"1"}`, rec.Body.String())
}

func TestControlMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), nil)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(method, "/control.cgi?command=FWD", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
	requests, _ := s.Stats()
	assert.Zero(t, requests, "rejected methods never reach the backend")
}

func TestControlBackendFailure(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestServer(t, failingBackend{}, pub)

	rec := get(t, s.Handler(), "/control.cgi?command=FWD")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "response timeout")
	assert.Empty(t, pub.all())

	requests, failures := s.Stats()
	assert.Equal(t, uint64(1), requests)
	assert.Equal(t, uint64(1), failures)
	assert.True(t, s.LastCommand().IsZero())
}

func TestControlPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), pub)

	get(t, s.Handler(), "/control.cgi?command=LFT")
	get(t, s.Handler(), "/control.cgi?command=LFT")

	assert.Equal(t, []core.Status{
		{Command: core.CmdLeft, Speed: 1},
		{Command: core.CmdLeft, Speed: 2},
	}, pub.all())
	assert.False(t, s.LastCommand().IsZero())
}

func TestControlCustomPath(t *testing.T) {
	s := NewServer(NewLocalBackend(core.DefaultConfig(), nil), Options{ControlPath: "/drive"})

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/drive?command=RGT").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/control.cgi?command=RGT").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/ws").Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, failingBackend{}, nil)
	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServeShutdown(t *testing.T) {
	s := newTestServer(t, NewLocalBackend(core.DefaultConfig(), nil), nil)
	srv := httptest.NewUnstartedServer(nil)
	ln := srv.Listener

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/control.cgi?command=FWD")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, `{"status":1,"command":"2","vehicle_speed":"1"}`, string(body))

	cancel()
	assert.NoError(t, <-done)
}
