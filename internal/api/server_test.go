package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncthingtray/syncthingtray/internal/api/middleware"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
	"github.com/syncthingtray/syncthingtray/internal/logging"
)

type fakeController struct {
	mu       sync.Mutex
	snap     controller.Snapshot
	startErr error
	stopErr  error
	buf      *logging.RingBuffer
}

func newFakeController() *fakeController {
	buf := logging.NewRingBuffer(10)
	for _, text := range []string{"a", "b", "c"} {
		buf.Append(logging.LogEntry{Stream: logging.Stdout, Text: text})
	}
	return &fakeController{
		snap: controller.Snapshot{StatusText: controller.StatusNotRunning, StatusColor: controller.Red, CanStart: true, PathValid: true},
		buf:  buf,
	}
}

func (f *fakeController) Snapshot() controller.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) StartProcess(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.snap.Running, f.snap.StatusText, f.snap.CanStart, f.snap.CanStop = true, controller.StatusRunning, false, true
	return nil
}

func (f *fakeController) StopProcess(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.snap.Running, f.snap.StatusText, f.snap.CanStart, f.snap.CanStop = false, controller.StatusNotRunning, true, false
	return nil
}

func (f *fakeController) Output(n int) []logging.LogEntry {
	if n <= 0 {
		return f.buf.GetEntries()
	}
	return f.buf.GetRecentEntries(n)
}

func (f *fakeController) OutputAfter(seq uint64) []logging.LogEntry {
	return f.buf.EntriesAfter(seq)
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := localRequest(method, target)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// localRequest looks like a request from the CLI client on this machine.
func localRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Host = "127.0.0.1:8385"
	req.Header.Set(middleware.ClientHeader, "1")
	return req
}

func newTestServer(ctl Controller) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer("127.0.0.1:0", ctl, WithDebug(true))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(newFakeController())
	w := serve(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(logging.RequestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(newFakeController())
	req := localRequest(http.MethodGet, "/v1/status")
	req.Header.Set(logging.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(logging.RequestIDHeader))
}

func TestStatus(t *testing.T) {
	s := newTestServer(newFakeController())
	w := serve(t, s, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, controller.StatusNotRunning, resp.Status.StatusText)
	assert.True(t, resp.Status.CanStart)
}

func TestStartStop(t *testing.T) {
	s := newTestServer(newFakeController())

	w := serve(t, s, http.MethodPost, "/v1/start")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status.Running)

	w = serve(t, s, http.MethodPost, "/v1/stop")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Status.Running)

	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/v1/start").Code)
}

func TestActionErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind apperrors.Kind
	}{
		{"launch", apperrors.New(apperrors.KindLaunch, "start syncthing", errors.New("permission denied")), http.StatusUnprocessableEntity, apperrors.KindLaunch},
		{"unavailable", controller.ErrUnavailable, http.StatusServiceUnavailable, apperrors.KindUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, apperrors.KindUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newFakeController()
			ctl.startErr = tt.err
			w := serve(t, newTestServer(ctl), http.MethodPost, "/v1/start")
			assert.Equal(t, tt.wantCode, w.Code)
			var body apperrors.AppError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestActionError_IncludesCause(t *testing.T) {
	ctl := newFakeController()
	ctl.stopErr = apperrors.New(apperrors.KindTerminate, "stop syncthing (pid 12)", errors.New("access denied"))
	w := serve(t, newTestServer(ctl), http.MethodPost, "/v1/stop")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "access denied")
}

func TestOutput(t *testing.T) {
	s := newTestServer(newFakeController())

	var resp OutputResponse
	w := serve(t, s, http.MethodGet, "/v1/output?lines=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "b", resp.Lines[0].Text)
	assert.Equal(t, "c", resp.Lines[1].Text)
	assert.Equal(t, resp.Lines[1].Seq, resp.LastSeq)

	w = serve(t, s, http.MethodGet, "/v1/output?after="+strconv.FormatUint(resp.LastSeq, 10))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Lines)
	assert.True(t, strings.Contains(w.Body.String(), `"lines":[]`))

	assert.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/v1/output?lines=-1").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/v1/output?after=x").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(newFakeController())
	serve(t, s, http.MethodGet, "/v1/status")
	w := serve(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "syncthingtray_http_requests_total")
}

func TestRemoteRejected(t *testing.T) {
	s := newTestServer(newFakeController())
	req := localRequest(http.MethodPost, "/v1/stop")
	req.RemoteAddr = "10.0.0.5:1234"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBrowserRequestsCannotStopDaemon(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"cross-origin simple post", func(r *http.Request) {
			r.Header.Del(middleware.ClientHeader)
			r.Header.Set("Origin", "https://evil.example")
			r.Header.Set("Content-Type", "text/plain")
		}},
		{"foreign origin with header", func(r *http.Request) {
			r.Header.Set("Origin", "https://evil.example")
		}},
		{"no client header", func(r *http.Request) {
			r.Header.Del(middleware.ClientHeader)
		}},
		{"rebound host name", func(r *http.Request) {
			r.Host = "evil.example:8385"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newFakeController()
			ctl.snap.Running = true
			s := newTestServer(ctl)
			req := localRequest(http.MethodPost, "/v1/stop")
			tt.setup(req)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.True(t, ctl.Snapshot().Running)
		})
	}
}

func TestClient(t *testing.T) {
	ctl := newFakeController()
	ts := httptest.NewServer(newTestServer(ctl).Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := NewClient(ts.URL)

	snap, err := c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Running)

	snap, err = c.Start(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Running)

	out, err := c.Output(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, out.Lines, 3)

	ctl.mu.Lock()
	ctl.stopErr = apperrors.New(apperrors.KindTerminate, "stop syncthing", errors.New("access denied"))
	ctl.mu.Unlock()
	_, err = c.Stop(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTerminate, apperrors.KindOf(err))
}

func TestClient_TrayNotRunning(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.Listener.Addr().String()
	ts.Close()

	_, err := NewClient(addr).Status(context.Background())
	assert.ErrorIs(t, err, ErrTrayNotRunning)
}
