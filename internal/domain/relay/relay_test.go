package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captured struct {
	method      string
	query       string
	contentType string
	body        string
}

func upstream(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.query = r.URL.RawQuery
		got.contentType = r.Header.Get("Content-Type")
		got.body = string(body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandler_ForwardsGetQuery(t *testing.T) {
	srv, got := upstream(t, http.StatusOK, "{\n  \"ok\": true,\n  \"rows\": [1, 2]\n}")
	h := NewHandler(Config{Target: srv.URL + "/exec?v=1"}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/relay?action=list&month=2024-03", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true,"rows":[1,2]}`, rec.Body.String())
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "v=1&action=list&month=2024-03", got.query)
}

func TestHandler_ForwardsPostBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantType    string
	}{
		{"default form type", "", DefaultContentType},
		{"preserved type", "text/plain;charset=utf-8", "text/plain;charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := upstream(t, http.StatusCreated, "saved")
			h := NewHandler(Config{Target: srv.URL}, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader("action=saveOrder&data=%7B%7D"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, "saved", rec.Body.String())
			assert.Equal(t, "action=saveOrder&data=%7B%7D", got.body)
			assert.Equal(t, tt.wantType, got.contentType)
		})
	}
}

func TestHandler_RelaysUpstreamStatus(t *testing.T) {
	srv, _ := upstream(t, http.StatusBadGateway, `{"ok": false}`)
	h := NewHandler(Config{Target: srv.URL}, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, `{"ok":false}`, rec.Body.String())
}

func TestHandler_MissingTarget(t *testing.T) {
	h := NewHandler(Config{}, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader("a=1")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.False(t, body.OK)
	assert.Equal(t, ErrNoTarget.Error(), body.Error)
}

func TestHandler_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	h := NewHandler(Config{Target: target}, testLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.False(t, body.OK)
	assert.Contains(t, body.Error, "failed to reach relay target")
}

func TestHandler_Methods(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK, "{}")
	h := NewHandler(Config{Target: srv.URL}, testLogger())

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPut, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
		{http.MethodPatch, http.StatusMethodNotAllowed},
		{http.MethodOptions, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/relay", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK, "{}")
	h := NewHandler(Config{Target: srv.URL}, testLogger()).WithCORS()

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/relay", nil)
		req.Header.Set("Origin", "https://venue.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("simple request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/relay", nil)
		req.Header.Set("Origin", "https://venue.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHandler_RateLimit(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK, "{}")
	h := NewHandler(Config{Target: srv.URL, RatePerSecond: 0.001, Burst: 1}, testLogger())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/relay", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/relay", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, ErrRateLimited.Error(), decodeError(t, second).Error)
}

func TestHandler_Metrics(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK, "{}")
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := NewHandler(Config{Target: srv.URL}, testLogger(), WithMetrics(metrics))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/relay", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/relay", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodPut, "405")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.upstream))
}

func TestCompactJSON(t *testing.T) {
	assert.Equal(t, `{"a":[1,2]}`, string(compactJSON([]byte("{ \"a\": [1, 2] }"))))
	assert.Equal(t, "plain text", string(compactJSON([]byte("plain text"))))
	assert.Empty(t, compactJSON(nil))
}
