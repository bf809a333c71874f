package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
)

type staticCompleter string

func (s staticCompleter) Complete(context.Context, string) (string, error) {
	return string(s), nil
}

func newTestRouter(t *testing.T) (http.Handler, *chatservice.Service) {
	t.Helper()
	store := persona.NewMemoryStore(persona.Seed())
	chatSvc := chatservice.NewService(store, func(persona.Persona) ai.Completer {
		return staticCompleter("Milk is 1.20")
	}, chatservice.Options{Welcome: true})
	t.Cleanup(chatSvc.Close)

	return NewRouter(zerolog.Nop(), store, chatSvc), chatSvc
}

func TestRouterHealthz(t *testing.T) {
	router, chatSvc := newTestRouter(t)
	_, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["sessions"])
}

func TestRouterMountsAPI(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/personas", "", http.StatusOK},
		{http.MethodPost, "/api/session", `{}`, http.StatusCreated},
		{http.MethodGet, "/api/session/missing/messages", "", http.StatusNotFound},
		{http.MethodGet, "/api/stream/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/ws/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, body))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/personas", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "arix_http_requests_total")
}

func TestRouterCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
