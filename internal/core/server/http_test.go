package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/solatis/gfb/internal/core/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTP(t *testing.T, env *testEnv) http.Handler {
	t.Helper()
	srv, err := NewHTTPServer(env.service, HTTPOptions{
		Addr:           "127.0.0.1:0",
		RequestTimeout: 5 * time.Second,
		MaxDocumentKB:  64,
		Authenticator:  env.auth,
	})
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return srv.Handler()
}

func do(h http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(auth.HeaderAPIKey, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Health(t *testing.T) {
	h := newTestHTTP(t, newTestEnv(t))

	rec := do(h, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","registry":true}`, rec.Body.String())
}

func TestHTTP_Metrics(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHTTP(t, env)
	do(h, http.MethodPost, "/v1/compile", env.key, testDocument)

	rec := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gfb_compile_requests_total")
}

func TestHTTP_CompileAndList(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHTTP(t, env)

	rec := do(h, http.MethodPost, "/v1/compile?persist=true&label_id=Label_7", env.key, testDocument)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var compiled CompileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &compiled))
	require.Len(t, compiled.Filters, 2)
	assert.Equal(t, []string{"archive"}, compiled.Filters[0].Actions)
	assert.Equal(t, []string{"Label_7"}, compiled.Filters[0].Resources[0].Action.AddLabelIDs)
	assert.Equal(t, []string{"INBOX"}, compiled.Filters[0].Resources[0].Action.RemoveLabelIDs)
	require.NotEmpty(t, compiled.ETag)
	assert.Equal(t, `"`+compiled.ETag+`"`, rec.Header().Get("ETag"))

	rec = do(h, http.MethodGet, "/v1/filters", env.key, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed ListFiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, compiled.ETag, listed.ETag)
	require.Len(t, listed.Filters, 2)
	assert.Equal(t, "outage", strings.Trim(strings.TrimPrefix(listed.Filters[1].Query, "subject:("), `")`))

	req := httptest.NewRequest(http.MethodGet, "/v1/filters", nil)
	req.Header.Set(auth.HeaderAPIKey, env.key)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	notModified := httptest.NewRecorder()
	h.ServeHTTP(notModified, req)
	assert.Equal(t, http.StatusNotModified, notModified.Code)
}

func TestHTTP_Export(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHTTP(t, env)

	rec := do(h, http.MethodPost, "/v1/export", env.key, testDocument)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/atom+xml")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `<apps:property name="label" value="newsletters"></apps:property>`)
	assert.Contains(t, body, `name="shouldArchive" value="true"`)
}

func TestHTTP_Errors(t *testing.T) {
	env := newTestEnv(t)
	h := newTestHTTP(t, env)

	tests := []struct {
		name   string
		method string
		target string
		key    string
		body   string
		status int
	}{
		{"missing key", http.MethodGet, "/v1/filters", "", "", http.StatusUnauthorized},
		{"bad key", http.MethodGet, "/v1/filters", "gfb-v1-nope", "", http.StatusUnauthorized},
		{"empty body", http.MethodPost, "/v1/compile", env.key, "", http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/v1/compile", env.key, "l:\n  data:\n    - or-from: a\n  actions: [explode]\n", http.StatusBadRequest},
		{"too large", http.MethodPost, "/v1/compile", env.key, strings.Repeat("x", 65*1024), http.StatusRequestEntityTooLarge},
		{"wrong method", http.MethodGet, "/v1/compile", env.key, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.target, tt.key, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
