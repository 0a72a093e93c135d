package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusConflict, "would create a cycle", map[string]interface{}{
		"reason": "cycle",
		"status": 200, // cannot override standard members
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cycle", body["reason"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, "Conflict", body["title"])
	assert.Equal(t, "would create a cycle", body["detail"])
}

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Reports"}`))
	require.NoError(t, ParseJSON(httptest.NewRecorder(), req, &dest))
	assert.Equal(t, "Reports", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &dest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &dest))
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&public=true&bad=x", nil)

	n, err := QueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = QueryInt(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = QueryInt(req, "bad", 0)
	assert.Error(t, err)

	b, err := QueryBool(req, "public")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)
	b, err = QueryBool(req, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "192.0.2.7", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
