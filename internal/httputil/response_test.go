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

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondSuccess(rec, http.StatusOK, "done", map[string]int{"n": 1})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	assert.Equal(t, "1", body["status"])
	assert.Equal(t, "done", body["message"])
	assert.Equal(t, false, body["error"])
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, body["data"])
}

func TestRespondSuccessNilData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondSuccess(rec, http.StatusOK, "done", nil)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, map[string]interface{}{}, body["data"])
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"not found", http.StatusNotFound, StatusNotFound},
		{"bad request", http.StatusBadRequest, StatusFail},
		{"internal", http.StatusInternalServerError, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tt.status, "nope")

			assert.Equal(t, tt.status, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.Equal(t, tt.want, body["status"])
			assert.Equal(t, true, body["error"])
			assert.Equal(t, "nope", body["message"])
			assert.Equal(t, map[string]interface{}{}, body["data"])
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc", nil)

	v, err := QueryInt(r, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = QueryInt(r, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = QueryInt(r, "limit", 1)
	assert.Error(t, err)
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, ParseJSON(rec, r, &dest))
	assert.Equal(t, "a", dest.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"path":"x"}`))
	assert.Error(t, ParseJSON(rec, r, &dest))
}
