package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// the validate endpoint touches no storage, nil deps are fine here
	_, err := NewApi(nil, nil, nil, nil, nil, nil, nil, router)
	require.NoError(t, err)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidateSigmaRuleEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("valid document", func(t *testing.T) {
		doc := `
title: SSH Brute Force
logsource:
  product: linux
  service: sshd
detection:
  selection:
    message|contains: "Failed password"
  condition: selection
`
		w := postJSON(t, router, "/v1/sigma-rules/validate", map[string]any{"document": doc})
		require.Equal(t, http.StatusOK, w.Code)

		var resp validateRuleResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Empty(t, resp.Errors)
	})

	t.Run("invalid document collects every error", func(t *testing.T) {
		doc := `
level: catastrophic
detection:
  selection:
    field: value
  condition: selection and ghost
`
		w := postJSON(t, router, "/v1/sigma-rules/validate", map[string]any{"document": doc})
		require.Equal(t, http.StatusOK, w.Code)

		var resp validateRuleResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Valid)
		assert.GreaterOrEqual(t, len(resp.Errors), 3)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sigma-rules/validate", bytes.NewReader([]byte("{")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
