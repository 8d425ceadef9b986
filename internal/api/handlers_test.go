package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakflo/policystore/internal/lifecycle"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	controller := lifecycle.New(nil, nil, nil, nil, nil, nil, nil, lifecycle.Config{})
	s, err := New(DefaultConfig(), controller, nil, nil)
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	w := doRequest(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
}

func TestInitialiseRejectsMissingFields(t *testing.T) {
	s := testServer(t)
	w := doRequest(s, http.MethodPost, "/policy/initialise", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}

func TestUpdateRejectsMissingApprover(t *testing.T) {
	s := testServer(t)
	w := doRequest(s, http.MethodPost, "/policy/update", map[string]any{
		"org_policy_id":  "11111111-1111-1111-1111-111111111111",
		"organization_id": "22222222-2222-2222-2222-222222222222",
		"html_content":   "<p>hi</p>",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveRejectsMissingDecision(t *testing.T) {
	s := testServer(t)
	w := doRequest(s, http.MethodPost, "/policy/approve", map[string]any{
		"policy_version_id": "11111111-1111-1111-1111-111111111111",
		"approver_id":       "22222222-2222-2222-2222-222222222222",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
