package obsv

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPExposesCounter(t *testing.T) {
	m := New("policystore_test_http")
	m.RecordHTTP("/policy/update", "success", 12*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "policystore_test_http_http_requests_total")
}

func TestRecordVersionCreatedTracksCheckpoint(t *testing.T) {
	m := New("policystore_test_version")
	m.RecordVersionCreated("draft", true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "policystore_test_version_version_created_total")
	assert.Contains(t, body, "policystore_test_version_version_checkpoints_written_total")
}

func TestCacheHitMissCounters(t *testing.T) {
	m := New("policystore_test_cache")
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "policystore_test_cache_cache_hits_total 1")
	assert.Contains(t, w.Body.String(), "policystore_test_cache_cache_misses_total 2")
}
