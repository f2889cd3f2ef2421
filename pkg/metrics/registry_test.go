package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
	assert.Nil(t, NewFileServerMetrics())
	assert.Nil(t, NewTransportMetrics())
	assert.Nil(t, NewPrintServerMetrics())
	assert.Nil(t, NewMetadataMetrics())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitRegistryIdempotent(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	first := InitRegistry()
	second := InitRegistry()
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.True(t, IsEnabled())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
