package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsSingleton(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	a := NewCollector("test")
	b := NewCollector("test")
	assert.Same(t, a, b)
}

func TestCollector_ObserveQueryRecordsErrorsByKind(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	c := NewCollector("test")
	c.ObserveQuery("get_node", 5*time.Millisecond, "not_found")

	count := testutil.ToFloat64(c.QueryErrors.WithLabelValues("get_node", "not_found"))
	assert.Equal(t, float64(1), count)
}

func TestCollector_HandlerServesExposition(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	c := NewCollector("test")
	c.NodesProcessed.Add(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_nodes_processed_total 3")
}
