package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)

	before := testutil.ToFloat64(DocumentViews.WithLabelValues("resume"))
	DocumentViews.WithLabelValues("resume").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(DocumentViews.WithLabelValues("resume")))

	ContactSubmissions.WithLabelValues("sent").Inc()
	count, err := testutil.GatherAndCount(reg, "site_document_views_total", "site_contact_submissions_total")
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 2)
}
