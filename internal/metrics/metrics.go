package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "site", Name: "document_views_total", Help: "Number of rendered document views by document id."},
		[]string{"document"},
	)
	ContactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "site", Name: "contact_submissions_total", Help: "Number of contact form submissions by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentViews)
	reg.MustRegister(ContactSubmissions)
}
