package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	WebhookRequests   *prometheus.CounterVec // labels: event_type, outcome={ok,unhandled,auth_error,bad_request,error}
	SignatureFailures prometheus.Counter

	// CRM API metrics.
	CRMRequests        *prometheus.CounterVec   // labels: operation={search,create_contact,create_call,create_message}, outcome={success,error}
	CRMRequestDuration *prometheus.HistogramVec // labels: operation
	ContactsCreated    prometheus.Counter
	ActivitiesLogged   *prometheus.CounterVec // labels: kind={call,message}

	// Lead intake metrics.
	LeadsSubmitted *prometheus.CounterVec // labels: source

	// Office notification metrics.
	NotificationsPublished    *prometheus.CounterVec // labels: channel={sms,email}
	NotificationsDelivered    *prometheus.CounterVec // labels: channel
	NotificationsDeadLettered prometheus.Counter

	// Storm history metrics.
	StormLookups *prometheus.CounterVec // labels: provider={simulated,noaa}, outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WebhookRequests,
		m.SignatureFailures,
		m.CRMRequests,
		m.CRMRequestDuration,
		m.ContactsCreated,
		m.ActivitiesLogged,
		m.LeadsSubmitted,
		m.NotificationsPublished,
		m.NotificationsDelivered,
		m.NotificationsDeadLettered,
		m.StormLookups,
		m.GeocodeRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "webhook_requests_total",
			Help:      "Inbound OpenPhone webhook requests by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		SignatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "webhook_signature_failures_total",
			Help:      "Webhook requests rejected for a missing, malformed, or mismatched signature.",
		}),
		CRMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "crm_requests_total",
			Help:      "CRM API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		CRMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lead_intake",
			Name:      "crm_request_duration_seconds",
			Help:      "CRM API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		ContactsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "crm_contacts_created_total",
			Help:      "Contacts created in the CRM by find-or-create resolution.",
		}),
		ActivitiesLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "crm_activities_logged_total",
			Help:      "Call and message activities appended to CRM contacts.",
		}, []string{"kind"}),
		LeadsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "leads_submitted_total",
			Help:      "Website lead form submissions accepted, by source.",
		}, []string{"source"}),
		NotificationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "notifications_published_total",
			Help:      "Office notifications published to the outbox topic.",
		}, []string{"channel"}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "notifications_delivered_total",
			Help:      "Office notifications delivered by the worker.",
		}, []string{"channel"}),
		NotificationsDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "notifications_dead_lettered_total",
			Help:      "Notifications routed to the DLQ after exhausting retries.",
		}),
		StormLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "storm_lookups_total",
			Help:      "Storm history lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "geocode_requests_total",
			Help:      "Mapbox geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
