package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application.
// It includes counters for bot commands and messages, a histogram for
// database queries and the CRM gateway, and reminder delivery counters.
type Metrics struct {
	CommandReceived        *prometheus.CounterVec   // Counter for received commands
	SentMessages           *prometheus.CounterVec   // Counter for sent messages
	NewUsers               prometheus.Counter       // Counter for users linked to a salesperson
	DBQueryDuration        *prometheus.HistogramVec // Histogram for database query durations
	ReportGeneration       *prometheus.HistogramVec // Histogram for report generation durations
	GatewayRequestDuration *prometheus.HistogramVec // Histogram for CRM API request durations
	RemindersSent          *prometheus.CounterVec   // Counter for reminder deliveries
	BatchDeleteFailures    prometheus.Counter       // Counter for leads that failed in batch deletes
	CacheOps               *prometheus.CounterVec   // Counter for redis cache operations
}

// NewMetrics creates a new Metrics instance with the provided Prometheus Registerer.
//
// Parameters:
//   - reg: A Prometheus Registerer used to register the metrics.
//
// Returns:
//   - A pointer to the newly created Metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CommandReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_commands_received_total",
			Help: "Total number of used commands",
		}, []string{"command"}), // command: /start, login, logout, search
		SentMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_messages_sent_total",
			Help: "Output bot activity",
		}, []string{"type"}), // type: text, edit, error, document
		NewUsers: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_new_users_total",
			Help: "Total number of telegram users linked to a salesperson",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaddesk_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'get_user', 'mark_reminder'
		ReportGeneration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "leaddesk_report_generation_duration_seconds",
			Help: "Duration of report generation.",
		}, []string{"format"}), // format: xlsx, csv
		GatewayRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaddesk_crm_request_duration_seconds",
			Help:    "Duration of CRM API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "outcome"}), // outcome: ok, api_error, transport_error
		RemindersSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_reminders_sent_total",
			Help: "Lead reminders pushed to salespersons",
		}, []string{"status"}), // status: sent, failed
		BatchDeleteFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_batch_delete_failures_total",
			Help: "Leads that could not be deleted during batch deletes",
		}),
		CacheOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_cache_operations_total",
			Help: "Redis cache operations of the bot session store",
		}, []string{"operation", "status"}), // get: hit, miss, error; set: success, error
	}
}
