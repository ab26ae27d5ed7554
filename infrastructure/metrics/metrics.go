// Package metrics records publishing counters in the VictoriaMetrics
// registry; labels are part of the metric name.
package metrics

import (
	"io"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// RecordAttempt counts one platform attempt by outcome.
func RecordAttempt(platform string, success bool) {
	metricName := `brandhub_publish_attempts_total{platform="` + platform + `",success="` + strconv.FormatBool(success) + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
}

// ObserveAttemptDuration records how long one platform attempt took.
func ObserveAttemptDuration(platform string, started time.Time) {
	metrics.GetOrCreateHistogram(`brandhub_publish_attempt_duration_seconds{platform="` + platform + `"}`).UpdateDuration(started)
}

// RecordContentStatus counts the aggregated status written after a publish call.
func RecordContentStatus(status string) {
	metrics.GetOrCreateCounter(`brandhub_content_status_total{status="` + status + `"}`).Inc()
}

// RecordTokenRefresh counts refreshed credentials and refresh persistence failures.
func RecordTokenRefresh(platform string, persisted bool) {
	metricName := `brandhub_token_refresh_total{platform="` + platform + `",persisted="` + strconv.FormatBool(persisted) + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
}

// RecordScheduledRun counts scheduled items processed and published for a brand run.
func RecordScheduledRun(processed, published int) {
	metrics.GetOrCreateCounter(`brandhub_scheduled_items_total{outcome="processed"}`).Add(processed)
	metrics.GetOrCreateCounter(`brandhub_scheduled_items_total{outcome="published"}`).Add(published)
}

// RecordHTTPRequest counts served API requests.
func RecordHTTPRequest(method, route string, status int) {
	metricName := `brandhub_http_requests_total{method="` + method + `",route="` + route + `",status="` + strconv.Itoa(status) + `"}`
	metrics.GetOrCreateCounter(metricName).Inc()
}

// WritePrometheus writes every registered metric in Prometheus text format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
