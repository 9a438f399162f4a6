package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Names of the measurements populated by the dashboard and its clients.
const (
	OperationsCounter     = "notepay_dashboard_operations_total"
	FailuresCounter       = "notepay_dashboard_failures_total"
	RemoteCallHistogram   = "notepay_remote_call_duration_microseconds"
	TransactionsGauge     = "notepay_dashboard_transactions"
	DueRemindersHistogram = "notepay_due_reminders_per_check"
)

// Measurements collects metrics for prometheus.
type Measurements struct {
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Observer
	gauges     map[string]prometheus.Gauge
}

// CreateCounter creates a counter measurement.
func (m *Measurements) CreateCounter(name, description string) {
	m.counters[name] = promauto.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
}

// IncrementCounter increments the counter if a measurement with the given name exists.
func (m *Measurements) IncrementCounter(name string) bool {
	if v, ok := m.counters[name]; ok {
		v.Inc()
		return true
	}
	return false
}

// CreateHistogram creates a histogram measurement.
func (m *Measurements) CreateHistogram(name, description string) {
	m.histograms[name] = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: name,
		Help: description,
	})
}

// RecordHistogramTime records duration in the histogram if a measurement with the given name exists.
func (m *Measurements) RecordHistogramTime(name string, t time.Duration) bool {
	if v, ok := m.histograms[name]; ok {
		v.Observe(float64(t.Microseconds()))
		return true
	}
	return false
}

// RecordHistogramValue records the value in the histogram if a measurement with the given name exists.
func (m *Measurements) RecordHistogramValue(name string, f float64) bool {
	if v, ok := m.histograms[name]; ok {
		v.Observe(f)
		return true
	}
	return false
}

// CreateGauge creates a gauge measurement.
func (m *Measurements) CreateGauge(name, description string) {
	m.gauges[name] = promauto.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: description,
	})
}

// SetGauge sets the gauge to the value if a measurement with the given name exists.
func (m *Measurements) SetGauge(name string, f float64) bool {
	if v, ok := m.gauges[name]; ok {
		v.Set(f)
		return true
	}
	return false
}

// Run starts the server with the prometheus telemetry endpoint and returns
// the Measurements structure pre populated with the dashboard metrics.
// Default port of 2112 is used if the port value is set to 0.
func Run(ctx context.Context, cancel context.CancelFunc, port int) (*Measurements, error) {
	if port == 0 {
		port = 2112
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			cancel()
		}
	}()

	go func() {
		<-ctx.Done()
		ctxx, cancelClose := context.WithTimeout(context.Background(), time.Second*5)
		defer cancelClose()
		srv.Shutdown(ctxx)
	}()

	m := Measurements{
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Observer),
		gauges:     make(map[string]prometheus.Gauge),
	}
	m.CreateCounter(OperationsCounter, "The total number of dashboard operations.")
	m.CreateCounter(FailuresCounter, "The total number of failed dashboard operations.")
	m.CreateHistogram(RemoteCallHistogram, "Duration of remote store, pinning and chain calls.")
	m.CreateHistogram(DueRemindersHistogram, "Number of due reminders surfaced per check.")
	m.CreateGauge(TransactionsGauge, "Number of transactions held in the dashboard state.")

	return &m, nil
}
