package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking and appointment flows.
type BookingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	appointmentsTotal *prometheus.CounterVec
	bookingLatency    *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinigo",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Total booking requests by payment type and outcome",
		}, []string{"payment_type", "status"}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinigo",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Total appointment status transitions",
		}, []string{"transition"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinigo",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of booking request processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"payment_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.appointmentsTotal, m.bookingLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(paymentType, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(paymentType, status).Inc()
}

func (m *BookingMetrics) ObserveTransition(transition string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(transition).Inc()
}

func (m *BookingMetrics) ObserveBookingLatency(paymentType string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingLatency.WithLabelValues(paymentType).Observe(seconds)
}

// QueueMetrics exposes counters/gauges for the check-in queue.
type QueueMetrics struct {
	actionsTotal  *prometheus.CounterVec
	waitingGauge  *prometheus.GaugeVec
	realtimeConns prometheus.Gauge
}

func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	m := &QueueMetrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinigo",
			Subsystem: "queue",
			Name:      "actions_total",
			Help:      "Total queue actions by verb and outcome",
		}, []string{"action", "status"}),
		waitingGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clinigo",
			Subsystem: "queue",
			Name:      "waiting",
			Help:      "Patients currently waiting per doctor",
		}, []string{"doctor_id"}),
		realtimeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinigo",
			Subsystem: "queue",
			Name:      "realtime_connections",
			Help:      "Open realtime feed connections",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.actionsTotal, m.waitingGauge, m.realtimeConns)
	return m
}

func (m *QueueMetrics) ObserveAction(action, status string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, status).Inc()
}

func (m *QueueMetrics) SetWaiting(doctorID string, n float64) {
	if m == nil {
		return
	}
	m.waitingGauge.WithLabelValues(doctorID).Set(n)
}

func (m *QueueMetrics) ConnOpened() {
	if m == nil {
		return
	}
	m.realtimeConns.Inc()
}

func (m *QueueMetrics) ConnClosed() {
	if m == nil {
		return
	}
	m.realtimeConns.Dec()
}
