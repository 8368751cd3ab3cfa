package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Board
	ItemMutations *prometheus.CounterVec

	// Live feed
	LiveClients    prometheus.Gauge
	LiveBroadcasts prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housepoints",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "housepoints",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "housepoints",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "housepoints",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housepoints",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		ItemMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "housepoints",
				Subsystem: "board",
				Name:      "item_mutations_total",
				Help:      "Item add/update/delete attempts by outcome.",
			},
			[]string{"op", "result"}, // result=ok|error
		),
		LiveClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "housepoints",
				Subsystem: "live",
				Name:      "clients",
				Help:      "Connected live standings clients.",
			},
		),
		LiveBroadcasts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "housepoints",
				Subsystem: "live",
				Name:      "broadcasts_total",
				Help:      "Standings snapshots pushed to live clients.",
			},
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.ItemMutations, p.LiveClients, p.LiveBroadcasts)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// The helpers below accept a nil *Prom so tests can skip metrics wiring.

func (p *Prom) ObserveItemMutation(op string, err error) {
	if p == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	p.ItemMutations.WithLabelValues(op, result).Inc()
}

func (p *Prom) SetLiveClients(n int) {
	if p == nil {
		return
	}
	p.LiveClients.Set(float64(n))
}

func (p *Prom) IncLiveBroadcast() {
	if p == nil {
		return
	}
	p.LiveBroadcasts.Inc()
}
