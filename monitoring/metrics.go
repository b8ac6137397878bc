package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Ticket validation attempts by outcome",
		},
		[]string{"result", "reason"},
	)

	paymentAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_attempts_total",
			Help: "Payment attempts by method and outcome",
		},
		[]string{"method", "status"},
	)

	refundAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_attempts_total",
			Help: "Refund attempts by outcome and scope",
		},
		[]string{"status", "scope"},
	)

	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created",
		},
	)

	sweepProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_processed_total",
			Help: "Records processed by background sweeps",
		},
		[]string{"sweep"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Duration of external provider calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation", "outcome"},
	)
)

// TrackValidation records a validation outcome. reason is empty for valid
// results.
func TrackValidation(valid bool, reason string) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	ticketValidations.WithLabelValues(result, reason).Inc()
}

func TrackPayment(method, status string) {
	paymentAttempts.WithLabelValues(method, status).Inc()
}

func TrackRefund(status string, partial bool) {
	scope := "full"
	if partial {
		scope = "partial"
	}
	refundAttempts.WithLabelValues(status, scope).Inc()
}

func TrackOrderCreated() {
	ordersCreated.Inc()
}

func TrackSweep(sweep string, n int) {
	sweepProcessed.WithLabelValues(sweep).Add(float64(n))
}

func TrackProviderCall(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	providerCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on its own port, separate from the API server.
func Serve(addr string) {
	e := echo.New()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := http.ListenAndServe(addr, e); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
