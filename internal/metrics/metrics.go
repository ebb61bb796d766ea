// Package metrics define los collectors Prometheus del servicio. Vive aparte
// para que tokens, auth y http los usen sin ciclos de import.
package metrics

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TokensIssued cuenta tokens generados por canal (email|sms).
	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weasl_tokens_issued_total",
		Help: "Tokens de un solo uso generados",
	}, []string{"channel"})

	// TokensConsumed cuenta consumes por canal y resultado (ok|rejected|malformed).
	TokensConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weasl_tokens_consumed_total",
		Help: "Intentos de consumo de tokens por resultado",
	}, []string{"channel", "result"})

	// TokenCollisions cuenta redraws por colisión al generar.
	TokenCollisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weasl_token_collisions_total",
		Help: "Colisiones al generar tokens (redraw)",
	}, []string{"channel"})

	// DeliveryResults cuenta envíos del notifier por canal y resultado (ok|failed).
	DeliveryResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weasl_delivery_total",
		Help: "Envíos de tokens por canal y resultado",
	}, []string{"channel", "result"})

	// SessionsIssued cuenta sesiones emitidas por método (email|sms|google).
	SessionsIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weasl_sessions_issued_total",
		Help: "Sesiones emitidas por método de login",
	}, []string{"method"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registra los collectors en reg (default si nil), ignorando duplicados.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		TokensIssued, TokensConsumed, TokenCollisions, DeliveryResults, SessionsIssued,
		HTTPRequests, HTTPDuration,
	} {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPool expone gauges del pool de PostgreSQL.
func RegisterPool(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}
	return registerCollector(reg, &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	})
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

type poolCollector struct {
	pool         *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(s.TotalConns()))
}
