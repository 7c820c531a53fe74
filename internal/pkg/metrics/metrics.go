// Package metrics concentra os contadores Prometheus do GoWatch.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados possíveis de uma decisão do rate limiter.
const (
	RateLimitAllowed  = "allowed"
	RateLimitDenied   = "denied"
	RateLimitFailOpen = "fail_open"
)

// Resultados possíveis de uma consulta ao cache de respostas.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Recorder é o contrato usado pelo limiter, pelo cache e pelo audit.
type Recorder interface {
	RecordRateLimit(action, outcome string)
	RecordCacheLookup(outcome string)
	RecordCacheInvalidation(deleted int64)
	RecordAuditDropped()
	RecordHTTPStatus(status int)
}

// Collector implementa Recorder sobre client_golang.
type Collector struct {
	rateLimit      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	auditDropped   prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector cria o Collector e registra as métricas no Registerer informado.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rateLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gowatch_rate_limit_decisions_total",
			Help: "Decisões do rate limiter por ação e resultado.",
		}, []string{"action", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gowatch_cache_lookups_total",
			Help: "Consultas ao cache de respostas por resultado.",
		}, []string{"outcome"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gowatch_cache_invalidated_keys_total",
			Help: "Chaves removidas por invalidação de prefixo.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gowatch_audit_dropped_total",
			Help: "Eventos de auditoria descartados por fila cheia.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gowatch_http_responses_total",
			Help: "Respostas HTTP por status.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(c.rateLimit, c.cacheLookups, c.cacheEvictions, c.auditDropped, c.httpStatus)
	return c
}

func (c *Collector) RecordRateLimit(action, outcome string) {
	c.rateLimit.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) RecordCacheLookup(outcome string) {
	c.cacheLookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCacheInvalidation(deleted int64) {
	c.cacheEvictions.Add(float64(deleted))
}

func (c *Collector) RecordAuditDropped() {
	c.auditDropped.Inc()
}

func (c *Collector) RecordHTTPStatus(status int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Nop descarta todas as métricas. Usado quando nenhum Recorder é injetado.
type Nop struct{}

func (Nop) RecordRateLimit(string, string) {}
func (Nop) RecordCacheLookup(string)       {}
func (Nop) RecordCacheInvalidation(int64)  {}
func (Nop) RecordAuditDropped()            {}
func (Nop) RecordHTTPStatus(int)           {}

// OrNop devolve r, ou Nop se r for nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler retorna o handler HTTP de scrape do Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
