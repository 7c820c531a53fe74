package cache

import (
	"context"
	"errors"
	"time"

	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
)

// DefaultResponseTTL limita por quanto tempo uma resposta cacheada pode ficar desatualizada
// quando uma invalidação falha.
const DefaultResponseTTL = 30 * time.Second

// ResponseCache guarda corpos de resposta serializados sobre um Client.
// Política fail-open: erro de leitura vira miss; erros de escrita e invalidação são
// registrados em log e ignorados.
type ResponseCache struct {
	client  Client
	ttl     time.Duration
	timeout time.Duration
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewResponseCache cria o cache. timeout limita cada chamada ao store.
func NewResponseCache(client Client, ttl, timeout time.Duration, log logger.Logger, rec metrics.Recorder) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
		logger:  log,
		metrics: metrics.OrNop(rec),
	}
}

// TTL devolve a expiração aplicada às entradas.
func (c *ResponseCache) TTL() time.Duration { return c.ttl }

func (c *ResponseCache) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get devolve o valor cacheado e true em caso de HIT.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctxTimeout, cancel := c.bounded(ctx)
	defer cancel()

	val, err := c.client.Get(ctxTimeout, key)
	switch {
	case err == nil:
		c.metrics.RecordCacheLookup(metrics.CacheHit)
		return []byte(val), true
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordCacheLookup(metrics.CacheMiss)
	default:
		c.metrics.RecordCacheLookup(metrics.CacheError)
		c.logger.Warn("Falha ao ler do cache; seguindo para o banco.", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return nil, false
}

// Set grava o valor com o TTL do cache.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte) {
	ctxTimeout, cancel := c.bounded(ctx)
	defer cancel()

	if err := c.client.Set(ctxTimeout, key, value, c.ttl); err != nil {
		c.logger.Warn("Falha ao gravar no cache.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// InvalidatePrefix remove todas as entradas cuja chave começa com prefix e devolve
// quantas foram removidas. Chamadas repetidas são seguras e devolvem 0.
// A invalidação não é cancelada junto com a requisição que a disparou.
func (c *ResponseCache) InvalidatePrefix(ctx context.Context, prefix string) int64 {
	ctxTimeout, cancel := c.bounded(context.WithoutCancel(ctx))
	defer cancel()

	deleted, err := c.client.DeleteByPattern(ctxTimeout, EscapePattern(prefix)+"*")
	if err != nil {
		c.logger.Warn("Falha ao invalidar cache; entradas podem ficar desatualizadas até o TTL.", map[string]interface{}{
			"prefix": prefix,
			"ttl":    c.ttl.String(),
			"error":  err.Error(),
		})
		return 0
	}
	c.metrics.RecordCacheInvalidation(deleted)
	return deleted
}
