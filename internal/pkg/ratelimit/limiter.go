// Package ratelimit implementa o limitador de janela fixa sobre o store compartilhado.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
)

// DefaultTimeout limita cada chamada ao store quando nenhum valor é configurado.
const DefaultTimeout = 250 * time.Millisecond

// Counter é o subconjunto do store compartilhado usado pelo limiter.
// cache.Client satisfaz esta interface.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Policy é o orçamento de uma ação: Limit requisições por Window.
type Policy struct {
	Action string
	Limit  int
	Window time.Duration
}

func (p Policy) windowSeconds() int64 {
	s := int64(p.Window / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// Decision é o resultado de uma admissão.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset é o instante (epoch em segundos) em que a janela vira.
	Reset      int64
	RetryAfter time.Duration
	// Degraded indica que o store falhou e a requisição foi admitida sem contagem.
	Degraded bool
}

// Limiter conta requisições por (ação, cliente, janela).
type Limiter struct {
	store   Counter
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewLimiter cria o limiter. timeout limita cada chamada ao store; now pode ser nil.
func NewLimiter(store Counter, timeout time.Duration, now func() time.Time, log logger.Logger, rec metrics.Recorder) *Limiter {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Limiter{
		store:   store,
		timeout: timeout,
		now:     now,
		logger:  log,
		metrics: metrics.OrNop(rec),
	}
}

// Key monta a chave do contador da janela.
func Key(action, clientID string, window int64) string {
	return fmt.Sprintf("rl:%s:%s:%d", action, clientID, window)
}

// Allow registra uma requisição do cliente e decide se ela é admitida.
// Qualquer erro do store resulta em admissão (fail-open).
func (l *Limiter) Allow(ctx context.Context, p Policy, clientID string) Decision {
	now := l.now()
	size := p.windowSeconds()
	window := now.Unix() / size
	reset := (window + 1) * size

	decision := Decision{
		Limit: p.Limit,
		Reset: reset,
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	key := Key(p.Action, clientID, window)

	// 1. Incremento atômico da janela atual
	count, err := l.store.Incr(ctxTimeout, key)
	if err != nil {
		return l.failOpen(p, key, decision, err)
	}

	// 2. Primeira requisição da janela define a expiração (auto-limpeza)
	if count == 1 {
		if err := l.store.Expire(ctxTimeout, key, time.Duration(size)*time.Second); err != nil {
			// O contador já foi incrementado; sem TTL a chave só ficaria órfã.
			l.logger.Warn("Falha ao definir expiração do contador de rate limit.", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	remaining := int64(p.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	decision.Remaining = int(remaining)

	// 3. Acima do limite: negado
	if count > int64(p.Limit) {
		retry := time.Unix(reset, 0).Sub(now)
		if retry < 0 {
			retry = 0
		}
		decision.RetryAfter = retry
		l.metrics.RecordRateLimit(p.Action, metrics.RateLimitDenied)
		l.logger.Debug("Requisição negada pelo rate limit.", map[string]interface{}{
			"action": p.Action,
			"client": clientID,
			"count":  count,
		})
		return decision
	}

	decision.Allowed = true
	l.metrics.RecordRateLimit(p.Action, metrics.RateLimitAllowed)
	return decision
}

func (l *Limiter) failOpen(p Policy, key string, d Decision, err error) Decision {
	l.metrics.RecordRateLimit(p.Action, metrics.RateLimitFailOpen)
	l.logger.Warn("Store do rate limit indisponível; requisição admitida sem contagem.", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
	d.Allowed = true
	d.Degraded = true
	d.Remaining = p.Limit
	return d
}
