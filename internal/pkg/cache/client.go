package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client define o contrato do store compartilhado usado pelo rate limiter (contadores)
// e pelo cache de respostas. Limiter e cache podem receber o mesmo Client ou Clients diferentes.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr incrementa atomicamente o contador e devolve o novo valor.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// DeleteByPattern remove todas as chaves que casam com o glob (sintaxe do MATCH do Redis)
	// e devolve quantas foram removidas. Nenhuma chave casada não é erro.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
}

// ErrCacheMiss é retornado quando a chave não é encontrada no cache.
var ErrCacheMiss = redis.Nil

// RedisConfig agrupa os parâmetros de conexão com o Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Timeout limita dial/leitura/escrita no nível do driver.
	Timeout time.Duration
}

// RedisClient é a implementação concreta da interface Client, usando Redis.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient cria e retorna uma nova instância do cliente Redis.
// Uma falha no PING inicial não impede a criação: limiter e cache operam em fail-open
// e voltam a funcionar quando o Redis estiver disponível.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1, // sem retry automático: uma falha degrada apenas a requisição atual
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := &RedisClient{rdb: rdb}
	return client, client.Ping(ctx)
}

// NewRedisClientFromRedis embrulha um *redis.Client já configurado.
func NewRedisClientFromRedis(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

// Get recupera o valor associado a uma chave.
func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()

	// Se a chave não existir no Redis, retornamos o erro exportado (redis.Nil)
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set define um valor para uma chave com um tempo de expiração.
func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Delete remove uma chave do cache.
func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Incr executa INCR.
func (c *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

// Expire executa EXPIRE.
func (c *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// DeleteByPattern percorre o keyspace com SCAN (não bloqueia o Redis como KEYS)
// e remove as chaves encontradas em lotes.
func (c *RedisClient) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	const batchSize = 100

	var deleted int64
	batch := make([]string, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, pattern, batchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Ping verifica a disponibilidade do Redis.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close fecha o pool de conexões.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

// EscapePattern escapa os metacaracteres de glob do Redis (*, ?, [, ], \)
// para que um segmento de chave (e.g. um email) seja casado literalmente.
func EscapePattern(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
