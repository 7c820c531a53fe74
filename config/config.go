package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gowatch/internal/pkg/ratelimit"
)

// Config armazena todas as configurações do serviço GoWatch.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Banco de Dados (postgres:// ou sqlite:///caminho)
	DatabaseURL string
	DBTimeout   time.Duration
	AutoMigrate bool

	// Store compartilhado (Redis): contadores do rate limit e cache de respostas
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTimeout  time.Duration
	CacheTTL      time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	JWTAlgorithm string
	TokenExpiry  time.Duration

	// Auditoria
	AuditLogPath string

	// TrustProxy aceita X-Forwarded-For/X-Real-IP como endereço do cliente.
	TrustProxy bool

	// Rate Limiting, por ação
	RateLimits map[string]ratelimit.Policy
}

// LoadConfig carrega as configurações das variáveis de ambiente e, se existir,
// de um config.yaml no diretório atual. O .env é carregado antes, em cmd/.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// 1. Padrões
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "sqlite:///./gowatch.db")
	v.SetDefault("db_timeout_sec", 5)
	v.SetDefault("auto_migrate", true)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_timeout_ms", 250)
	v.SetDefault("cache_ttl_sec", 30)
	v.SetDefault("jwt_secret_key", "")
	v.SetDefault("jwt_algorithm", "HS256")
	v.SetDefault("jwt_expiry_min", 60)
	v.SetDefault("audit_log_path", "audit.log")
	v.SetDefault("trust_proxy", false)

	defaults := ratelimit.DefaultPolicies()
	for _, action := range ratelimit.Actions {
		v.SetDefault(rateLimitKey(action, "max"), defaults[action].Limit)
		v.SetDefault(rateLimitKey(action, "window_sec"), int(defaults[action].Window/time.Second))
	}

	// 2. Arquivo opcional
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("falha ao ler config.yaml: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Environment: v.GetString("env"),
		LogLevel:    v.GetString("log_level"),

		DatabaseURL: v.GetString("database_url"),
		DBTimeout:   time.Duration(v.GetInt("db_timeout_sec")) * time.Second,
		AutoMigrate: v.GetBool("auto_migrate"),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		CacheTimeout:  time.Duration(v.GetInt("cache_timeout_ms")) * time.Millisecond,
		CacheTTL:      time.Duration(v.GetInt("cache_ttl_sec")) * time.Second,

		JWTSecretKey: v.GetString("jwt_secret_key"),
		JWTAlgorithm: strings.ToUpper(v.GetString("jwt_algorithm")),
		TokenExpiry:  time.Duration(v.GetInt("jwt_expiry_min")) * time.Minute,

		AuditLogPath: v.GetString("audit_log_path"),
		TrustProxy:   v.GetBool("trust_proxy"),

		RateLimits: make(map[string]ratelimit.Policy, len(ratelimit.Actions)),
	}

	for _, action := range ratelimit.Actions {
		cfg.RateLimits[action] = ratelimit.Policy{
			Action: action,
			Limit:  v.GetInt(rateLimitKey(action, "max")),
			Window: time.Duration(v.GetInt(rateLimitKey(action, "window_sec"))) * time.Second,
		}
	}

	return cfg, cfg.Validate()
}

// rateLimitKey corresponde a RATE_LIMIT_<AÇÃO>_MAX e RATE_LIMIT_<AÇÃO>_WINDOW_SEC.
func rateLimitKey(action, suffix string) string {
	return "rate_limit_" + action + "_" + suffix
}

// Validate verifica os campos obrigatórios e os intervalos.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY deve ser definida"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM inválido: %q", c.JWTAlgorithm))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL deve ser definida"))
	}
	if c.TokenExpiry < 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_MIN não pode ser negativo"))
	}
	if c.DBTimeout <= 0 {
		errs = append(errs, errors.New("DB_TIMEOUT_SEC deve ser positivo"))
	}
	if c.CacheTimeout <= 0 {
		errs = append(errs, errors.New("CACHE_TIMEOUT_MS deve ser positivo"))
	}
	for _, action := range ratelimit.Actions {
		p := c.RateLimits[action]
		if p.Limit < 1 || p.Window < time.Second {
			errs = append(errs, fmt.Errorf("orçamento de rate limit inválido para %s: %d/%s", action, p.Limit, p.Window))
		}
	}
	return errors.Join(errs...)
}

// IsProduction indica ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
