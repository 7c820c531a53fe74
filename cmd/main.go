package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gowatch/config"
	_ "gowatch/docs"
	"gowatch/internal/app"
	"gowatch/internal/pkg/audit"
	"gowatch/internal/pkg/cache"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
)

// @title GoWatch API
// @version 1.0
// @description API de watchlist pessoal com autenticação JWT, rate limit e cache.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	if err := godotenv.Load(); err != nil {
		// as variáveis podem estar no ambiente do sistema (ex: Docker)
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Inicialização
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Erro de Configuração: %v", err)
	}
	logr := logger.NewLogger(cfg.LogLevel)
	logr.Info("Inicializando serviço GoWatch...", map[string]interface{}{"env": cfg.Environment})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados
	db, err := database.Open(cfg.DatabaseURL, logr)
	if err != nil {
		logr.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(context.Background(), db, logr); err != nil {
			logr.Fatal("Falha ao aplicar migrações.", err)
		}
	}

	// B. Store compartilhado (Redis). Indisponível na partida não impede o serviço (fail-open).
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.CacheTimeout,
	})
	if err != nil {
		logr.Warn("Redis indisponível na inicialização; rate limit e cache operando em fail-open.", map[string]interface{}{"error": err.Error()})
	} else {
		logr.Info("Conexão Redis estabelecida.", nil)
	}
	defer redisClient.Close()

	// C. Auditoria
	auditor, err := audit.NewFileWriter(cfg.AuditLogPath, audit.DefaultQueueSize, logr, rec)
	if err != nil {
		logr.Fatal("Falha ao abrir o arquivo de auditoria.", err)
	}

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	application, err := app.Build(app.Deps{
		Config:   cfg,
		DB:       db,
		Store:    redisClient,
		Logger:   logr,
		Audit:    auditor,
		Metrics:  rec,
		Gatherer: reg,
	})
	if err != nil {
		logr.Fatal("Falha ao montar a aplicação.", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      application.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Execução e Graceful Shutdown
	go func() {
		logr.Info("Servidor GoWatch ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logr.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error("Desligamento do servidor forçado.", err)
	}

	// eventos de auditoria pendentes são gravados antes de sair
	if err := auditor.Close(ctx); err != nil {
		logr.Error("Fila de auditoria não foi drenada por completo.", err)
	}

	logr.Info("Servidor encerrado com sucesso.", nil)
}
