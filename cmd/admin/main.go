package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"gowatch/config"
	"gowatch/internal/domain"
	"gowatch/internal/pkg/audit"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/password"
	"gowatch/internal/pkg/token"
	"gowatch/internal/repository/userrepo"
	"gowatch/internal/repository/watchlistrepo"
	"gowatch/internal/service/userservice"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "gowatch-admin",
		Usage: "Administração de usuários do GoWatch",
		Commands: []*cli.Command{
			{
				Name:  "set-role",
				Usage: "Altera o papel de um usuário (user|admin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email do usuário", Required: true},
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "Novo papel: user ou admin", Required: true},
				},
				Action: setRole,
			},
			{
				Name:   "stats",
				Usage:  "Mostra os totais de usuários e itens",
				Action: stats,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("gowatch-admin: %v", err)
	}
}

// withService abre banco e auditoria, executa fn e drena a fila de auditoria.
func withService(ctx context.Context, fn func(*userservice.UserService) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logr := logger.NewLogger(cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseURL, logr)
	if err != nil {
		return err
	}
	defer db.Close()

	auditor, err := audit.NewFileWriter(cfg.AuditLogPath, audit.DefaultQueueSize, logr, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = auditor.Close(closeCtx)
	}()

	tokens, err := token.NewService(cfg.JWTSecretKey, cfg.JWTAlgorithm, cfg.TokenExpiry, nil)
	if err != nil {
		return err
	}

	svc := userservice.NewService(
		userrepo.NewUserRepository(db, cfg.DBTimeout, logr),
		watchlistrepo.NewWatchlistRepository(db, cfg.DBTimeout, logr),
		tokens,
		password.NewDefaultHasher(),
		logr,
		auditor,
	)
	return fn(svc)
}

func setRole(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	role := domain.UserRole(cmd.String("role"))

	return withService(ctx, func(svc *userservice.UserService) error {
		if err := svc.SetRole(ctx, email, role); err != nil {
			return err
		}
		fmt.Printf("✓ %s agora tem o papel %s\n", userservice.NormalizeEmail(email), role)
		return nil
	})
}

func stats(ctx context.Context, _ *cli.Command) error {
	return withService(ctx, func(svc *userservice.UserService) error {
		s, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("usuários: %d\nitens: %d\n", s.Users, s.Items)
		return nil
	})
}
