package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auth-actions/internal/application/verification"
	"github.com/auth-actions/internal/config"
	"github.com/auth-actions/internal/infrastructure/dynamo"
	resendinfra "github.com/auth-actions/internal/infrastructure/resend"
	"github.com/auth-actions/internal/infrastructure/smtp"
	"github.com/auth-actions/internal/infrastructure/supabase"
	transporthttp "github.com/auth-actions/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration rejected", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		slog.Error("dynamodb client", "err", err)
		os.Exit(1)
	}
	// Creates missing tables; the users table only backs the dynamo identity provider.
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, cfg.IdentityProvider == config.IdentityProviderDynamo)

	deps := verification.Deps{
		Codes:      dynamo.NewCodeRepo(dynamoClient, cfg.DynamoTables.VerificationCodes),
		AppName:    cfg.AppName,
		CodeTTL:    cfg.CodeTTL,
		ClaimLease: cfg.CodeClaimLease,
	}
	switch cfg.IdentityProvider {
	case config.IdentityProviderDynamo:
		deps.Identity = dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	default:
		client, err := supabase.NewClient(cfg)
		if err != nil {
			slog.Error("supabase client", "err", err)
			os.Exit(1)
		}
		deps.Identity = client
	}
	switch cfg.EmailProvider {
	case config.EmailProviderResend:
		deps.Mailer = resendinfra.NewMailer(cfg)
	default:
		deps.Mailer = smtp.NewMailer(cfg)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Issuer:   verification.NewIssuer(deps),
		Verifier: verification.NewVerifier(deps),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"identity_provider", cfg.IdentityProvider, "email_provider", cfg.EmailProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
