package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	certhandler "attest/internal/certificate/handler"
	certservice "attest/internal/certificate/service"
	"attest/internal/certificate/store"
	"attest/internal/chain"
	"attest/internal/chain/solana"
	jwttoken "attest/internal/jwt_token"
	"attest/internal/platform/config"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/logger"
	"attest/internal/platform/middleware"
	platformredis "attest/internal/platform/redis"
	httptransport "attest/internal/transport/http"
	verifycache "attest/internal/verify/cache"
	verifyhandler "attest/internal/verify/handler"
	verifyservice "attest/internal/verify/service"
	"attest/pkg/platform/audit"
	auditkafka "attest/pkg/platform/audit/kafka"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	certificates, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	serviceOpts := []certservice.Option{
		certservice.WithTokenSymbol(cfg.TokenSymbol),
	}
	if cfg.IssuerAddress != "" {
		serviceOpts = append(serviceOpts, certservice.WithIssuerAddress(cfg.IssuerAddress))
	}

	var chainService chain.Service
	if cfg.IssuerKey != "" {
		solanaClient, err := solana.New(solana.Config{
			RPCEndpoint:  cfg.SolanaRPCURL,
			AuthorityKey: cfg.IssuerKey,
		})
		if err != nil {
			log.Error("solana setup failed", "error", err)
			os.Exit(1)
		}
		chainService = solanaClient
		if cfg.IssuerAddress == "" {
			serviceOpts = append(serviceOpts, certservice.WithIssuerAddress(solanaClient.IssuerAddress()))
		}
		log.Info("chain backend configured", "issuer", solanaClient.IssuerAddress())
	} else {
		log.Warn("no issuer key configured; minting disabled, issuance still available")
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka audit setup failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = publisher.Close(flushCtx)
		}()
		serviceOpts = append(serviceOpts, certservice.WithAudit(publisher))
	} else {
		serviceOpts = append(serviceOpts, certservice.WithAudit(audit.NewMemoryStore()))
	}

	coordinator := certservice.New(certificates, chainService, log, serviceOpts...)

	var cache verifyservice.Cache
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = verifycache.New(redisClient, log)
		log.Info("verification cache enabled")
	}
	verifier := verifyservice.New(certificates, cache)

	var auth func(http.Handler) http.Handler
	if cfg.JWTSigningKey != "" {
		auth = middleware.RequireAuth(jwttoken.NewValidator(cfg.JWTSigningKey, "attest"), log)
	}

	router := httptransport.NewRouter(
		log,
		certhandler.New(coordinator, log, auth),
		verifyhandler.New(verifier),
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting attest server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, func() { _ = db.Close() }, nil
}
