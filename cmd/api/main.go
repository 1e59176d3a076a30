package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"fan-vote/internal/config"
	"fan-vote/internal/db"
	"fan-vote/internal/domain"
	apihttp "fan-vote/internal/http"
	"fan-vote/internal/idp"
	"fan-vote/internal/repository"
	"fan-vote/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("schema bootstrap", zap.Error(err))
	}

	memberRepo := repository.NewPgMemberRepository(pool)
	voteRepo := repository.NewPgVoteRepository(pool)
	tallyRepo := repository.NewPgTallyRepository(pool)
	artistRepo := repository.NewPgArtistRepository(pool)

	var provider idp.Provider = idp.NewDisabledProvider("identity provider not configured")
	if cfg.AuthBaseURL != "" {
		provider = idp.NewHTTPClient(cfg.AuthBaseURL, cfg.AuthAPIKey)
	}

	var otpLimiter service.OTPRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, time.Duration(cfg.OTPTTLMinutes)*time.Minute, cfg.OTPMaxPerWindow)
		}
		cancel()
	}

	location, err := time.LoadLocation(cfg.VoteTimezone)
	if err != nil {
		logger.Warn("invalid vote timezone, falling back to UTC", zap.String("tz", cfg.VoteTimezone), zap.Error(err))
		location = time.UTC
	}

	allocator := service.NewIDAllocator(logger, memberRepo)
	registry := service.NewRegistryGateway(logger, memberRepo, allocator)
	resolver := service.NewSessionResolver(logger, provider, registry, time.Duration(cfg.SessionProbeTimeoutSeconds)*time.Second)
	otpVerifier := service.NewOTPVerifier(logger, provider, otpLimiter, time.Duration(cfg.OTPTTLMinutes)*time.Minute)
	tallyUpdater := service.NewTallyUpdater(logger, tallyRepo)
	voteSvc := service.NewVoteService(logger, voteRepo, artistRepo, tallyUpdater, otpVerifier, cfg.VoteWeight, location, cfg.VoteMessageMax)

	resolver.Subscribe(func(identity domain.ResolvedIdentity) {
		logger.Debug("identity resolved", zap.String("state", string(identity.State)))
	})

	sessionHandler := apihttp.NewSessionHandler(logger, provider, resolver)
	memberHandler := apihttp.NewMemberHandler(logger, registry, resolver)
	voteHandler := apihttp.NewVoteHandler(logger, voteSvc, otpVerifier, resolver, artistRepo, tallyRepo)
	router := apihttp.NewRouter(logger, cfg.AuthJWTSecret, sessionHandler, memberHandler, voteHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
