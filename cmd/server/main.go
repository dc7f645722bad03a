package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/crypto/bcrypt"

	"bizu/backend/internal/cache"
	"bizu/backend/internal/config"
	"bizu/backend/internal/httpapi"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/saga"
	"bizu/backend/internal/service"
	"bizu/backend/internal/store"
	"bizu/backend/internal/store/memory"
	pgstore "bizu/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	log := logger.Log

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	location, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.BusinessTimezone).Msg("unknown business timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate schema")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory")
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.CacheEnabled() {
		redisCache, err := cache.NewRedisReportCache(cache.RedisOptions{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("redis misconfigured, using noop cache")
		case redisCache.Ping(ctx) != nil:
			log.Warn().Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		default:
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}

	var pinHash []byte
	if cfg.ReversalPIN != "" {
		pinHash, err = bcrypt.GenerateFromPassword([]byte(cfg.ReversalPIN), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("hash reversal pin")
		}
	} else {
		log.Warn().Msg("REVERSAL_PIN is empty; reversals only require an admin session")
	}

	policy := saga.BestEffort
	if cfg.SagaCompensate {
		policy = saga.Compensate
	}

	svc := service.New(repo, service.Options{
		Policy:          policy,
		Cache:           reportCache,
		CacheTTL:        time.Duration(cfg.AnalyticsCacheTTLSeconds) * time.Second,
		Location:        location,
		BusinessName:    cfg.BusinessName,
		PixKey:          cfg.PixKey,
		ReversalPINHash: pinHash,
		BootstrapAdmin:  cfg.BootstrapAdminEmail,
	})
	verifier := httpapi.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthJWTAudience)
	api := httpapi.New(svc, verifier, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("policy", policy.String()).Msg("bizu backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthJWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be set and at least 32 characters")
	}
	if cfg.BootstrapAdminEmail == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL must be set")
	}
	if cfg.ReversalPIN == "" {
		return nil
	}
	if len(cfg.ReversalPIN) < 4 {
		return fmt.Errorf("REVERSAL_PIN must be at least 4 digits")
	}
	for _, c := range cfg.ReversalPIN {
		if c < '0' || c > '9' {
			return fmt.Errorf("REVERSAL_PIN must contain digits only")
		}
	}
	if err := validatePINStrength(cfg.ReversalPIN); err != nil {
		return fmt.Errorf("REVERSAL_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"1234": true, "4321": true, "1212": true, "1122": true, "2580": true,
		"123456": true, "654321": true, "121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	// 1234, 98765 and the like.
	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
