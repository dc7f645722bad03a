package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisURL                 string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	AnalyticsCacheTTLSeconds int
	AuthJWTSecret            string
	AuthJWTAudience          string
	BootstrapAdminEmail      string
	ReversalPIN              string
	SagaCompensate           bool
	BusinessTimezone         string
	BusinessName             string
	PixKey                   string
	LogLevel                 string
}

// Load reads configuration from the environment, after merging an optional
// .env file. It never invents secrets: AUTH_JWT_SECRET and REVERSAL_PIN stay
// empty when unset so startup validation can reject them.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ANALYTICS_CACHE_TTL_SECONDS", 60)
	v.SetDefault("AUTH_JWT_AUDIENCE", "authenticated")
	v.SetDefault("SAGA_COMPENSATE", false)
	v.SetDefault("BUSINESS_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("BUSINESS_NAME", "BIZU DO BIGODE")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	ttl := v.GetInt("ANALYTICS_CACHE_TTL_SECONDS")
	if ttl < 1 {
		ttl = 60
	}

	return Config{
		Port:                     v.GetString("PORT"),
		AllowedOrigin:            v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		RedisURL:                 v.GetString("REDIS_URL"),
		RedisAddr:                v.GetString("REDIS_ADDR"),
		RedisPassword:            v.GetString("REDIS_PASSWORD"),
		RedisDB:                  v.GetInt("REDIS_DB"),
		AnalyticsCacheTTLSeconds: ttl,
		AuthJWTSecret:            strings.TrimSpace(v.GetString("AUTH_JWT_SECRET")),
		AuthJWTAudience:          strings.TrimSpace(v.GetString("AUTH_JWT_AUDIENCE")),
		BootstrapAdminEmail:      strings.ToLower(strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL"))),
		ReversalPIN:              strings.TrimSpace(v.GetString("REVERSAL_PIN")),
		SagaCompensate:           v.GetBool("SAGA_COMPENSATE"),
		BusinessTimezone:         v.GetString("BUSINESS_TIMEZONE"),
		BusinessName:             v.GetString("BUSINESS_NAME"),
		PixKey:                   strings.TrimSpace(v.GetString("PIX_KEY")),
		LogLevel:                 v.GetString("LOG_LEVEL"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) CacheEnabled() bool {
	return c.RedisURL != "" || c.RedisAddr != ""
}
