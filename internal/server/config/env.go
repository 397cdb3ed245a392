package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/timex"
	"github.com/joho/godotenv"
)

// loadDotEnv is a seam so tests do not pick up a developer's .env file.
var loadDotEnv = func() error {
	return godotenv.Load()
}

// parseEnv overlays Config with environment variables. A .env file in the
// working directory is loaded first; variables already set win over it.
// Malformed numeric or duration values panic, like malformed flags do.
func parseEnv(cfg *Config) {
	if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		cfg.EndpointAddrHTTP = ":" + strings.TrimPrefix(port, ":")
	}
	envString("HTTP_ADDR", &cfg.EndpointAddrHTTP)
	envString("GRPC_ADDR", &cfg.EndpointAddrGRPC)
	envString("APP_ENV", &cfg.Environment)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("STORE_DRIVER", &cfg.StoreDriver)
	envString("DATABASE_DSN", &cfg.DatabaseDSN)
	envString("MONGODB_URI", &cfg.MongoURI)
	envString("MONGODB_DATABASE", &cfg.MongoDatabase)
	envString("JWT_SECRET", &cfg.SecretKey)
	envDuration("JWT_EXPIRE", &cfg.TokenValidityDuration)
	envDuration("PASSWORD_RESET_EXPIRE", &cfg.PasswordResetValidityDuration)
	envInt("BCRYPT_ROUNDS", &cfg.BcryptCost)
	envString("CORS_ORIGIN", &cfg.CORSOrigin)
	envDuration("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow)
	envInt("RATE_LIMIT_MAX_REQUESTS", &cfg.RateLimitMax)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)
	envInt("REDIS_DB", &cfg.RedisDB)
	envString("S3_ROOT_USER", &cfg.S3RootUser)
	envString("S3_ROOT_PASSWORD", &cfg.S3RootPassword)
	envString("S3_BUCKET", &cfg.S3Bucket)
	envString("S3_REGION", &cfg.S3Region)
	envString("S3_BASE_ENDPOINT", &cfg.S3BaseEndpoint)
	envString("S3_PUBLIC_URL", &cfg.S3PublicURL)
	envString("ADMIN_NAME", &cfg.AdminName)
	envString("ADMIN_EMAIL", &cfg.AdminEmail)
	envString("ADMIN_PASSWORD", &cfg.AdminPassword)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(key + ": " + err.Error())
	}
	*dst = n
}

func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(key + ": " + err.Error())
	}
	*dst = d
}
