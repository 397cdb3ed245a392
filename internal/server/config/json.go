package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/webtoz/internal/flagx"
	"github.com/dmitrijs2005/webtoz/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration, so "15m", "7d" and integer nanoseconds all work.
// Fields left out of the file keep their current values.
type JsonConfig struct {
	EndpointAddrHTTP              string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC              string          `json:"endpoint_addr_grpc"`
	Environment                   string          `json:"environment"`
	LogLevel                      string          `json:"log_level"`
	StoreDriver                   string          `json:"store_driver"`
	DatabaseDSN                   string          `json:"database_dsn"`
	MongoURI                      string          `json:"mongo_uri"`
	MongoDatabase                 string          `json:"mongo_database"`
	SecretKey                     string          `json:"secret_key"`
	TokenValidityDuration         *timex.Duration `json:"token_validity_duration"`
	PasswordResetValidityDuration *timex.Duration `json:"password_reset_validity_duration"`
	BcryptCost                    *int            `json:"bcrypt_cost"`
	CORSOrigin                    string          `json:"cors_origin"`
	RateLimitWindow               *timex.Duration `json:"rate_limit_window"`
	RateLimitMax                  *int            `json:"rate_limit_max"`
	RedisAddr                     string          `json:"redis_addr"`
	RedisPassword                 string          `json:"redis_password"`
	RedisDB                       *int            `json:"redis_db"`
	S3RootUser                    string          `json:"s3_root_user"`
	S3RootPassword                string          `json:"s3_root_password"`
	S3Bucket                      string          `json:"s3_bucket"`
	S3Region                      string          `json:"s3_region"`
	S3BaseEndpoint                string          `json:"s3_base_endpoint"`
	S3PublicURL                   string          `json:"s3_public_url"`
	AdminName                     string          `json:"admin_name"`
	AdminEmail                    string          `json:"admin_email"`
	AdminPassword                 string          `json:"admin_password"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Without either flag nothing is loaded. A file that cannot be
// read or parsed panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.PasswordResetValidityDuration != nil {
		config.PasswordResetValidityDuration = c.PasswordResetValidityDuration.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	setString(&config.CORSOrigin, c.CORSOrigin)
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.RateLimitMax != nil {
		config.RateLimitMax = *c.RateLimitMax
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.AdminName, c.AdminName)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminPassword, c.AdminPassword)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
