package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Env holds every runtime setting. Values come from config.yaml and are
// overridden by environment variables of the same name.
type Env struct {
	AppAddr string `mapstructure:"APP_ADDR"`
	GinMode string `mapstructure:"GIN_MODE"`
	AppEnv  string `mapstructure:"APP_ENV"`

	DBDSN          string `mapstructure:"DB_DSN"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`

	OpenPixAppID   string   `mapstructure:"OPENPIX_APP_ID"`
	OpenPixSandbox bool     `mapstructure:"OPENPIX_SANDBOX"`
	WebhookSecrets []string `mapstructure:"OPENPIX_WEBHOOK_SECRETS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	AdminEmail        string `mapstructure:"ADMIN_EMAIL"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MaxPaymentsPerMin  int      `mapstructure:"MAX_PAYMENTS_PER_MIN"`
}

func LoadEnv() Env {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("GIN_MODE", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DSN", "root:@tcp(127.0.0.1:3306)/travel_app?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("OPENPIX_APP_ID", "")
	v.SetDefault("OPENPIX_SANDBOX", true)
	v.SetDefault("OPENPIX_WEBHOOK_SECRETS", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("JWT_SECRET", "super-secret-key-change-me")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("MAX_PAYMENTS_PER_MIN", 30)

	if err := v.ReadInConfig(); err != nil {
		log.Println("config.yaml tidak ditemukan, memakai environment variables")
	}

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		log.Fatalf("Gagal memuat konfigurasi: %v", err)
	}

	// Env vars arrive as one comma-joined string; YAML lists arrive split.
	env.WebhookSecrets = splitList(env.WebhookSecrets)
	env.CORSAllowedOrigins = splitList(env.CORSAllowedOrigins)
	env.AppAddr = strings.TrimSpace(env.AppAddr)
	return env
}

func (e Env) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(e.AppEnv), "production")
}

func (e Env) RedisEnabled() bool {
	return strings.TrimSpace(e.RedisAddr) != ""
}

func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
