package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MongoURI    string
	MongoDB     string
	PostgresDSN string
	RedisAddr   string
	SecretKey   string
	LogLevel    string
	CorsOrigins []string
	StaticDir   string
	Seed        bool
	TrustProxy  bool
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGODB_URI", ""),
		MongoDB:     getEnv("MONGODB_DB", "blog"),
		PostgresDSN: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		SecretKey:   getEnv("SECRET_KEY", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CorsOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StaticDir:   getEnv("STATIC_DIR", ""),
	}
	cfg.Seed, _ = strconv.ParseBool(getEnv("SEED", "false"))
	cfg.TrustProxy, _ = strconv.ParseBool(getEnv("TRUST_PROXY", "false"))

	missing := []string{}
	for key, val := range map[string]string{
		"MONGODB_URI":  cfg.MongoURI,
		"DATABASE_URL": cfg.PostgresDSN,
		"REDIS_ADDR":   cfg.RedisAddr,
		"SECRET_KEY":   cfg.SecretKey,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("config: missing required variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
