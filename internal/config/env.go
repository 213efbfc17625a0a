package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv layers environment variables over whatever the YAML file set.
// The variable names match the original deployment (KRATOS_PUBLIC_URL,
// ADMIN_API_PORT, PORT) so existing .env files keep working.
func (c *Config) applyEnv() {
	if v := getEnv("KRATOS_PUBLIC_URL"); v != "" {
		c.KratosPublicURL = v
	}
	if v := getEnv("OIDC_PROVIDER"); v != "" {
		c.OIDCProvider = v
	}
	if v := getEnv("ADMIN_API_PORT"); v != "" {
		c.AdminAPIAddr = ":" + v
	}
	if v := getEnv("PORT"); v != "" {
		c.WebAppAddr = ":" + v
	}
	if v := getEnv("WEBAPP_ORIGIN"); v != "" {
		c.WebAppOrigin = v
	}
	if v := getEnv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if n := getEnvInt("PROVIDER_TIMEOUT_SECONDS"); n > 0 {
		c.ProviderTimeout = time.Duration(n) * time.Second
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
