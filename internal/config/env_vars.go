package config

import (
	"os"
	"strings"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	appURLVar         = "NEXT_PUBLIC_APP_URL"
	appURLAliasVar    = "APP_URL"
	logLevelVar       = "LOG_LEVEL"
	allowedOriginsVar = "ALLOWED_ORIGINS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "CartCash")
}

// GetAppURL returns the public URL of the dashboard, used to build the OAuth
// callback and the post-login redirect.
func (EnvVars) GetAppURL() string {
	if u := GetEnv(appURLVar, ""); u != "" {
		return strings.TrimRight(u, "/")
	}
	return strings.TrimRight(GetEnv(appURLAliasVar, "http://localhost:3000"), "/")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
