package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	ShopifyConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppURL() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Shopify
	Storage
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads the first of the given env files that exists. Variables that
// are already set in the process environment win over the file.
func LoadDotEnv(files ...string) string {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			return f
		}
	}
	return ""
}
