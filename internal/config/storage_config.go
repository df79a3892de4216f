package config

import "path/filepath"

const (
	BackendFile = "file"
	BackendKV   = "kv"

	DefaultSessionKey = "cartcash_sessions"
)

type StorageConfig interface {
	GetDataFolder() string
	GetSessionFile() string
	GetSessionBackend() string
	GetSessionKey() string
	GetRedisURL() string
	GetSessionEncryptionKey() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

func (s Storage) GetSessionFile() string {
	return GetEnv("SESSION_FILE", filepath.Join(s.GetDataFolder(), "sessions.json"))
}

// GetSessionBackend selects the session medium: "file" (server snapshot) or "kv"
// (web-storage style key/value, backed by Redis when REDIS_URL is set).
func (Storage) GetSessionBackend() string {
	switch b := GetEnv("SESSION_BACKEND", BackendFile); b {
	case BackendKV:
		return b
	default:
		return BackendFile
	}
}

func (Storage) GetSessionKey() string {
	return GetEnv("SESSION_STORAGE_KEY", DefaultSessionKey)
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

// GetSessionEncryptionKey enables sealing of tokens in the persisted snapshot.
func (Storage) GetSessionEncryptionKey() string {
	return GetEnv("SESSION_ENCRYPTION_KEY", "")
}
