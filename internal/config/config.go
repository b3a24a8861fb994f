package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const defaultConfigPath = "~/.config/prochain/bridge.toml"

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Sync      SyncConfig
	Bridge    BridgeConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// URL is the CouchDB endpoint with credentials embedded.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

type StorageConfig struct {
	DSN string
}

type SyncConfig struct {
	RetryInterval     time.Duration
	PingInterval      time.Duration
	PingTimeout       time.Duration
	SharePollInterval time.Duration
	MaxQueueLength    int
	MaxDeadLetters    int
}

type BridgeConfig struct {
	TokenSecret     string
	TokenExpiration time.Duration
	ClientID        string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnections  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// fileConfig mirrors the optional TOML file. Unset keys keep the defaults.
type fileConfig struct {
	Server struct {
		Port string `toml:"port"`
		Host string `toml:"host"`
		Env  string `toml:"env"`
	} `toml:"server"`
	Database struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"database"`
	Storage struct {
		DSN string `toml:"dsn"`
	} `toml:"storage"`
	Sync struct {
		RetryInterval  string `toml:"retry_interval"`
		PingInterval   string `toml:"ping_interval"`
		PingTimeout    string `toml:"ping_timeout"`
		SharePoll      string `toml:"share_poll_interval"`
		MaxQueueLength int    `toml:"max_queue_length"`
		MaxDeadLetters int    `toml:"max_dead_letters"`
	} `toml:"sync"`
	Bridge struct {
		TokenSecret     string `toml:"token_secret"`
		TokenExpiration string `toml:"token_expiration"`
		ClientID        string `toml:"client_id"`
	} `toml:"bridge"`
	CORS struct {
		AllowedOrigins string `toml:"allowed_origins"`
	} `toml:"cors"`
}

// Load reads .env, then the TOML file named by PROCHAIN_CONFIG_FILE (or the
// default path), then the environment. Later sources win.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := defaults()

	path, err := expandPath(getEnv("PROCHAIN_CONFIG_FILE", defaultConfigPath))
	if err != nil {
		return nil, err
	}
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	storageDSN, err := expandDSN(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DSN = storageDSN

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7390",
			Host: "127.0.0.1",
			Env:  "development",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5984",
			User:     "admin",
			Password: "password",
			Name:     "prochain",
		},
		Storage: StorageConfig{
			DSN: "sqlite://~/.local/share/prochain/bridge.db",
		},
		Sync: SyncConfig{
			RetryInterval:     30 * time.Second,
			PingInterval:      15 * time.Second,
			PingTimeout:       5 * time.Second,
			SharePollInterval: 30 * time.Second,
			MaxQueueLength:    500,
			MaxDeadLetters:    50,
		},
		Bridge: BridgeConfig{
			TokenSecret:     "dev-secret-change-in-production",
			TokenExpiration: 24 * time.Hour,
			ClientID:        "prochain-ui",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  4096,
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnections:  16,
		},
		CORS: CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowedHeaders: "Content-Type,Authorization",
		},
	}
}

func applyFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Server.Port, raw.Server.Port)
	setString(&cfg.Server.Host, raw.Server.Host)
	setString(&cfg.Server.Env, raw.Server.Env)
	setString(&cfg.Database.Host, raw.Database.Host)
	setString(&cfg.Database.Port, raw.Database.Port)
	setString(&cfg.Database.User, raw.Database.User)
	setString(&cfg.Database.Password, raw.Database.Password)
	setString(&cfg.Database.Name, raw.Database.Name)
	setString(&cfg.Storage.DSN, raw.Storage.DSN)
	setString(&cfg.Bridge.TokenSecret, raw.Bridge.TokenSecret)
	setString(&cfg.Bridge.ClientID, raw.Bridge.ClientID)
	setString(&cfg.CORS.AllowedOrigins, raw.CORS.AllowedOrigins)

	if raw.Sync.MaxQueueLength > 0 {
		cfg.Sync.MaxQueueLength = raw.Sync.MaxQueueLength
	}
	if raw.Sync.MaxDeadLetters > 0 {
		cfg.Sync.MaxDeadLetters = raw.Sync.MaxDeadLetters
	}

	durations := []struct {
		key   string
		value string
		into  *time.Duration
	}{
		{"sync.retry_interval", raw.Sync.RetryInterval, &cfg.Sync.RetryInterval},
		{"sync.ping_interval", raw.Sync.PingInterval, &cfg.Sync.PingInterval},
		{"sync.share_poll_interval", raw.Sync.SharePoll, &cfg.Sync.SharePollInterval},
		{"sync.ping_timeout", raw.Sync.PingTimeout, &cfg.Sync.PingTimeout},
		{"bridge.token_expiration", raw.Bridge.TokenExpiration, &cfg.Bridge.TokenExpiration},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.into = parsed
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Env = getEnv("ENV", cfg.Server.Env)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)

	cfg.Storage.DSN = getEnv("STORAGE_DSN", cfg.Storage.DSN)

	cfg.Sync.MaxQueueLength = getEnvAsInt("SYNC_MAX_QUEUE_LENGTH", cfg.Sync.MaxQueueLength)
	cfg.Sync.MaxDeadLetters = getEnvAsInt("SYNC_MAX_DEAD_LETTERS", cfg.Sync.MaxDeadLetters)

	cfg.Bridge.TokenSecret = getEnv("BRIDGE_TOKEN_SECRET", cfg.Bridge.TokenSecret)
	cfg.Bridge.ClientID = getEnv("BRIDGE_CLIENT_ID", cfg.Bridge.ClientID)

	cfg.WebSocket.MaxMessageSize = int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", int(cfg.WebSocket.MaxMessageSize)))
	cfg.WebSocket.MaxConnections = getEnvAsInt("WS_MAX_CONNECTIONS", cfg.WebSocket.MaxConnections)

	cfg.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)
	cfg.CORS.AllowedMethods = getEnv("CORS_ALLOWED_METHODS", cfg.CORS.AllowedMethods)
	cfg.CORS.AllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", cfg.CORS.AllowedHeaders)

	durations := []struct {
		key  string
		into *time.Duration
	}{
		{"SYNC_RETRY_INTERVAL", &cfg.Sync.RetryInterval},
		{"SYNC_PING_INTERVAL", &cfg.Sync.PingInterval},
		{"SYNC_SHARE_POLL_INTERVAL", &cfg.Sync.SharePollInterval},
		{"SYNC_PING_TIMEOUT", &cfg.Sync.PingTimeout},
		{"BRIDGE_TOKEN_EXPIRATION", &cfg.Bridge.TokenExpiration},
	}
	for _, d := range durations {
		raw := getEnv(d.key, "")
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.into = parsed
	}
	return nil
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

// expandDSN resolves a leading ~ in the path part of file and sqlite DSNs.
func expandDSN(dsn string) (string, error) {
	for _, scheme := range []string{"sqlite://", "file://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok && strings.HasPrefix(rest, "~") {
			expanded, err := expandPath(rest)
			if err != nil {
				return "", err
			}
			return scheme + expanded, nil
		}
	}
	return dsn, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
