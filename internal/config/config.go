package config

import (
	"errors"
	"os"
	"strings"

	"github.com/contadorvs/scorerooms/internal/session"
)

// AppConfig is shared by the daemon and the CLI; each reads the fields it
// needs. Everything comes from the environment (godotenv loads .env in main).
type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	APIBaseURL string
	WSURL      string

	SessionFile string
	MessageDir  string
}

// Load reads the environment. Only validation that applies to both binaries
// happens here; ValidateServer adds the daemon-side requirements.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr: ":8080",
		APIBaseURL: "http://localhost:8080",
		WSURL:      "ws://localhost:8080/ws",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SCOREROOMS_API")); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("SCOREROOMS_WS")); v != "" {
		cfg.WSURL = v
	}

	cfg.SessionFile = strings.TrimSpace(os.Getenv("SESSION_FILE"))
	if cfg.SessionFile == "" {
		cfg.SessionFile = session.DefaultPath()
	}
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	return cfg, nil
}

// ValidateServer checks the fields the daemon cannot run without.
func (c *AppConfig) ValidateServer() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}
