package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the base URL of the backend API.
	ServerURL string
	// SocketURL is the base URL of the realtime socket endpoint. Defaults to
	// ServerURL when unset.
	SocketURL string
	// Token is the bearer token used for both the API and the socket.
	Token string

	// Home is the directory where the app stores local state.
	Home string
	// CartFile is the path to the persisted cart selection.
	CartFile string

	// Debug enables verbose logging.
	Debug bool
}

// Load loads configuration from .env, environment, and defaults.
func Load() (*Config, error) {
	// Missing .env is fine; environment still applies.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	home := os.Getenv("MEALDASH_HOME_DIR")
	if home == "" {
		home = filepath.Join(homeDir, ".mealdash")
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("failed to create app home: %w", err)
	}

	serverURL := os.Getenv("MEALDASH_SERVER_URL")
	if serverURL == "" {
		serverURL = "https://api.mealdash.app"
	}
	socketURL := os.Getenv("MEALDASH_SOCKET_URL")
	if socketURL == "" {
		socketURL = serverURL
	}

	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1"
	if !debug {
		debug = os.Getenv("MEALDASH_DEBUG") == "true" || os.Getenv("MEALDASH_DEBUG") == "1"
	}

	return &Config{
		ServerURL: serverURL,
		SocketURL: socketURL,
		Token:     os.Getenv("MEALDASH_TOKEN"),
		Home:      home,
		CartFile:  filepath.Join(home, "cart.json"),
		Debug:     debug,
	}, nil
}
