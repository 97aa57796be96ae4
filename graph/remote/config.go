// Package remote implements the client and reference-server sides of
// fngraph's remote backend adapter: deploy(graph) -> handle,
// handle.run(**kwargs) -> invocation_id, handle.output(invocation_id,
// function_id) -> [values], by_name(name) -> handle.
package remote

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Config holds the remote adapter's connection settings, resolved from
// environment variables (mirroring how leofalp-aigo loads provider
// config at process init via godotenv).
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

const (
	envBaseURL      = "FNGRAPH_REMOTE_URL"
	envTimeout      = "FNGRAPH_REMOTE_TIMEOUT"
	envPollInterval = "FNGRAPH_REMOTE_POLL_INTERVAL"

	defaultBaseURL      = "http://localhost:8090"
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// LoadConfig resolves remote adapter settings from the environment,
// loading a .env file first if one is present in the working directory.
// Missing variables fall back to sane defaults rather than erroring, so a
// caller can always construct a Client without external configuration.
func LoadConfig() (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	cfg := Config{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		PollInterval: defaultPollInterval,
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		d, err := str2duration.ParseDuration(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(envPollInterval); v != "" {
		d, err := str2duration.ParseDuration(v)
		if err != nil {
			return Config{}, err
		}
		cfg.PollInterval = d
	}
	return cfg, nil
}
