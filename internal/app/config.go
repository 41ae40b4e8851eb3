package app

import (
	"errors"
	"fmt"
	"net/url"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // hcl file or directory
	// Targets overrides the evaluate blocks of the grid when non-empty.
	Targets []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// UIURL enables the socket.io UI bridge when set.
	UIURL       string
	UINamespace string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.UIURL != "" {
		u, err := url.Parse(cfg.UIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid UI URL %q: must include scheme and host", cfg.UIURL)
		}
	}
	if cfg.UINamespace == "" {
		cfg.UINamespace = "/"
	}
	cfg.Targets = append([]string(nil), cfg.Targets...)
	return &cfg, nil
}
