package config

import (
	"fmt"
	"strings"

	"github.com/kitaplik/portal/kitaplik"
)

// WebAppConfig wraps the portal configuration with web-only settings.
type WebAppConfig struct {
	Config      *kitaplik.Config
	Debug       bool
	Environment string
}

// NewWebAppConfig creates a new web app configuration
func NewWebAppConfig(cfg *kitaplik.Config, debug bool) *WebAppConfig {
	environment := "production"
	if debug {
		environment = "development"
	}

	return &WebAppConfig{
		Config:      cfg,
		Debug:       debug,
		Environment: environment,
	}
}

// Address returns the listen address for the HTTP server.
func (w *WebAppConfig) Address() string {
	return fmt.Sprintf("%s:%d", w.Config.Server.Host, w.Config.Server.Port)
}

// AllowedOrigins returns the CORS origin list as a comma-joined string.
func (w *WebAppConfig) AllowedOrigins() string {
	if len(w.Config.Server.AllowOrigins) == 0 {
		return "http://localhost:3000"
	}
	return strings.Join(w.Config.Server.AllowOrigins, ",")
}
