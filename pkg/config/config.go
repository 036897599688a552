// Package config loads runtime configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/deskwatch/deskwatch/pkg/sla"
	"github.com/deskwatch/deskwatch/pkg/zendesk"
)

// Config aggregates settings for every deskwatch program.
type Config struct {
	Zendesk zendesk.Config

	// WindowHours bounds the recent-ticket search window.
	WindowHours int
	// EnrichLimit caps how many tickets get per-ticket metric enrichment
	// each cycle, to stay inside the source API's rate budget.
	EnrichLimit int
	// RefreshInterval is the polling cadence for the dashboard and monitor.
	RefreshInterval time.Duration

	DashboardAddr  string
	DashboardToken string
	MCPAddr        string
	ReportDir      string
	LogLevel       string

	Calendar sla.CalendarConfig
	Agents   []Agent
}

// Agent maps a Zendesk agent ID to a display name for reports.
type Agent struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type fileConfig struct {
	Calendar sla.CalendarConfig `yaml:"calendar"`
	Agents   []Agent            `yaml:"agents"`
}

// Load reads configuration from the environment plus the optional YAML
// file named by DESKWATCH_CONFIG. Callers load a .env file first when they
// want one.
func Load() (*Config, error) {
	cfg := &Config{
		Zendesk: zendesk.Config{
			Subdomain:         os.Getenv("ZENDESK_SUBDOMAIN"),
			Email:             os.Getenv("ZENDESK_EMAIL"),
			APIToken:          os.Getenv("ZENDESK_API_TOKEN"),
			RequestsPerMinute: getEnvAsInt("ZENDESK_REQUESTS_PER_MINUTE", 200),
		},
		WindowHours:     getEnvAsInt("DESKWATCH_WINDOW_HOURS", 24),
		EnrichLimit:     getEnvAsInt("DESKWATCH_ENRICH_LIMIT", 50),
		RefreshInterval: time.Duration(getEnvAsInt("DESKWATCH_REFRESH_SECONDS", 30)) * time.Second,
		DashboardAddr:   getEnv("DESKWATCH_DASHBOARD_ADDR", ":8080"),
		DashboardToken:  os.Getenv("DESKWATCH_DASHBOARD_TOKEN"),
		MCPAddr:         getEnv("DESKWATCH_MCP_ADDR", ":8086"),
		ReportDir:       getEnv("DESKWATCH_REPORT_DIR", "reports"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Zendesk.Subdomain == "" || cfg.Zendesk.Email == "" || cfg.Zendesk.APIToken == "" {
		return nil, fmt.Errorf("ZENDESK_SUBDOMAIN, ZENDESK_EMAIL, and ZENDESK_API_TOKEN must be set")
	}
	if cfg.EnrichLimit < 0 {
		return nil, fmt.Errorf("DESKWATCH_ENRICH_LIMIT must not be negative")
	}

	if path := os.Getenv("DESKWATCH_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c.Calendar = fc.Calendar
	c.Agents = fc.Agents
	return nil
}

// Window returns the search window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// AgentName resolves an agent ID to a display name.
func (c *Config) AgentName(id int64) string {
	for _, a := range c.Agents {
		if a.ID == id {
			return a.Name
		}
	}
	return fmt.Sprintf("Agent ID: %d", id)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
