package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/ui"
	"github.com/idilsaglam/todo-copilot/internal/web"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig      = "TODO_CONFIG"
	EnvAddr        = "TODO_ADDR"
	EnvAgentPath   = "TODO_AGENT_PATH"
	EnvAgentSecret = "TODO_AGENT_SECRET"
	EnvSeed        = "TODO_SEED"
	EnvSnapshot    = "TODO_SNAPSHOT"
	EnvTheme       = "TODO_THEME"
	EnvLogFile     = "TODO_LOG_FILE"
)

// Config is the runtime configuration. Precedence, lowest first:
// defaults, YAML file, environment, command line flags.
type Config struct {
	Addr     string        `yaml:"addr"`
	Agent    AgentConfig   `yaml:"agent"`
	Seed     string        `yaml:"seed"`     // JSON list loaded at startup
	Snapshot string        `yaml:"snapshot"` // JSON list written at shutdown
	Theme    string        `yaml:"theme"`    // see ui.Themes
	LogFile  string        `yaml:"log_file"` // log destination while the TUI runs
	Copilot  copilot.Popup `yaml:"copilot"`
}

// AgentConfig configures the MCP endpoint used by the assistant.
type AgentConfig struct {
	Path   string `yaml:"path"`
	Secret string `yaml:"secret"` // HS256 secret; empty disables auth
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr: "127.0.0.1:8000",
		Agent: AgentConfig{
			Path: "/api/copilotkit",
		},
		Theme:   "classic",
		LogFile: "todo-debug.log",
		Copilot: copilot.DefaultPopup(),
	}
}

// Load builds a config from defaults, the optional YAML file at path and
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	c.Copilot = c.Copilot.Merge(copilot.DefaultPopup())
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	c.Addr = envOr(EnvAddr, c.Addr)
	c.Agent.Path = envOr(EnvAgentPath, c.Agent.Path)
	c.Agent.Secret = envOr(EnvAgentSecret, c.Agent.Secret)
	c.Seed = envOr(EnvSeed, c.Seed)
	c.Snapshot = envOr(EnvSnapshot, c.Snapshot)
	c.Theme = envOr(EnvTheme, c.Theme)
	c.LogFile = envOr(EnvLogFile, c.LogFile)
}

// Validate normalizes and checks the config.
func (c *Config) Validate() error {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	c.Agent.Path = strings.TrimSpace(c.Agent.Path)
	if !strings.HasPrefix(c.Agent.Path, "/") || c.Agent.Path == "/" {
		return fmt.Errorf("config: agent path must start with / and not be the root, got %q", c.Agent.Path)
	}
	c.Agent.Path = strings.TrimSuffix(c.Agent.Path, "/")
	if web.OwnsPath(c.Agent.Path) {
		return fmt.Errorf("config: agent path %q is used by the web UI", c.Agent.Path)
	}

	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	if c.Theme == "" {
		c.Theme = ui.DefaultTheme
	}
	if !ui.HasTheme(c.Theme) {
		return fmt.Errorf("config: unknown theme %q (expected %s)", c.Theme, strings.Join(ui.Themes(), "|"))
	}
	return nil
}

// AgentURL is the MCP endpoint URL for a client on this host.
func (c *Config) AgentURL() string {
	host := c.Addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host + c.Agent.Path
}

// envOr returns the environment variable or a default value.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
