// ABOUTME: Configuration loading for the appdeck-shim HTTP bridge.
// ABOUTME: Loads TOML config with environment variable expansion.

package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	MCP     MCPConfig     `toml:"mcp"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type MCPConfig struct {
	Command []string `toml:"command"`

	CallTimeout time.Duration `toml:"-"`

	// Raw string value for TOML unmarshaling
	CallTimeoutRaw string `toml:"call_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads config from the given path, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.MCP.CallTimeoutRaw != "" {
		cfg.MCP.CallTimeout, err = time.ParseDuration(cfg.MCP.CallTimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing mcp.call_timeout %q: %w", cfg.MCP.CallTimeoutRaw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(c.MCP.Command) == 0 {
		return fmt.Errorf("mcp.command is required")
	}
	return nil
}
