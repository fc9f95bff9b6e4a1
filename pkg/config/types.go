package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent tablechat configuration stored as
// config.toml in the .tablechat/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Server      ServerConfig      `toml:"server"`
	Assistant   AssistantConfig   `toml:"assistant"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// tablechat server (chat, upload, history, sessions).
type ClientConfig struct {
	// APITarget is the server's API base URL including the /api prefix.
	APITarget string `toml:"api_target,omitempty"`

	// Timeout bounds one whole request, streamed body included.
	Timeout string `toml:"timeout,omitempty"`
}

// ServerConfig holds settings for "tablechat serve".
type ServerConfig struct {
	Listen      string `toml:"listen,omitempty"`
	UploadDir   string `toml:"upload_dir,omitempty"`
	MaxUploadMB uint   `toml:"max_upload_mb,omitempty"`

	// SessionTTL is how long an idle session is kept before cleanup.
	SessionTTL string `toml:"session_ttl,omitempty"`
}

// AssistantConfig selects the model backend that answers questions.
type AssistantConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`

	// ThinkingBudget enables extended thinking on backends that take a token
	// budget for it. Zero leaves it off.
	ThinkingBudget uint `toml:"thinking_budget,omitempty"`
}

// EventStreamConfig selects where completed turns are published.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientTimeout parses Client.Timeout.
func (c *Config) ClientTimeout() (time.Duration, error) {
	return parseDuration("client.timeout", c.Client.Timeout)
}

// SessionTTL parses Server.SessionTTL.
func (c *Config) SessionTTL() (time.Duration, error) {
	return parseDuration("server.session_ttl", c.Server.SessionTTL)
}

// MaxUploadBytes returns Server.MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) * 1024 * 1024
}

// BrokerList splits EventStream.Brokers, dropping empty entries.
func (c *Config) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.EventStream.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func durationSetter(key string, field func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		if _, err := parseDuration(key, v); err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: durationSetter("client.timeout", func(c *Config) *string { return &c.Client.Timeout }),
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.upload_dir": {
		get: func(c *Config) string { return c.Server.UploadDir },
		set: func(c *Config, v string) error { c.Server.UploadDir = v; return nil },
	},
	"server.max_upload_mb": {
		get: func(c *Config) string {
			if c.Server.MaxUploadMB == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Server.MaxUploadMB), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for server.max_upload_mb: %w", err)
			}
			c.Server.MaxUploadMB = uint(n)
			return nil
		},
	},
	"server.session_ttl": {
		get: func(c *Config) string { return c.Server.SessionTTL },
		set: durationSetter("server.session_ttl", func(c *Config) *string { return &c.Server.SessionTTL }),
	},
	"assistant.provider": {
		get: func(c *Config) string { return c.Assistant.Provider },
		set: func(c *Config, v string) error { c.Assistant.Provider = v; return nil },
	},
	"assistant.target": {
		get: func(c *Config) string { return c.Assistant.Target },
		set: func(c *Config, v string) error { c.Assistant.Target = v; return nil },
	},
	"assistant.model": {
		get: func(c *Config) string { return c.Assistant.Model },
		set: func(c *Config, v string) error { c.Assistant.Model = v; return nil },
	},
	"assistant.thinking_budget": {
		get: func(c *Config) string {
			if c.Assistant.ThinkingBudget == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Assistant.ThinkingBudget), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for assistant.thinking_budget: %w", err)
			}
			c.Assistant.ThinkingBudget = uint(n)
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
