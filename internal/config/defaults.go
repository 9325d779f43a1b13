package config

import "strings"

const (
	DefaultEnv       = "dev"
	DefaultLogLevel  = "info"
	DefaultHTTPAddr  = ":8080"
	DefaultStorePath = "galebot.db"
	DefaultBroker    = "exnova"
)

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = DefaultEnv
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = DefaultHTTPAddr
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = DefaultStorePath
	}
	if strings.TrimSpace(c.Trader.Broker) == "" {
		c.Trader.Broker = DefaultBroker
	}

	normalized := make(map[string]BrokerConfig, len(c.Broker))
	for name, bc := range c.Broker {
		normalized[strings.ToLower(strings.TrimSpace(name))] = bc
	}
	c.Broker = normalized
}

// IsProduction reports whether the app runs with the production profile.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "prod") || strings.EqualFold(c.App.Env, "production")
}
