package config

import (
	"fmt"
	"strings"
)

var knownBrokers = map[string]bool{"exnova": true, "bullex": true}

func validate(c *Config) error {
	level := strings.ToLower(c.App.LogLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", c.App.LogLevel)
	}
	for name, bc := range c.Broker {
		if !knownBrokers[name] {
			return fmt.Errorf("broker.%s is not a known broker", name)
		}
		if bc.TimeoutSeconds < 0 {
			return fmt.Errorf("broker.%s.timeout_seconds must be >= 0", name)
		}
	}
	if !knownBrokers[strings.ToLower(c.Trader.Broker)] {
		return fmt.Errorf("trader.broker %q is not a known broker", c.Trader.Broker)
	}
	if c.Trader.Stake < 0 {
		return fmt.Errorf("trader.stake must be >= 0")
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.SignalsPath) == "" {
		return fmt.Errorf("scheduler.signals_path is required when the scheduler is enabled")
	}
	return nil
}
