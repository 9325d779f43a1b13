package config

// Config is the main configuration carrier.
type Config struct {
	App       AppConfig               `yaml:"app"`
	Broker    map[string]BrokerConfig `yaml:"broker"`
	Trader    TraderConfig            `yaml:"trader"`
	Store     StoreConfig             `yaml:"store"`
	Scheduler SchedulerConfig         `yaml:"scheduler"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
	HTTPAddr string `yaml:"http_addr"`
}

// BrokerConfig overrides one broker's endpoint. Brokers not listed here run
// on their built-in hosts.
type BrokerConfig struct {
	Host           string `yaml:"host"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TraderConfig is the operator account driving the shared-demo trader flow.
type TraderConfig struct {
	Broker   string  `yaml:"broker"`
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Stake    float64 `yaml:"stake"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SignalsPath string `yaml:"signals_path"`
}
