package config

// RelayConfig configures the command relay service. The relay runs on the
// data server next to the HLTV processes and only reads its environment.
type RelayConfig struct {
	Port    int
	AuthKey string
	PipeDir string
	LogDir  string

	// Inclusive port window the relay will accept commands for.
	MinInstancePort int
	MaxInstancePort int

	Logging LoggingConfig
}

func LoadRelay() RelayConfig {
	return RelayConfig{
		Port:            getEnvAsInt("KTP_RELAY_PORT", 8087),
		AuthKey:         getEnvAsString("KTP_RELAY_AUTH_KEY", ""),
		PipeDir:         getEnvAsString("KTP_RELAY_PIPE_DIR", "/home/hltvserver/cmdpipes"),
		LogDir:          getEnvAsString("KTP_RELAY_LOG_DIR", "/home/hltvserver/logs"),
		MinInstancePort: getEnvAsInt("KTP_RELAY_MIN_PORT", 27020),
		MaxInstancePort: getEnvAsInt("KTP_RELAY_MAX_PORT", 27044),
		Logging: LoggingConfig{
			Level:  getEnvAsString("LOG_LEVEL", "info"),
			Format: getEnvAsString("LOG_FORMAT", "console"),
		},
	}
}
