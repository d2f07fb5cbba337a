package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ktp-deploy/internal/model"
)

// Config is the fully resolved deployment configuration: the YAML document
// merged with environment overrides. It is built once at startup and read-only
// afterwards; nothing downstream consults the process environment.
type Config struct {
	Clusters map[string]*model.Cluster      `yaml:"clusters"`
	Paths    map[string][]model.PathMapping `yaml:"paths"`
	Profiles map[string]model.Profile       `yaml:"profiles"`

	DataServerIP       string `yaml:"data_server_ip"`
	DiscordRelayURL    string `yaml:"discord_relay_url"`
	DiscordRelaySecret string `yaml:"discord_relay_secret"`
	DiscordChannelID   string `yaml:"discord_channel_id"`

	SSH     SSHConfig     `yaml:"-"`
	Logging LoggingConfig `yaml:"-"`
}

type SSHConfig struct {
	ConnectTimeout int
	CommandTimeout int
	KeyFile        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the YAML document and layers environment overrides on top.
// Environment always wins over the document.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for name, cluster := range cfg.Clusters {
		cluster.Name = name
	}

	cfg.applyEnvOverrides()

	cfg.SSH = SSHConfig{
		ConnectTimeout: getEnvAsInt("KTP_SSH_CONNECT_TIMEOUT", 30),
		CommandTimeout: getEnvAsInt("KTP_SSH_COMMAND_TIMEOUT", 300),
		KeyFile:        getEnvAsString("KTP_SSH_KEY_FILE", defaultKeyFile()),
	}
	cfg.Logging = LoggingConfig{
		Level:  getEnvAsString("LOG_LEVEL", "info"),
		Format: getEnvAsString("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

// applyEnvOverrides merges KTP_* variables over the document, once.
// Format: KTP_<CLUSTER>_<FIELD>, e.g. KTP_ATLANTA_PASSWORD.
func (c *Config) applyEnvOverrides() {
	for name, cluster := range c.Clusters {
		prefix := "KTP_" + strings.ToUpper(name) + "_"
		if host := os.Getenv(prefix + "HOST"); host != "" {
			cluster.Host = host
		}
		if user := os.Getenv(prefix + "USER"); user != "" {
			cluster.User = user
		}
		if password := os.Getenv(prefix + "PASSWORD"); password != "" {
			cluster.Password = password
		}
	}

	if v := os.Getenv("KTP_DATA_SERVER_IP"); v != "" {
		c.DataServerIP = v
	}
	if v := os.Getenv("KTP_DISCORD_RELAY_URL"); v != "" {
		c.DiscordRelayURL = v
	}
	if v := os.Getenv("KTP_DISCORD_RELAY_SECRET"); v != "" {
		c.DiscordRelaySecret = v
	}
	if v := os.Getenv("KTP_DISCORD_CHANNEL_ID"); v != "" {
		c.DiscordChannelID = v
	}
}

// ProductionClusters returns the names of clusters eligible for --all:
// not flagged as test clusters and with a host configured.
func (c *Config) ProductionClusters() []string {
	var names []string
	for name, cluster := range c.Clusters {
		if !cluster.TestCluster && cluster.Host != "" {
			names = append(names, name)
		}
	}
	return names
}

func defaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
