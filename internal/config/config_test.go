package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `
clusters:
  atlanta:
    host: atlanta.example.net
    user: dodserver
    password: from-document
    ports: [27015, 27016]
    hostname: atlanta
    server_name_prefix: "KTP Atlanta"
  denver:
    host: denver.example.net
    user: dodserver
    ports: [27015]
  lab:
    host: 192.168.1.50
    user: dodserver
    ports: [27015]
    test_cluster: true
  inert:
    user: dodserver
    ports: [27015]

paths:
  engine:
    - source: engine/dod.so
      dest: serverfiles/dod/dlls/dod.so
      chmod: "755"

profiles:
  online:
    sv_lan: 0

discord_relay_url: http://relay.example.net/notify
discord_relay_secret: doc-secret
discord_channel_id: "42"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))
	return path
}

func TestLoadDocument(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	atlanta := cfg.Clusters["atlanta"]
	require.NotNil(t, atlanta)
	assert.Equal(t, "atlanta", atlanta.Name)
	assert.Equal(t, "atlanta.example.net", atlanta.Host)
	assert.Equal(t, []int{27015, 27016}, atlanta.Ports)
	assert.True(t, cfg.Clusters["lab"].TestCluster)

	require.Len(t, cfg.Paths["engine"], 1)
	assert.Equal(t, "755", cfg.Paths["engine"][0].Chmod)

	assert.Equal(t, "http://relay.example.net/notify", cfg.DiscordRelayURL)
	assert.Equal(t, "doc-secret", cfg.DiscordRelaySecret)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("KTP_ATLANTA_HOST", "10.1.2.3")
	t.Setenv("KTP_ATLANTA_PASSWORD", "from-env")
	t.Setenv("KTP_DISCORD_RELAY_SECRET", "env-secret")

	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "10.1.2.3", cfg.Clusters["atlanta"].Host)
	assert.Equal(t, "from-env", cfg.Clusters["atlanta"].Password)
	// Untouched fields keep their document values.
	assert.Equal(t, "dodserver", cfg.Clusters["atlanta"].User)
	assert.Equal(t, "env-secret", cfg.DiscordRelaySecret)
	assert.Equal(t, "42", cfg.DiscordChannelID)
}

func TestSSHAndLoggingDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 300, cfg.SSH.CommandTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSSHTimeoutOverride(t *testing.T) {
	t.Setenv("KTP_SSH_COMMAND_TIMEOUT", "60")

	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.SSH.CommandTimeout)
}

func TestProductionClusters(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	names := cfg.ProductionClusters()
	sort.Strings(names)
	// lab is a test cluster, inert has no host; neither is eligible.
	assert.Equal(t, []string{"atlanta", "denver"}, names)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRelayDefaults(t *testing.T) {
	t.Setenv("KTP_RELAY_AUTH_KEY", "k")

	cfg := LoadRelay()
	assert.Equal(t, 8087, cfg.Port)
	assert.Equal(t, "k", cfg.AuthKey)
	assert.Equal(t, 27020, cfg.MinInstancePort)
	assert.Equal(t, 27044, cfg.MaxInstancePort)
}
