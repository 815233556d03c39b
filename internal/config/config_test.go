package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultEndpoint, cfg.Endpoint)
	require.False(t, cfg.Transport.Reconnect)
	require.False(t, cfg.Client.ClearOnReconnect)
	require.Equal(t, 200*time.Millisecond, cfg.Transport.InitialBackoff)
	require.Equal(t, 5*time.Second, cfg.Transport.MaxBackoff)
	require.NoError(t, cfg.Validate())
}

func TestLoadPartialFile(t *testing.T) {
	p := writeFile(t, `
endpoint: wss://game.example:9001/
transport:
  reconnect: true
  max_backoff: 2s
  read_timeout: 30s
client:
  clear_on_reconnect: true
settings:
  project_directory: /srv/projects
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "wss://game.example:9001/", cfg.Endpoint)
	require.True(t, cfg.Transport.Reconnect)
	require.Equal(t, 2*time.Second, cfg.Transport.MaxBackoff)
	require.Equal(t, 200*time.Millisecond, cfg.Transport.InitialBackoff)
	require.True(t, cfg.Client.ClearOnReconnect)
	require.Equal(t, 200, cfg.Client.LogHistory)
	require.Equal(t, "/srv/projects", cfg.SettingsOverride().ProjectDirectory)

	wc := cfg.TransportConfig()
	require.Equal(t, cfg.Endpoint, wc.Endpoint)
	require.Equal(t, 30*time.Second, wc.ReadTimeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"scheme":  "endpoint: http://localhost:9001\n",
		"backoff": "transport:\n  initial_backoff: 10s\n  max_backoff: 1s\n",
		"level":   "log_level: loud\n",
		"yaml":    "endpoint: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	env := map[string]string{
		"VIBECRAFT_ENDPOINT":        "ws://10.0.0.2:9001",
		"VIBECRAFT_MISTRAL_API_KEY": "sk",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	require.Equal(t, "ws://10.0.0.2:9001", cfg.Endpoint)
	require.Equal(t, "sk", cfg.Settings.MistralAPIKey)
	require.Empty(t, cfg.Settings.ProjectDirectory)
}
