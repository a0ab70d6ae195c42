package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	require.Equal(t, "postgres", cfg.DB.Driver)
	require.Equal(t, 300*time.Millisecond, cfg.Client.Debounce)
	require.Equal(t, 5*time.Second, cfg.Client.FetchTimeout)
	require.True(t, cfg.UsesDevSecret())
}

func TestLoadFileThenEnvOverlay(t *testing.T) {
	path := writeYAML(t, `
env: dev
http:
  port: "9090"
db:
  driver: memory
session:
  secret: from-file
log:
  level: debug
  format: console
`)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "9090", cfg.HTTP.Port)
	require.Equal(t, "memory", cfg.DB.Driver)
	require.Equal(t, "from-file", cfg.Session.Secret)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.False(t, cfg.UsesDevSecret())
}

func TestLoadFromConfigPathEnv(t *testing.T) {
	path := writeYAML(t, "env: staging\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Env)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown driver":    "db:\n  driver: sqlite\n",
		"prod needs secret": "env: prod\n",
		"admin half set":    "admin:\n  username: root\n",
		"negative rate":     "rate_limit:\n  requests: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
		})
	}
}

func TestMustLoadPanics(t *testing.T) {
	require.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}
