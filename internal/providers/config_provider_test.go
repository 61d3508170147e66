package providers

import (
	"os"
	"path/filepath"
	"roverchat/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigProvider_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logger:\n  dir: /tmp\n")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)

	assert.Equal(t, "RoverChat", conf.AppName)
	assert.Equal(t, path, conf.Path)
	assert.True(t, conf.Debug)
	assert.Equal(t, 3000, conf.WebServer.Port)
	assert.Equal(t, "sqlite", conf.Database.Driver)
	assert.Equal(t, time.Minute, conf.Poll.Duration)
	assert.Equal(t, 10*time.Minute, conf.Poll.Idle)
	assert.Equal(t, "rover", conf.Poll.TallyColumn)
	assert.Equal(t, 30*time.Minute, conf.Chat.ReplayWindow)
}

func TestNewConfigProvider_ReadsFile(t *testing.T) {
	path := writeConfig(t, `
webServer:
  host: 127.0.0.1
  port: 8081
logger:
  level: debug
  dir: /tmp
database:
  driver: postgres
  dsn: postgres://localhost/chat
poll:
  duration: 5s
  idle: 2s
  tallyColumn: camera
`)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", conf.WebServer.Host)
	assert.Equal(t, 8081, conf.WebServer.Port)
	assert.Equal(t, "postgres", conf.Database.Driver)
	assert.Equal(t, 5*time.Second, conf.Poll.Duration)
	assert.Equal(t, 2*time.Second, conf.Poll.Idle)
	assert.Equal(t, "camera", conf.Poll.TallyColumn)
}

func TestNewConfigProvider_EnvOverride(t *testing.T) {
	path := writeConfig(t, "logger:\n  dir: /tmp\n")
	t.Setenv("ROVERCHAT_POLL_DURATION", "45s")
	t.Setenv("ROVERCHAT_LOG_LEVEL", "warn")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, conf.Poll.Duration)
	assert.Equal(t, "warn", conf.Logger.Level)
}

func TestNewConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, err)
}

func TestNewConfigProvider_InvalidValues(t *testing.T) {
	path := writeConfig(t, "logger:\n  dir: /tmp\npoll:\n  tallyColumn: id\n")

	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	assert.Error(t, err)
}

func TestNewConfigProvider_ShippedConfig(t *testing.T) {
	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join("..", "..", "config.yml")})
	require.NoError(t, err)

	assert.Equal(t, "./logs", conf.Logger.Dir)
	assert.Equal(t, uint32(0644), conf.Logger.Mode)
	assert.Equal(t, "./data/polls.zst", conf.Poll.ArchivePath)
	assert.Equal(t, 30*time.Minute, conf.Chat.ReplayWindow)
	assert.True(t, conf.Cache.Enabled)
}
