package server_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/talknow/internal/server"
)

func TestNewConfig(t *testing.T) {
	req := require.New(t)

	cfg := server.NewConfig()

	req.Equal(":5000", cfg.Port)
	req.Equal([]string{"*"}, cfg.AllowedOrigins)
	req.Zero(cfg.MaxMessageSize)
	req.Zero(cfg.RateLimit.Burst)
	req.Zero(cfg.MeetingTTL)
	req.NoError(cfg.Validate())
}

func TestLoadConfig_Defaults_Match_NewConfig(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())

	cfg, err := server.LoadConfig("")

	req.NoError(err)
	req.Equal(server.NewConfig(), cfg)
}

func TestLoadConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", ":7000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("MEETING_TTL", "1h")
	t.Setenv("SEND_BUFFER_SIZE", "32")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := server.LoadConfig("")

	req.NoError(err)
	req.Equal(":7000", cfg.Port)
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(10, cfg.RateLimit.Burst)
	req.Equal(2*time.Second, cfg.RateLimit.RefillInterval)
	req.Equal(time.Hour, cfg.MeetingTTL)
	req.Equal(32, cfg.SendBufferSize)
	req.Equal("DEBUG", cfg.LogLevel)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "negative message size", key: "MAX_MESSAGE_SIZE", value: "-1"},
		{name: "zero send buffer", key: "SEND_BUFFER_SIZE", value: "0"},
		{name: "unparsable duration", key: "MEETING_TTL", value: "soon"},
		{name: "negative burst", key: "RATE_LIMIT_BURST", value: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := server.LoadConfig("")

			require.Error(t, err)
		})
	}
}

func TestLoadConfig_From_Env_File(t *testing.T) {
	req := require.New(t)
	const key = "SHUTDOWN_TIMEOUT"
	_, preset := os.LookupEnv(key)
	if preset {
		t.Skipf("%s is set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), "talknow.env")
	req.NoError(os.WriteFile(envFile, []byte(key+"=3s\n"), 0o600))

	cfg, err := server.LoadConfig(envFile)

	req.NoError(err)
	req.Equal(3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_Missing_Env_File(t *testing.T) {
	_, err := server.LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
}
