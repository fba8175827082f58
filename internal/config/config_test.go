package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.Environment.NumDecks)
	assert.Equal(t, 1000, cfg.Environment.InitialBalance)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Zero(t, cfg.Training.ProgressEvery, "cadence follows the final episode count")
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse(t *testing.T) {
	src := `
environment {
  num_decks       = 2
  initial_balance = 500
  seed            = 42
}

training {
  episodes         = 1000
  epsilon          = 0.2
  epsilon_decay    = 0.999
  min_epsilon      = 0.01
  checkpoint_path  = "models/mc.json"
  checkpoint_every = 100
}

server {
  port         = 9090
  idle_timeout = "30s"
}
`
	cfg, err := Parse([]byte(src), "test.hcl")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Environment.NumDecks)
	assert.Equal(t, 500, cfg.Environment.InitialBalance)
	assert.Equal(t, int64(42), cfg.Environment.Seed)
	assert.Equal(t, 1000, cfg.Training.Episodes)
	assert.Equal(t, 0.2, cfg.Training.Epsilon)
	assert.Zero(t, cfg.Training.ProgressEvery)
	assert.Equal(t, "models/mc.json", cfg.Training.CheckpointPath)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr())

	d, err := cfg.Server.IdleTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `environment {`},
		{"unknown attribute", `environment { jokers = 2 }`},
		{"bad decks", `environment { num_decks = -1 }`},
		{"bad epsilon", `training { epsilon = 2 }`},
		{"bad timeout", `server { idle_timeout = "soon" }`},
		{"two auth modes", `server {
  api_keys = ["a"]
  auth_url = "http://auth"
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`store { database_url = "postgres://localhost/bj" }`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/bj", cfg.Store.DatabaseURL)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvDatabaseURL: "postgres://db/test",
		EnvSeed:        "99",
	}
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "postgres://db/test", cfg.Store.DatabaseURL)
	assert.Equal(t, int64(99), cfg.Environment.Seed)

	env[EnvAPIKey] = "k1"
	env[EnvSeed] = ""
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, []string{"k1"}, cfg.Server.APIKeys)

	env[EnvSeed] = "abc"
	assert.Error(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
}

func TestApplyEnvRevalidates(t *testing.T) {
	cfg, err := Parse([]byte(`server { auth_url = "http://auth.local/validate" }`), "auth.hcl")
	require.NoError(t, err)

	getenv := func(k string) string {
		if k == EnvAPIKey {
			return "k1"
		}
		return ""
	}
	err = cfg.ApplyEnv(getenv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}
