// Package config loads blackjackgym settings from HCL files and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Environment variable names honoured on top of the file
const (
	EnvDatabaseURL = "BLACKJACK_DATABASE_URL"
	EnvSeed        = "BLACKJACK_SEED"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvAPIKey      = "BLACKJACK_API_KEY"
)

// Config is the fully resolved configuration
type Config struct {
	Environment EnvironmentSettings
	Training    TrainingSettings
	Server      ServerSettings
	Store       StoreSettings
}

// EnvironmentSettings configures every environment the process builds
type EnvironmentSettings struct {
	NumDecks       int   `hcl:"num_decks,optional"`
	InitialBalance int   `hcl:"initial_balance,optional"`
	Seed           int64 `hcl:"seed,optional"`
}

// TrainingSettings configures the Monte Carlo trainer and evaluator
type TrainingSettings struct {
	Episodes        int     `hcl:"episodes,optional"`
	Epsilon         float64 `hcl:"epsilon,optional"`
	EpsilonDecay    float64 `hcl:"epsilon_decay,optional"`
	MinEpsilon      float64 `hcl:"min_epsilon,optional"`
	ProgressEvery   int     `hcl:"progress_every,optional"` // 0 reports every episodes/100
	CheckpointPath  string  `hcl:"checkpoint_path,optional"`
	CheckpointEvery int     `hcl:"checkpoint_every,optional"`
	EvalEpisodes    int     `hcl:"eval_episodes,optional"`
	Workers         int     `hcl:"workers,optional"`
}

// ServerSettings configures the remote agent server
type ServerSettings struct {
	Address     string   `hcl:"address,optional"`
	Port        int      `hcl:"port,optional"`
	IdleTimeout string   `hcl:"idle_timeout,optional"`
	APIKeys     []string `hcl:"api_keys,optional"`
	AuthURL     string   `hcl:"auth_url,optional"`
	AuthSecret  string   `hcl:"auth_secret,optional"`
}

// StoreSettings configures episode persistence
type StoreSettings struct {
	DatabaseURL string `hcl:"database_url,optional"`
}

type fileConfig struct {
	Environment *EnvironmentSettings `hcl:"environment,block"`
	Training    *TrainingSettings    `hcl:"training,block"`
	Server      *ServerSettings      `hcl:"server,block"`
	Store       *StoreSettings       `hcl:"store,block"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Environment.NumDecks == 0 {
		c.Environment.NumDecks = 6
	}
	if c.Environment.InitialBalance == 0 {
		c.Environment.InitialBalance = 1000
	}

	t := &c.Training
	if t.Episodes == 0 {
		t.Episodes = 500000
	}
	if t.Epsilon == 0 {
		t.Epsilon = 0.1
	}
	if t.EpsilonDecay == 0 {
		t.EpsilonDecay = 1.0
	}
	if t.EvalEpisodes == 0 {
		t.EvalEpisodes = 100000
	}
	if t.Workers == 0 {
		t.Workers = 4
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.IdleTimeout == "" {
		c.Server.IdleTimeout = "10m"
	}
}

// Load reads an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(src, filename)
}

// Parse decodes HCL source, applies defaults and validates the result
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if fc.Environment != nil {
		cfg.Environment = *fc.Environment
	}
	if fc.Training != nil {
		cfg.Training = *fc.Training
	}
	if fc.Server != nil {
		cfg.Server = *fc.Server
	}
	if fc.Store != nil {
		cfg.Store = *fc.Store
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays values from the process environment and validates the
// result. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDatabaseURL); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.Server.APIKeys = append(c.Server.APIKeys, v)
	}
	if v := getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", EnvSeed, err)
		}
		c.Environment.Seed = seed
	}
	return c.Validate()
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	if c.Environment.NumDecks < 1 {
		return fmt.Errorf("num_decks must be >= 1, got %d", c.Environment.NumDecks)
	}
	t := c.Training
	if t.Episodes < 1 {
		return fmt.Errorf("episodes must be >= 1, got %d", t.Episodes)
	}
	if t.Epsilon < 0 || t.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %v", t.Epsilon)
	}
	if t.MinEpsilon < 0 || t.MinEpsilon > t.Epsilon {
		return fmt.Errorf("min_epsilon must be in [0, epsilon], got %v", t.MinEpsilon)
	}
	if t.EpsilonDecay <= 0 || t.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon_decay must be in (0, 1], got %v", t.EpsilonDecay)
	}
	if t.CheckpointEvery < 0 || t.ProgressEvery < 0 {
		return errors.New("checkpoint_every and progress_every cannot be negative")
	}
	if t.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", t.Workers)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.Server.IdleTimeoutDuration(); err != nil {
		return err
	}
	if c.Server.AuthURL != "" && len(c.Server.APIKeys) > 0 {
		return errors.New("api_keys and auth_url are mutually exclusive")
	}
	return nil
}

// Addr returns host:port for net/http
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// IdleTimeoutDuration parses IdleTimeout
func (s ServerSettings) IdleTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid idle_timeout %q: %w", s.IdleTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("idle_timeout must be positive, got %s", d)
	}
	return d, nil
}
