package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the account, credentials, agent limits, and LLM settings.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Agent       AgentConfig       `yaml:"agent"`
	LLM         LLMConfig         `yaml:"llm"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

type AccountConfig struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Platform string `yaml:"platform"`
}

type CredentialsConfig struct {
	// API bearer token for read endpoints. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
	// OAuth1.0a credentials for user-context writes
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

// AgentConfig is a pure value object read once per run.
type AgentConfig struct {
	MaxTweetsPerQuery int `yaml:"maxTweetsPerQuery"`
	MaxQueriesPerRun  int `yaml:"maxQueriesPerRun"`
	MaxRepliesPerRun  int `yaml:"maxRepliesPerRun"`
	MaxRepliesPerDay  int `yaml:"maxRepliesPerDay"` // 0 = unlimited

	MinRelevanceScore float64 `yaml:"minRelevanceScore"` // [0,10]
	MinFollowers      int     `yaml:"minFollowers"`
	MaxFollowers      int     `yaml:"maxFollowers"`

	SkipVerified bool `yaml:"skipVerified"`
	DryRun       bool `yaml:"dryRun"`

	CooldownMinutes int           `yaml:"cooldownMinutes"`
	QueryDelay      time.Duration `yaml:"queryDelay"`
	PostDelay       time.Duration `yaml:"postDelay"`

	Language string `yaml:"language"`

	// TestQueryOverride replaces all profile-derived queries with a single
	// fixed query. Testing only.
	TestQueryOverride string `yaml:"testQueryOverride"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider"` // "openai" or "none"
	Model        string `yaml:"model"`
	QualityModel string `yaml:"qualityModel"`
	// If empty, read from env OPENAI_API_KEY
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type ScheduleConfig struct {
	// Quiet hours (UTC) during which the run loop holds off
	QuietHours []int         `yaml:"quietHours"`
	Interval   time.Duration `yaml:"interval"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{Platform: "twitter"},
		Agent: AgentConfig{
			MaxTweetsPerQuery: 20,
			MaxQueriesPerRun:  5,
			MaxRepliesPerRun:  5,
			MaxRepliesPerDay:  30,
			MinRelevanceScore: 6,
			MinFollowers:      50,
			MaxFollowers:      50000,
			SkipVerified:      false,
			DryRun:            true,
			CooldownMinutes:   72 * 60,
			QueryDelay:        3 * time.Second,
			PostDelay:         30 * time.Second,
			Language:          "en",
		},
		LLM:      LLMConfig{Provider: "openai", Model: "gpt-4o-mini", QualityModel: "gpt-4o"},
		Storage:  StorageConfig{DBPath: "./replyforge.db"},
		Metrics:  MetricsConfig{Addr: ""},
		Schedule: ScheduleConfig{QuietHours: []int{0, 1, 2, 3, 4, 5}, Interval: 4 * time.Hour},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if c.Credentials.ConsumerKey == "" {
		c.Credentials.ConsumerKey = os.Getenv("X_CONSUMER_KEY")
	}
	if c.Credentials.ConsumerSecret == "" {
		c.Credentials.ConsumerSecret = os.Getenv("X_CONSUMER_SECRET")
	}
	if c.Credentials.AccessToken == "" {
		c.Credentials.AccessToken = os.Getenv("X_ACCESS_TOKEN")
	}
	if c.Credentials.AccessSecret == "" {
		c.Credentials.AccessSecret = os.Getenv("X_ACCESS_SECRET")
	}
	if c.LLM.APIKey == "" && c.LLM.Provider == "openai" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// CooldownWindow returns the cooldown as a duration.
func (a AgentConfig) CooldownWindow() time.Duration {
	return time.Duration(a.CooldownMinutes) * time.Minute
}
