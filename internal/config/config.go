// Package config loads settings from defaults, an optional config file and the
// environment, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"grapevine/internal/grapevine"
	"grapevine/internal/llm"
	"grapevine/internal/memory"
	"grapevine/internal/observability"
)

const EnvPrefix = "GRAPEVINE"

type LLM struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	ChatModel      string        `mapstructure:"chat_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	WaitOnCooldown bool          `mapstructure:"wait_on_cooldown"`
}

type Simulation struct {
	LengthPolicy           string  `mapstructure:"length_policy"`
	GateMean               float64 `mapstructure:"gate_mean"`
	GateStdDev             float64 `mapstructure:"gate_stddev"`
	Seed                   int64   `mapstructure:"seed"`
	TrackStrength          bool    `mapstructure:"track_strength"`
	ReflectionBufferLength int     `mapstructure:"reflection_buffer_length"`
	TimeStep               float64 `mapstructure:"time_step"`
}

type Tracing struct {
	Enabled      bool   `mapstructure:"enabled"`
	Environment  string `mapstructure:"environment"`
	LangfuseHost string `mapstructure:"langfuse_host"`
	PublicKey    string `mapstructure:"public_key"`
	SecretKey    string `mapstructure:"secret_key"`
}

type Config struct {
	Debug      bool          `mapstructure:"debug"`
	DebugLog   string        `mapstructure:"debug_log"`
	EventDB    string        `mapstructure:"event_db"`
	Scenario   string        `mapstructure:"scenario"`
	LLM        LLM           `mapstructure:"llm"`
	Memory     memory.Config `mapstructure:"memory"`
	Simulation Simulation    `mapstructure:"simulation"`
	Tracing    Tracing       `mapstructure:"tracing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("debug_log", "debug.log")
	v.SetDefault("event_db", "grapevine_events.db")
	v.SetDefault("scenario", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.chat_model", llm.DefaultChatModel)
	v.SetDefault("llm.embedding_model", llm.DefaultEmbeddingModel)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.cooldown", 10*time.Second)
	v.SetDefault("llm.wait_on_cooldown", true)

	mem := memory.DefaultConfig()
	v.SetDefault("memory.importance_threshold", mem.ImportanceThreshold)
	v.SetDefault("memory.batch_size", mem.BatchSize)
	v.SetDefault("memory.dimensions", mem.Dimensions)
	v.SetDefault("memory.recency_weight", mem.RecencyWeight)
	v.SetDefault("memory.relevance_weight", mem.RelevanceWeight)
	v.SetDefault("memory.importance_weight", mem.ImportanceWeight)
	v.SetDefault("memory.scale_max", mem.ScaleMax)
	v.SetDefault("memory.epsilon", mem.Epsilon)
	v.SetDefault("memory.recency", string(mem.Recency))

	v.SetDefault("simulation.length_policy", "clamp")
	v.SetDefault("simulation.gate_mean", grapevine.DefaultGateMean)
	v.SetDefault("simulation.gate_stddev", grapevine.DefaultGateStdDev)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.track_strength", false)
	v.SetDefault("simulation.reflection_buffer_length", 10)
	v.SetDefault("simulation.time_step", 1.0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.langfuse_host", "https://cloud.langfuse.com")
	v.SetDefault("tracing.public_key", "")
	v.SetDefault("tracing.secret_key", "")
}

// bindLegacyEnv keeps the unprefixed variable names working alongside GRAPEVINE_*.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"llm.api_key":           "OPENAI_API_KEY",
		"debug":                 "DEBUG",
		"tracing.enabled":       "OTEL_TRACES_ENABLED",
		"tracing.environment":   "ENVIRONMENT",
		"tracing.langfuse_host": "LANGFUSE_HOST",
		"tracing.public_key":    "LANGFUSE_PUBLIC_KEY",
		"tracing.secret_key":    "LANGFUSE_SECRET_KEY",
	}
	for key, legacy := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads path when it is not empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if _, err := c.LengthPolicy(); err != nil {
		return err
	}
	if c.Simulation.GateStdDev < 0 {
		return fmt.Errorf("simulation.gate_stddev must not be negative")
	}
	return nil
}

func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		APIKey:         c.LLM.APIKey,
		BaseURL:        c.LLM.BaseURL,
		ChatModel:      c.LLM.ChatModel,
		EmbeddingModel: c.LLM.EmbeddingModel,
		MaxTokens:      c.LLM.MaxTokens,
		Cooldown:       c.LLM.Cooldown,
		WaitOnCooldown: c.LLM.WaitOnCooldown,
	}
}

func (c *Config) TracingConfig(version string) observability.Config {
	return observability.Config{
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		Enabled:        c.Tracing.Enabled,
		LangfuseHost:   c.Tracing.LangfuseHost,
		PublicKey:      c.Tracing.PublicKey,
		SecretKey:      c.Tracing.SecretKey,
	}
}

func (c *Config) LengthPolicy() (grapevine.LengthPolicy, error) {
	switch strings.ToLower(c.Simulation.LengthPolicy) {
	case "", "clamp":
		return grapevine.ClampLength, nil
	case "abs":
		return grapevine.AbsLength, nil
	}
	return nil, fmt.Errorf("unknown simulation.length_policy %q (want clamp or abs)", c.Simulation.LengthPolicy)
}
