package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the autoreply server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Platform PlatformConfig
	AI       AIConfig
	Engine   EngineConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// PlatformConfig points at the social platform's HTTP API.
type PlatformConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
	Gemini           GeminiConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// EngineConfig tunes the reply engine's pacing and batch schedule.
type EngineConfig struct {
	ReplyDelay    time.Duration
	JobDelay      time.Duration
	SourceLimit   int
	BatchInterval time.Duration
	JobLockTTL    time.Duration
}

// EventsConfig configures the candidate event side channel. An empty
// AMQPURL disables publishing.
type EventsConfig struct {
	AMQPURL string
	Queue   string
	Buffer  int
}

var validProviders = map[string]bool{
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
	"gemini":    true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("AUTOREPLY_PORT", 8080),
			Env:             envString("AUTOREPLY_ENV", "development"),
			RateLimitPerMin: envInt("API_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Platform: PlatformConfig{
			BaseURL: envString("PLATFORM_BASE_URL", "https://api.x.com"),
			Timeout: envDuration("PLATFORM_TIMEOUT", 30*time.Second),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
			},
		},
		Engine: EngineConfig{
			ReplyDelay:    envDuration("ENGINE_REPLY_DELAY", 5*time.Second),
			JobDelay:      envDuration("ENGINE_JOB_DELAY", 2*time.Second),
			SourceLimit:   envInt("ENGINE_SOURCE_LIMIT", 10),
			BatchInterval: envDuration("ENGINE_BATCH_INTERVAL", 15*time.Minute),
			JobLockTTL:    envDuration("ENGINE_JOB_LOCK_TTL", 30*time.Minute),
		},
		Events: EventsConfig{
			AMQPURL: os.Getenv("EVENTS_AMQP_URL"),
			Queue:   envString("EVENTS_QUEUE", "reply.candidates"),
			Buffer:  envInt("EVENTS_BUFFER", 1024),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if !strings.HasPrefix(c.Platform.BaseURL, "http://") && !strings.HasPrefix(c.Platform.BaseURL, "https://") {
		return fmt.Errorf("PLATFORM_BASE_URL must start with http:// or https://, got %q", c.Platform.BaseURL)
	}
	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, vllm, openai, anthropic, gemini; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}
	if c.Engine.ReplyDelay < 0 || c.Engine.JobDelay < 0 {
		return fmt.Errorf("ENGINE_REPLY_DELAY and ENGINE_JOB_DELAY must not be negative")
	}
	if c.Engine.SourceLimit <= 0 {
		return fmt.Errorf("ENGINE_SOURCE_LIMIT must be positive, got %d", c.Engine.SourceLimit)
	}
	if c.Engine.BatchInterval < 0 {
		return fmt.Errorf("ENGINE_BATCH_INTERVAL must not be negative")
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("EVENTS_BUFFER must be positive, got %d", c.Events.Buffer)
	}
	if c.Events.AMQPURL != "" && !strings.HasPrefix(c.Events.AMQPURL, "amqp://") && !strings.HasPrefix(c.Events.AMQPURL, "amqps://") {
		return fmt.Errorf("EVENTS_AMQP_URL must start with amqp:// or amqps://, got %q", c.Events.AMQPURL)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
