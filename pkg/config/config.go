package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/models"
	"gopkg.in/yaml.v3"
)

// Answer modes.
const (
	ModeAuto         = "auto"
	ModeLLM          = "llm"
	ModeEncyclopedia = "encyclopedia"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// DefaultSystemPrompt restricts the model to kakapo questions.
const DefaultSystemPrompt = `You are an expert chatbot specializing exclusively in kakapo (Strigops habroptilus),
the flightless parrot native to New Zealand.

Rules:
- Answer ONLY questions about kakapo (biology, habitat, conservation, etc.)
- If not about kakapo → say: "I'm sorry, I only have knowledge about kakapo, the endangered flightless parrot of New Zealand."
`

// Config holds all service configuration.
type Config struct {
	Listen       string             `yaml:"listen"`
	Log          LogConfig          `yaml:"log"`
	LLM          LLMConfig          `yaml:"llm"`
	Encyclopedia EncyclopediaConfig `yaml:"encyclopedia"`
	Answer       AnswerConfig       `yaml:"answer"`
	Topic        TopicConfig        `yaml:"topic"`
	Cache        CacheConfig        `yaml:"cache"`
	Audit        models.AuditConfig `yaml:"audit"`
	Budget       BudgetConfig       `yaml:"budget"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// LLMConfig defines the upstream model backend and its fallback chains.
// BaseURL points at an OpenAI-compatible endpoint; the default is Gemini's.
type LLMConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	TextModels   []string      `yaml:"text_models"`
	VisionModels []string      `yaml:"vision_models"`
	ResolveOnce  bool          `yaml:"resolve_once"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"system_prompt"`
}

// EncyclopediaConfig defines the MediaWiki API used for lookups.
type EncyclopediaConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Sentences int           `yaml:"sentences"`
	Spelling  bool          `yaml:"spelling"`
	UserAgent string        `yaml:"user_agent"`
}

// AnswerConfig selects the answering backend: auto, llm or encyclopedia.
type AnswerConfig struct {
	Mode string `yaml:"mode"`
}

// TopicConfig lists keywords that mark a question as on topic.
type TopicConfig struct {
	Keywords []string `yaml:"keywords"`
}

// CacheConfig controls the answer memo cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
	DBPath  string        `yaml:"db_path"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BudgetConfig caps model token usage per period.
type BudgetConfig struct {
	Enabled   bool                `yaml:"enabled"`
	MaxTokens int64               `yaml:"max_tokens"`
	Period    models.BudgetPeriod `yaml:"period"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: "0.0.0.0:5000",
		Log: LogConfig{
			Level: "info",
		},
		LLM: LLMConfig{
			BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
			TextModels:   []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-latest"},
			VisionModels: []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-latest"},
			Timeout:      10 * time.Second,
			SystemPrompt: DefaultSystemPrompt,
		},
		Encyclopedia: EncyclopediaConfig{
			BaseURL:   "https://en.wikipedia.org/w/api.php",
			Timeout:   10 * time.Second,
			Sentences: 3,
			Spelling:  true,
			UserAgent: "kakapo-bot/1.0",
		},
		Answer: AnswerConfig{
			Mode: ModeAuto,
		},
		Topic: TopicConfig{
			Keywords: []string{"kakapo", "kākāpō", "strigops", "flightless parrot", "owl parrot", "night parrot"},
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Size:    128,
			TTL:     24 * time.Hour,
			DBPath:  "kakapo.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "kakapo:answer:",
			},
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        "kakapo-audit.db",
			RetentionDays: 30,
			Include:       []string{"questions", "answers"},
			MaxBodySize:   8192,
		},
		Budget: BudgetConfig{
			Enabled: false,
			Period:  models.BudgetDaily,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults otherwise.
// An empty path always yields defaults. Environment overrides are applied last.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err = Load(path)
			if err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file settings with GEMINI_API_KEY, HOST, PORT and KAKAPO_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("KAKAPO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	host, port := os.Getenv("HOST"), os.Getenv("PORT")
	if host == "" && port == "" {
		return
	}
	curHost, curPort, err := net.SplitHostPort(c.Listen)
	if err != nil {
		curHost, curPort = "0.0.0.0", "5000"
	}
	if host != "" {
		curHost = host
	}
	if port != "" {
		curPort = port
	}
	c.Listen = net.JoinHostPort(curHost, curPort)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Answer.Mode {
	case ModeAuto, ModeLLM, ModeEncyclopedia:
	default:
		return fmt.Errorf("answer.mode %q: must be auto, llm or encyclopedia", c.Answer.Mode)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheSQLite, CacheNone:
	default:
		return fmt.Errorf("cache.backend %q: must be memory, redis, sqlite or none", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Prefix == "" {
		return errors.New("cache.redis.prefix must not be empty")
	}
	if c.Cache.Backend == CacheMemory && c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if len(c.LLM.TextModels) == 0 || len(c.LLM.VisionModels) == 0 {
		return errors.New("llm.text_models and llm.vision_models must not be empty")
	}
	if c.Encyclopedia.Sentences <= 0 {
		return fmt.Errorf("encyclopedia.sentences must be positive, got %d", c.Encyclopedia.Sentences)
	}
	if c.Budget.Enabled && c.Budget.MaxTokens <= 0 {
		return errors.New("budget.max_tokens must be positive when budget is enabled")
	}
	return nil
}

// HasAPIKey reports whether a model API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.LLM.APIKey != ""
}

// EffectiveMode resolves ModeAuto against the presence of an API key.
func (c *Config) EffectiveMode() string {
	if c.Answer.Mode != ModeAuto {
		return c.Answer.Mode
	}
	if c.HasAPIKey() {
		return ModeLLM
	}
	return ModeEncyclopedia
}
