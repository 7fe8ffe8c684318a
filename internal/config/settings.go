package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/category"
	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/llm"
	"github.com/Veraticus/budgetbuddy/internal/prompts"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BUDGETBUDDY_LLM_PROVIDER.
const EnvPrefix = "BUDGETBUDDY"

// Settings is the validated application configuration. Treat it as read-only.
type Settings struct {
	Prompts    map[string]string
	Logging    LoggingSettings
	Database   DatabaseSettings
	LLM        LLMSettings
	Server     ServerSettings
	Categories CategorySettings
	Engine     EngineSettings
}

// LoggingSettings configures slog output.
type LoggingSettings struct {
	Level  string
	Format string
}

// DatabaseSettings locates the SQLite database.
type DatabaseSettings struct {
	Path string
}

// LLMSettings configures the text-generation provider.
type LLMSettings struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheSize   int
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// CategorySettings holds the canonical category set and its synonyms.
type CategorySettings struct {
	Synonyms       map[string][]string
	File           string
	Names          []string
	MinFuzzyLength int
}

// EngineSettings tunes the workflow.
type EngineSettings struct {
	DefaultUserID   string
	GenerateTimeout time.Duration
	StoreTimeout    time.Duration
	MaxHistory      int
}

// ServerSettings configures the HTTP front door.
type ServerSettings struct {
	Addr            string
	Mode            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	RateBurst       int
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", filepath.Join(DefaultDir(), "budgetbuddy.db"))

	v.SetDefault("llm.provider", llm.ProviderAnthropic)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.cache_ttl", "0s")
	v.SetDefault("llm.cache_size", 256)

	v.SetDefault("categories.file", "")
	v.SetDefault("categories.names", []string{})
	v.SetDefault("categories.min_fuzzy_length", category.DefaultMinFuzzyLength)

	v.SetDefault("engine.default_user_id", "me")
	v.SetDefault("engine.generate_timeout", "30s")
	v.SetDefault("engine.store_timeout", "5s")
	v.SetDefault("engine.max_history", 10)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.rate_burst", 10)
}

// BindEnv makes every key overridable through BUDGETBUDDY_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// providerKeyEnv names the conventional API key variable of each provider.
var providerKeyEnv = map[string]string{
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

// Load reads settings from v, resolves the category set and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Logging: LoggingSettings{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
		Database: DatabaseSettings{
			Path: ExpandPath(v.GetString("database.path")),
		},
		LLM: LLMSettings{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			CacheTTL:    v.GetDuration("llm.cache_ttl"),
			CacheSize:   v.GetInt("llm.cache_size"),
		},
		Categories: CategorySettings{
			File:           ExpandPath(v.GetString("categories.file")),
			Names:          v.GetStringSlice("categories.names"),
			Synonyms:       v.GetStringMapStringSlice("categories.synonyms"),
			MinFuzzyLength: v.GetInt("categories.min_fuzzy_length"),
		},
		Engine: EngineSettings{
			DefaultUserID:   v.GetString("engine.default_user_id"),
			GenerateTimeout: v.GetDuration("engine.generate_timeout"),
			StoreTimeout:    v.GetDuration("engine.store_timeout"),
			MaxHistory:      v.GetInt("engine.max_history"),
		},
		Server: ServerSettings{
			Addr:            v.GetString("server.addr"),
			Mode:            v.GetString("server.mode"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			RateLimit:       v.GetInt("server.rate_limit"),
			RateBurst:       v.GetInt("server.rate_burst"),
		},
		Prompts: map[string]string{},
	}

	if s.LLM.APIKey == "" {
		s.LLM.APIKey = os.Getenv(providerKeyEnv[s.LLM.Provider])
	}

	for _, name := range prompts.Names {
		if text := v.GetString("prompts." + name); text != "" {
			s.Prompts[name] = text
		}
	}

	if s.Categories.File != "" {
		file, err := LoadCategoriesFile(s.Categories.File)
		if err != nil {
			return Settings{}, err
		}
		s.Categories.Names = file.Categories
		s.Categories.Synonyms = mergeSynonyms(s.Categories.Synonyms, file.Synonyms)
	}
	if len(s.Categories.Names) == 0 {
		s.Categories.Names = append([]string(nil), category.DefaultCategories...)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports the first invalid setting, wrapped in common.ErrInvalidConfig.
func (s Settings) Validate() error {
	if _, err := common.ParseLevel(s.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", common.ErrInvalidConfig, err)
	}
	switch s.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, s.Logging.Format)
	}

	if strings.TrimSpace(s.Database.Path) == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrInvalidConfig)
	}

	if !knownProvider(s.LLM.Provider) {
		return fmt.Errorf("%w: llm.provider %q (want one of %s)",
			common.ErrInvalidConfig, s.LLM.Provider, strings.Join(llm.Providers, ", "))
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}

	durations := map[string]time.Duration{
		"llm.timeout":             s.LLM.Timeout,
		"llm.cache_ttl":           s.LLM.CacheTTL,
		"engine.generate_timeout": s.Engine.GenerateTimeout,
		"engine.store_timeout":    s.Engine.StoreTimeout,
		"server.read_timeout":     s.Server.ReadTimeout,
		"server.write_timeout":    s.Server.WriteTimeout,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, key)
		}
	}

	if s.Categories.MinFuzzyLength < 1 {
		return fmt.Errorf("%w: categories.min_fuzzy_length must be at least 1", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(s.Engine.DefaultUserID) == "" {
		return fmt.Errorf("%w: engine.default_user_id is required", common.ErrInvalidConfig)
	}
	if s.Engine.MaxHistory < 1 {
		return fmt.Errorf("%w: engine.max_history must be at least 1", common.ErrInvalidConfig)
	}

	if _, err := category.NewResolver(s.ResolverConfig()); err != nil {
		return err
	}
	if _, err := prompts.New(s.Prompts); err != nil {
		return err
	}
	return nil
}

// LLMConfig converts the provider settings for llm.NewClient.
func (s Settings) LLMConfig() llm.Config {
	return llm.Config{
		Provider:    s.LLM.Provider,
		APIKey:      s.LLM.APIKey,
		Model:       s.LLM.Model,
		BaseURL:     s.LLM.BaseURL,
		Timeout:     s.LLM.Timeout,
		CacheTTL:    s.LLM.CacheTTL,
		CacheSize:   s.LLM.CacheSize,
		RateLimit:   s.LLM.RateLimit,
		Temperature: s.LLM.Temperature,
		MaxTokens:   s.LLM.MaxTokens,
	}
}

// ResolverConfig converts the category settings for category.NewResolver.
func (s Settings) ResolverConfig() category.Config {
	return category.Config{
		Categories:     append([]string(nil), s.Categories.Names...),
		Synonyms:       s.Categories.Synonyms,
		MinFuzzyLength: s.Categories.MinFuzzyLength,
	}
}

func knownProvider(name string) bool {
	for _, p := range llm.Providers {
		if p == name {
			return true
		}
	}
	return false
}

func mergeSynonyms(base, extra map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		merged[k] = append(merged[k], v...)
	}
	return merged
}
