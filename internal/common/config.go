package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/placefinder/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Catalog     CatalogConfig   `toml:"catalog"`
	Index       IndexConfig     `toml:"index"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Naver       NaverConfig     `toml:"naver"`
	Search      SearchConfig    `toml:"search"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port        int      `toml:"port" validate:"min=1,max=65535"`
	Host        string   `toml:"host"`
	CORSOrigins []string `toml:"cors_origins"` // Allowed browser origins (default: http://localhost:3000)
	AdminToken  string   `toml:"admin_token"`  // Bearer token required on /api/admin and /api/kv when set
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// CatalogConfig selects the relational source the category indices are built from
type CatalogConfig struct {
	Driver string `toml:"driver" validate:"oneof=postgres sqlite"` // "postgres" (default) or "sqlite" for local runs
	DSN    string `toml:"dsn"`                                     // Connection string (postgres URL or sqlite file path)
	Schema string `toml:"schema"`                                  // Postgres schema (default: "pi_study")
	Table  string `toml:"table" validate:"required"`               // Source table (default: "axpi_hailey_dataset")
}

// IndexConfig controls the persisted per-category vector indices
type IndexConfig struct {
	Dir            string        `toml:"dir" validate:"required"`    // Directory holding <slug>.index and <slug>_metadata.json
	Dimension      int           `toml:"dimension" validate:"min=1"` // Embedding dimension (default: 1536)
	ReloadSchedule string        `toml:"reload_schedule"`            // Optional cron expression for scheduled rebuilds (empty = disabled)
	KeywordsFile   string        `toml:"keywords_file"`              // Optional YAML file overriding the category keyword tiers
	ForceRebuild   bool          `toml:"force_rebuild"`              // Rebuild all categories on startup even when files exist
	ReloadTimeout  time.Duration `toml:"reload_timeout"`             // Bounds one scheduled or admin reload (default: 30m, 0 = none)
}

// EmbeddingConfig configures the embedding provider and its retry policy
type EmbeddingConfig struct {
	Provider    string        `toml:"provider" validate:"oneof=openai gemini"` // "openai" (default) or "gemini"
	Model       string        `toml:"model"`                                   // Provider model (default: "text-embedding-3-small")
	APIKey      string        `toml:"api_key"`                                 // OpenAI API key (OPENAI_API_KEY takes priority)
	BaseURL     string        `toml:"base_url"`                                // OpenAI-compatible base URL
	MaxAttempts int           `toml:"max_attempts" validate:"min=1"`           // Total attempts per call (default: 3)
	Backoff     time.Duration `toml:"backoff"`                                 // Fixed delay between attempts (default: 1s)
	Timeout     time.Duration `toml:"timeout"`                                 // HTTP request timeout
}

// NaverConfig contains Naver Cloud Maps API configuration
type NaverConfig struct {
	ClientID       string        `toml:"client_id"`       // X-NCP-APIGW-API-KEY-ID
	ClientSecret   string        `toml:"client_secret"`   // X-NCP-APIGW-API-KEY
	BaseURL        string        `toml:"base_url"`        // API gateway base URL
	RateLimit      time.Duration `toml:"rate_limit"`      // Minimum time between API requests
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	RouteOption    string        `toml:"route_option"`    // Directions option (default: "trafast")
	StartName      string        `toml:"start_name"`      // Label of the fixed origin
	StartX         string        `toml:"start_x"`         // Origin longitude
	StartY         string        `toml:"start_y"`         // Origin latitude
}

// SearchConfig contains the retrieval parameters used by the query flows
type SearchConfig struct {
	FacilityTopK       int     `toml:"facility_top_k" validate:"min=1"`   // Results for facility searches (default: 3)
	DirectionsTopK     int     `toml:"directions_top_k" validate:"min=1"` // Candidates for entity resolution (default: 5)
	DirectionsCategory string  `toml:"directions_category"`               // Category searched for directions targets (default: "병원")
	MinCategoryScore   float64 `toml:"min_category_score"`                // Category confidence threshold (default: 0.3)
	MinResolveScore    float64 `toml:"min_resolve_score"`                 // Entity resolver acceptance threshold (default: 0.2)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for summaries (default: "gemini-3-flash-preview")
	EmbedModel  string  `toml:"embed_model"` // Model for embeddings when embedding.provider = "gemini"
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for summaries (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used to summarize results
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:        5000,
			Host:        "localhost",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Catalog: CatalogConfig{
			Driver: "postgres",
			Schema: "pi_study",
			Table:  "axpi_hailey_dataset",
		},
		Index: IndexConfig{
			Dir:           "./indexes",
			Dimension:     1536,
			ReloadTimeout: 30 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			BaseURL:     "https://api.openai.com/v1",
			MaxAttempts: 3,
			Backoff:     1 * time.Second,
			Timeout:     30 * time.Second,
		},
		Naver: NaverConfig{
			BaseURL:        "https://naveropenapi.apigw.ntruss.com",
			RateLimit:      100 * time.Millisecond,
			RequestTimeout: 10 * time.Second,
			RouteOption:    "trafast",
			StartName:      "F&F 신사옥",
			StartX:         "127.0310195",
			StartY:         "37.4982517",
		},
		Search: SearchConfig{
			FacilityTopK:       3,
			DirectionsTopK:     5,
			DirectionsCategory: "병원",
			MinCategoryScore:   0.3,
			MinResolveScore:    0.2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			EmbedModel:  "gemini-embedding-001",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   2048,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PLACEFINDER_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PLACEFINDER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PLACEFINDER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv("PLACEFINDER_CORS_ORIGINS"); origins != "" {
		if list := splitList(origins); len(list) > 0 {
			config.Server.CORSOrigins = list
		}
	}

	if token := os.Getenv("PLACEFINDER_ADMIN_TOKEN"); token != "" {
		config.Server.AdminToken = token
	}

	// Logging configuration
	if level := os.Getenv("PLACEFINDER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PLACEFINDER_LOG_OUTPUT"); output != "" {
		if list := splitList(output); len(list) > 0 {
			config.Logging.Output = list
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("PLACEFINDER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Catalog configuration
	if driver := os.Getenv("PLACEFINDER_CATALOG_DRIVER"); driver != "" {
		config.Catalog.Driver = driver
	}
	if dsn := os.Getenv("PLACEFINDER_CATALOG_DSN"); dsn != "" {
		config.Catalog.DSN = dsn
	} else if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Catalog.DSN = dsn
	}

	// Index configuration
	if dir := os.Getenv("PLACEFINDER_INDEX_DIR"); dir != "" {
		config.Index.Dir = dir
	}
	if schedule := os.Getenv("PLACEFINDER_INDEX_RELOAD_SCHEDULE"); schedule != "" {
		config.Index.ReloadSchedule = schedule
	}
	if keywords := os.Getenv("PLACEFINDER_INDEX_KEYWORDS_FILE"); keywords != "" {
		config.Index.KeywordsFile = keywords
	}
	if force := os.Getenv("PLACEFINDER_INDEX_FORCE_REBUILD"); force != "" {
		if f, err := strconv.ParseBool(force); err == nil {
			config.Index.ForceRebuild = f
		}
	}

	// Embedding configuration
	if provider := os.Getenv("PLACEFINDER_EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if model := os.Getenv("PLACEFINDER_EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}

	// Naver configuration
	if id := os.Getenv("NAVER_CLIENT_ID"); id != "" {
		config.Naver.ClientID = id
	}
	if secret := os.Getenv("NAVER_CLIENT_SECRET"); secret != "" {
		config.Naver.ClientSecret = secret
	}
	if rateLimit := os.Getenv("PLACEFINDER_NAVER_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.Naver.RateLimit = rl
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("PLACEFINDER_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PLACEFINDER_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("PLACEFINDER_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // PLACEFINDER_ prefix takes priority
	}
	if model := os.Getenv("PLACEFINDER_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// LLM provider configuration
	if provider := os.Getenv("PLACEFINDER_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints and the optional reload schedule
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Index.ReloadSchedule != "" {
		if err := ValidateReloadSchedule(c.Index.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid index.reload_schedule: %w", err)
		}
	}
	return nil
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> KV store -> config fallback -> error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"openai_api_key":      {"OPENAI_API_KEY"},
		"gemini_api_key":      {"PLACEFINDER_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key":   {"PLACEFINDER_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"naver_client_id":     {"NAVER_CLIENT_ID"},
		"naver_client_secret": {"NAVER_CLIENT_SECRET"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateReloadSchedule validates a cron expression and enforces a minimum 5-minute interval
func ValidateReloadSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// splitList splits a comma-separated value, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
