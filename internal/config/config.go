// Package config loads the immutable configuration record used across the
// process. Values come from, in order of precedence: environment variables,
// a config file (YAML/TOML/JSON via viper), then the defaults set here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once at startup
// and passed explicitly to constructors — there is no ambient settings
// singleton read from inside business logic.
type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	Server   Server   `mapstructure:"server"`
	AI       AI       `mapstructure:"ai"`
	Reranker Reranker `mapstructure:"reranker"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general process configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Database holds the document-store / history-store connection settings.
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
	MaxConnections   int    `mapstructure:"max_connections"`
	IdleConnections  int    `mapstructure:"idle_connections"`
}

// Server holds HTTP server configuration for the thin transport (§6).
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration for the HTTP surface.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AI holds the embedding + two-tier LLM gateway configuration (C1).
type AI struct {
	APIKey           string        `mapstructure:"api_key"`
	ModelHigh        string        `mapstructure:"model_high"`
	ModelLite        string        `mapstructure:"model_lite"`
	EmbeddingModel   string        `mapstructure:"embedding_model"`
	EmbeddingDims    int32         `mapstructure:"embedding_dims"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBaseBackoff time.Duration `mapstructure:"retry_base_backoff"`
}

// Reranker holds the cross-encoder reranker gateway configuration (C2).
// When Enabled is false the gateway is absent and callers bypass it.
type Reranker struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	TopK    int    `mapstructure:"top_k"`
}

// Pipeline holds the orchestrator's feature flags (§4.7) and bounds.
type Pipeline struct {
	UseLiteModel        bool          `mapstructure:"use_lite_model"`
	UseQueryGenerator   bool          `mapstructure:"use_query_generator"`
	UseStyleProfileKB   bool          `mapstructure:"use_style_profile_kb"`
	UseAutoRewrite      bool          `mapstructure:"use_auto_rewrite"`
	MaxParallelSections int           `mapstructure:"max_parallel_sections"`
	KPerSource          int           `mapstructure:"k_per_source"`
	FinalK              int           `mapstructure:"final_k"`
	RRFK                int           `mapstructure:"rrf_k"`
	StyleExcerptTopK    int           `mapstructure:"style_excerpt_top_k"`
	PerTaskTimeout      time.Duration `mapstructure:"per_task_timeout"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	RewriteThreshold    float64       `mapstructure:"rewrite_threshold"`
}

// Logging holds logger configuration.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the environment, an optional .env file, and
// an optional config file named "config" on the search paths below. It
// never fails solely because no config file or .env file is present — those
// are optional overlays on the defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DRAFTGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is required (set DRAFTGEN_AI_API_KEY or ai.api_key in config)")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.connection_string", "")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.idle_connections", 5)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute) // SSE streams run long
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors.enabled", false)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model_high", "gemini-2.5-pro")
	v.SetDefault("ai.model_lite", "gemini-flash-lite-latest")
	v.SetDefault("ai.embedding_model", "gemini-embedding-001")
	v.SetDefault("ai.embedding_dims", 768)
	v.SetDefault("ai.call_timeout", 60*time.Second)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.retry_base_backoff", 500*time.Millisecond)

	v.SetDefault("reranker.enabled", true)
	v.SetDefault("reranker.model", "cross-encoder")
	v.SetDefault("reranker.top_k", 10)

	v.SetDefault("pipeline.use_lite_model", false)
	v.SetDefault("pipeline.use_query_generator", true)
	v.SetDefault("pipeline.use_style_profile_kb", true)
	v.SetDefault("pipeline.use_auto_rewrite", true)
	v.SetDefault("pipeline.max_parallel_sections", 4)
	v.SetDefault("pipeline.k_per_source", 20)
	v.SetDefault("pipeline.final_k", 10)
	v.SetDefault("pipeline.rrf_k", 60)
	v.SetDefault("pipeline.style_excerpt_top_k", 3)
	v.SetDefault("pipeline.per_task_timeout", 60*time.Second)
	v.SetDefault("pipeline.request_timeout", 10*time.Minute)
	v.SetDefault("pipeline.rewrite_threshold", 0.8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
