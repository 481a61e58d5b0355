// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "learnpath/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Generative backend configuration
	GenAI GenAIConfig `json:"genai" yaml:"genai"`

	// Analytics pipeline configuration
	Analytics AnalyticsConfig `json:"analytics" yaml:"analytics"`

	// Quiz generation configuration
	Quiz QuizConfig `json:"quiz" yaml:"quiz"`

	// OpenTelemetry configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port        string   `json:"port" yaml:"port"`
	Debug       bool     `json:"debug" yaml:"debug"`
	LogLevel    string   `json:"log_level" yaml:"log_level"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// GenAIConfig represents the generative backend connection configuration.
// The backend speaks an OpenAI-compatible chat completions API.
type GenAIConfig struct {
	URL            string        `json:"url" yaml:"url"`
	Model          string        `json:"model" yaml:"model"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	MaxTokens      int           `json:"max_tokens" yaml:"max_tokens"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// AnalyticsConfig holds the tunable constants of the analytics pipeline.
// The mastery and difficulty thresholds were chosen empirically; they are
// configurable rather than hard-coded because their calibration is not
// derivable from first principles.
type AnalyticsConfig struct {
	ClusterCount int `json:"cluster_count" yaml:"cluster_count"`
	// MinTopicSamples is the minimum number of feature vectors a topic needs
	// before a per-topic mastery model is trained for it.
	MinTopicSamples int `json:"min_topic_samples" yaml:"min_topic_samples"`
	// TopN is the default number of topics in a recommendation.
	TopN int `json:"top_n" yaml:"top_n"`
	// MasteryIntermediate and MasteryAdvanced split accuracy_mean into the
	// Beginner / Intermediate / Advanced bands.
	MasteryIntermediate float64 `json:"mastery_intermediate" yaml:"mastery_intermediate"`
	MasteryAdvanced     float64 `json:"mastery_advanced" yaml:"mastery_advanced"`
	// MasteredThreshold is the binary per-topic mastery cutoff on accuracy_mean.
	MasteredThreshold float64 `json:"mastered_threshold" yaml:"mastered_threshold"`
	// DifficultyEasyBelow and DifficultyHardFrom map recommendation accuracy
	// to a target difficulty.
	DifficultyEasyBelow float64 `json:"difficulty_easy_below" yaml:"difficulty_easy_below"`
	DifficultyHardFrom  float64 `json:"difficulty_hard_from" yaml:"difficulty_hard_from"`
}

// QuizConfig holds quiz generation tunables.
type QuizConfig struct {
	// ExcerptMaxChars is the character budget for passage excerpts.
	ExcerptMaxChars int `json:"excerpt_max_chars" yaml:"excerpt_max_chars"`
	// ChunkMaxWords is the maximum chunk size when splitting lesson text.
	ChunkMaxWords int `json:"chunk_max_words" yaml:"chunk_max_words"`
	// MaxConcurrentChunks bounds the quiz generation fan-out per lesson.
	MaxConcurrentChunks int `json:"max_concurrent_chunks" yaml:"max_concurrent_chunks"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`
	Protocol       string            `json:"protocol" yaml:"protocol"` // "grpc" or "http"
	Insecure       bool              `json:"insecure" yaml:"insecure"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	ServiceName    string            `json:"service_name" yaml:"service_name"`
	ServiceVersion string            `json:"service_version" yaml:"service_version"`
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`
}

// NewConfig loads configuration from the YAML file first, then overrides with
// environment variables.
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	if config.GenAI.URL != "" && !contextutils.IsValidURL(config.GenAI.URL) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid genai url: %s", config.GenAI.URL)
	}

	return config, nil
}

// NewDefaultConfig returns a config with defaults applied and no file loaded.
// Used by tests and the adm CLI when no config file is present.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued tunables with their defaults.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.GenAI.Model == "" {
		c.GenAI.Model = DefaultGenAIModel
	}
	if c.GenAI.MaxTokens == 0 {
		c.GenAI.MaxTokens = DefaultGenAIMaxTokens
	}
	if c.GenAI.RequestTimeout == 0 {
		c.GenAI.RequestTimeout = GenAIRequestTimeout
	}
	if c.Analytics.ClusterCount == 0 {
		c.Analytics.ClusterCount = DefaultClusterCount
	}
	if c.Analytics.MinTopicSamples == 0 {
		c.Analytics.MinTopicSamples = DefaultMinTopicSamples
	}
	if c.Analytics.TopN == 0 {
		c.Analytics.TopN = DefaultRecommendationTopN
	}
	if c.Analytics.MasteryIntermediate == 0 {
		c.Analytics.MasteryIntermediate = DefaultMasteryIntermediate
	}
	if c.Analytics.MasteryAdvanced == 0 {
		c.Analytics.MasteryAdvanced = DefaultMasteryAdvanced
	}
	if c.Analytics.MasteredThreshold == 0 {
		c.Analytics.MasteredThreshold = DefaultMasteredThreshold
	}
	if c.Analytics.DifficultyEasyBelow == 0 {
		c.Analytics.DifficultyEasyBelow = DefaultDifficultyEasyBelow
	}
	if c.Analytics.DifficultyHardFrom == 0 {
		c.Analytics.DifficultyHardFrom = DefaultDifficultyHardFrom
	}
	if c.Quiz.ExcerptMaxChars == 0 {
		c.Quiz.ExcerptMaxChars = DefaultExcerptMaxChars
	}
	if c.Quiz.ChunkMaxWords == 0 {
		c.Quiz.ChunkMaxWords = DefaultChunkMaxWords
	}
	if c.Quiz.MaxConcurrentChunks == 0 {
		c.Quiz.MaxConcurrentChunks = DefaultMaxConcurrentChunks
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.Split(yamlTag, ",")[0]

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
				} else if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					field.Set(reflect.ValueOf(strings.Split(envVal, ",")))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file, honoring LEARNPATH_CONFIG_FILE
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv("LEARNPATH_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// Fall back to defaults when no config.yaml is present so the CLI works
	// without a deployment config.
	config, err := loadConfigFromFile("config.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return config, nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
