// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "LEAF_CLASSIFIER"

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	HTTPPort       int      `mapstructure:"http_port"`
	GRPCPort       int      `mapstructure:"grpc_port"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	CORSOrigins    []string `mapstructure:"cors_origins"`

	// Models
	ModelsDir       string `mapstructure:"models_dir"`
	ONNXRuntimeLib  string `mapstructure:"onnxruntime_lib"`
	Preload         bool   `mapstructure:"preload"`
	ParallelMembers bool   `mapstructure:"parallel_members"`
	DiseaseInfoFile string `mapstructure:"disease_info_file"`

	// Result cache
	Redis     string        `mapstructure:"redis"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// OpenTelemetry configuration
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Feature flags
	UseMockInference bool `mapstructure:"use_mock_inference"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("models_dir", "model")
	v.SetDefault("onnxruntime_lib", "")
	v.SetDefault("preload", true)
	v.SetDefault("parallel_members", false)
	v.SetDefault("disease_info_file", "")
	v.SetDefault("redis", "")
	v.SetDefault("result_ttl", 24*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("use_mock_inference", false)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// OTEL standard env var also enables tracing
	v.BindEnv("otel_endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		v.SetDefault("otel_enabled", true)
	}
	v.BindEnv("use_mock_inference", EnvPrefix+"_USE_MOCK_INFERENCE", EnvPrefix+"_USE_MOCK")
}

// Load loads configuration from flags, environment variables, and an optional config file.
// Priority (highest to lowest): flags > env vars > config file > defaults.
// configPath may be empty, in which case config.yaml is searched for in the
// usual locations and its absence is not an error. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/leaf-classifier/")
		v.AddConfigPath("$HOME/.leaf-classifier")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// bindFlags binds every flag whose name (with dashes turned into
// underscores) is a config key. Only flags the user actually set override
// lower layers.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !isKnownKey(key) {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// knownKeys holds every config key, taken from the defaults.
var knownKeys = func() map[string]struct{} {
	v := viper.New()
	setDefaults(v)
	keys := make(map[string]struct{})
	for _, k := range v.AllKeys() {
		keys[k] = struct{}{}
	}
	return keys
}()

func isKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must be different")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.ResultTTL < 0 {
		return fmt.Errorf("result_ttl must not be negative, got %s", c.ResultTTL)
	}
	if !c.UseMockInference {
		if c.ModelsDir == "" {
			return fmt.Errorf("models_dir is required when not using mock inference")
		}
		if st, err := os.Stat(c.ModelsDir); err != nil {
			return fmt.Errorf("models_dir %s: %w", c.ModelsDir, err)
		} else if !st.IsDir() {
			return fmt.Errorf("models_dir %s is not a directory", c.ModelsDir)
		}
	}
	if c.DiseaseInfoFile != "" {
		if _, err := os.Stat(c.DiseaseInfoFile); err != nil {
			return fmt.Errorf("disease_info_file %s: %w", c.DiseaseInfoFile, err)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q: expected console or json", c.LogFormat)
	}
	return nil
}
