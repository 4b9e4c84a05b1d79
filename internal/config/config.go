package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Gemini GeminiConfig `yaml:"gemini" mapstructure:"gemini"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local key-value database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ExportConfig configures enrichment runs and workbook output.
type ExportConfig struct {
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	Language    string `yaml:"language" mapstructure:"language"`
	FindDomains bool   `yaml:"find_domains" mapstructure:"find_domains"`
	SplitNames  bool   `yaml:"split_names" mapstructure:"split_names"`
}

// NotifyConfig configures operator notifications.
type NotifyConfig struct {
	Desktop bool `yaml:"desktop" mapstructure:"desktop"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int `yaml:"port" mapstructure:"port"`
	RatePerSecond int `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "leads.db")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.language", "it")
	v.SetDefault("export.find_domains", true)
	v.SetDefault("export.split_names", true)
	v.SetDefault("notify.desktop", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given mode actually needs, collecting
// every problem before returning.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "local":
		check(c.Store.Path != "", "store.path is required")
	case "export":
		check(c.Store.Path != "", "store.path is required")
		if c.Export.FindDomains || c.Export.SplitNames {
			check(c.Gemini.Key != "", "gemini.key is required when AI enrichment is enabled")
		}
		check(c.Gemini.Model != "", "gemini.model is required")
		check(c.Export.OutputDir != "", "export.output_dir is required")
	case "serve":
		check(c.Store.Path != "", "store.path is required")
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Server.RatePerSecond > 0, "server.rate_per_second must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
