package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Lark     LarkConfig     `mapstructure:"lark"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Store    StoreConfig    `mapstructure:"store"`
	Products []ProductEntry `mapstructure:"products"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID             string        `mapstructure:"app_id"`
	AppSecret         string        `mapstructure:"app_secret"`
	VerificationToken string        `mapstructure:"verification_token"`
	WebhookPath       string        `mapstructure:"webhook_path"`
	CardActionPath    string        `mapstructure:"card_action_path"`
	APITimeout        time.Duration `mapstructure:"api_timeout"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds tabular store configuration
type StoreConfig struct {
	WorkbookPath string `mapstructure:"workbook_path"`
	Timezone     string `mapstructure:"timezone"`
}

// ProductEntry configures one canonical product and how raw tokens map
// onto it
type ProductEntry struct {
	Canonical string   `mapstructure:"canonical"`
	Key       string   `mapstructure:"key"`
	Synonyms  []string `mapstructure:"synonyms"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("lark.webhook_path", "/webhook/event")
	viper.SetDefault("lark.card_action_path", "/webhook/card")
	viper.SetDefault("lark.api_timeout", 30*time.Second)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.0)
	viper.SetDefault("openai.timeout", 60*time.Second)

	viper.SetDefault("store.workbook_path", "data/orders.xlsx")
	viper.SetDefault("store.timezone", "Asia/Shanghai")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.verification_token", "LARK_VERIFICATION_TOKEN")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Lark.AppID == "" {
		return fmt.Errorf("lark.app_id is required")
	}
	if c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required")
	}
	if c.Store.WorkbookPath == "" {
		return fmt.Errorf("store.workbook_path is required")
	}
	if _, err := time.LoadLocation(c.Store.Timezone); err != nil {
		return fmt.Errorf("invalid store.timezone: %w", err)
	}
	// A missing OpenAI key is allowed: the extractor degrades to empty
	// results and only the fast parser remains active.
	return nil
}
