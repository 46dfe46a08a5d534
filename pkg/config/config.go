package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		setDefaults()

		// Environment variable overrides
		viper.SetEnvPrefix("CALLSCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine: defaults and env vars apply
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	if viper.GetDuration("asr.poll_interval") <= 0 {
		viper.Set("asr.poll_interval", 4*time.Second)
	}
	if viper.GetDuration("asr.wait_timeout") <= 0 {
		viper.Set("asr.wait_timeout", 600*time.Second)
	}

	// Auto-correct invalid batch sizing
	if viper.GetInt("batch.page_size") <= 0 {
		viper.Set("batch.page_size", 500)
	}
	if viper.GetInt("batch.batch_size") <= 0 {
		viper.Set("batch.batch_size", 10)
	}
	if viper.GetInt("batch.qps") <= 0 {
		viper.Set("batch.qps", 20)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.ASR.PollInterval <= 0 {
		c.ASR.PollInterval = 4 * time.Second
	}
	if c.ASR.WaitTimeout <= 0 {
		c.ASR.WaitTimeout = 600 * time.Second
	}
	if c.Batch.PageSize <= 0 {
		c.Batch.PageSize = 500
	}
	if c.Batch.BatchSize <= 0 {
		c.Batch.BatchSize = 10
	}
	if c.Batch.QPS <= 0 {
		c.Batch.QPS = 20
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Database defaults
	viper.SetDefault("database.path", "./data/callscribe.db")
	viper.SetDefault("database.verbose", false)

	// ASR polling defaults
	viper.SetDefault("asr.poll_interval", 4*time.Second)
	viper.SetDefault("asr.wait_timeout", 600*time.Second)
	viper.SetDefault("asr.http_timeout", 30*time.Second)

	// Batch run defaults
	viper.SetDefault("batch.page_size", 500)
	viper.SetDefault("batch.batch_size", 10)
	viper.SetDefault("batch.max_records", 0)
	viper.SetDefault("batch.concurrency", 0)
	viper.SetDefault("batch.qps", 20)
	viper.SetDefault("batch.min_duration", 0)
	viper.SetDefault("batch.skip_existing", true)
	viper.SetDefault("batch.channel_num", 2)
}
