package config

import "time"

// Config is the complete application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Database    DatabaseConfig `mapstructure:"database"`
	ASR         ASRConfig      `mapstructure:"asr"`
	Batch       BatchConfig    `mapstructure:"batch"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// ASRConfig tunes the vendor poll loops and the shared HTTP pool
type ASRConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

// BatchConfig holds the default batch run parameters
type BatchConfig struct {
	PageSize     int  `mapstructure:"page_size"`
	BatchSize    int  `mapstructure:"batch_size"`
	MaxRecords   int  `mapstructure:"max_records"`
	Concurrency  int  `mapstructure:"concurrency"`
	QPS          int  `mapstructure:"qps"`
	MinDuration  int  `mapstructure:"min_duration"`
	SkipExisting bool `mapstructure:"skip_existing"`
	ChannelNum   int  `mapstructure:"channel_num"`
}
