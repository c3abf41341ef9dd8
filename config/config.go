// Package config defines and loads the runtime configuration for the
// authorization pipeline, scheduler, tag resolver, and their collaborators.
package config

// Config is the root configuration for the module.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Hook      HookConfig      `mapstructure:"hook"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// DatabaseConfig configures the SQLite-backed job/tag/settings store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig configures the scheduler's concurrency and timing defaults.
type SchedulerConfig struct {
	AllGroupsConcurrencyLimit int    `mapstructure:"all_groups_concurrency_limit"`
	DefaultJitterSeconds      int    `mapstructure:"default_jitter_seconds"`
	DefaultSpreadSeconds      int    `mapstructure:"default_spread_seconds"`
	DefaultIntervalSeconds    int    `mapstructure:"default_interval_seconds"`
	Timezone                  string `mapstructure:"timezone"`
	TickerIntervalSeconds     int    `mapstructure:"ticker_interval_seconds"`
}

// HookConfig configures the authorization pipeline's timeouts and circuit breaker.
type HookConfig struct {
	FilterBot          bool `mapstructure:"filter_bot"`
	CheckNoticeInfoCD  int  `mapstructure:"check_notice_info_cd"`
	CheckTimeoutMS     int  `mapstructure:"check_timeout_ms"`
	BreakerThreshold   int  `mapstructure:"breaker_threshold"`
	BreakerResetSecs   int  `mapstructure:"breaker_reset_seconds"`
	SlowPipelineWarnMS int  `mapstructure:"slow_pipeline_warn_ms"`
}

// CacheConfig configures the typed-KV cache front for the store.
type CacheConfig struct {
	Backend            string `mapstructure:"backend"` // memory | remote | none
	RemotePrefix       string `mapstructure:"remote_prefix"`
	RemoteTimeoutMS    int    `mapstructure:"remote_timeout_ms"`
	NegativeTTLSeconds int    `mapstructure:"negative_ttl_seconds"`
}

// File permission constants used when writing config/state files.
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
