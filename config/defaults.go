package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "botcore.db")

	v.SetDefault("scheduler.all_groups_concurrency_limit", 5)
	v.SetDefault("scheduler.default_spread_seconds", 1)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.ticker_interval_seconds", 1)

	v.SetDefault("hook.filter_bot", true)
	v.SetDefault("hook.check_notice_info_cd", 30)
	v.SetDefault("hook.check_timeout_ms", 3000)
	v.SetDefault("hook.breaker_threshold", 3)
	v.SetDefault("hook.breaker_reset_seconds", 300)
	v.SetDefault("hook.slow_pipeline_warn_ms", 500)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.remote_prefix", "BOTCORE")
	v.SetDefault("cache.remote_timeout_ms", 1500)
	v.SetDefault("cache.negative_ttl_seconds", 300)
}

// BindSensitiveEnvVars binds configuration values that should always be
// sourced from the environment rather than committed config files.
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "BOTCORE_DB_PATH")
}
