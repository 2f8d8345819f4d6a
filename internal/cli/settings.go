package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ppiankov/clinmatch/internal/model"
)

// setDefaults registers every config key with viper so that environment
// variables are picked up for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("resolver.url", cfg.Resolver.URL)
	v.SetDefault("resolver.timeout", cfg.Resolver.Timeout)
	v.SetDefault("resolver.language", cfg.Resolver.Language)
	v.SetDefault("resolver.top_k", cfg.Resolver.TopK)
	v.SetDefault("resolver.send_context", cfg.Resolver.SendContext)
	v.SetDefault("resolver.retries", cfg.Resolver.Retries)
	v.SetDefault("resolver.retry_backoff", cfg.Resolver.RetryBackoff)
	v.SetDefault("resolver.user_agent", cfg.Resolver.UserAgent)
	v.SetDefault("resolver.http_proxy", cfg.Resolver.HTTPProxy)
	v.SetDefault("resolver.https_proxy", cfg.Resolver.HTTPSProxy)
	v.SetDefault("resolver.no_proxy", cfg.Resolver.NoProxy)
	v.SetDefault("resolver.requests_per_second", cfg.Resolver.RequestsPerSecond)
	v.SetDefault("resolver.burst", cfg.Resolver.Burst)

	v.SetDefault("concurrency.limit", cfg.Concurrency.Limit)
	v.SetDefault("reducer.lookahead", cfg.Reducer.Lookahead)

	v.SetDefault("dedupe.enabled", cfg.Dedupe.Enabled)
	v.SetDefault("dedupe.ttl", cfg.Dedupe.TTL)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("output.write_partial", cfg.Output.WritePartial)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// loadConfig resolves the layered configuration (flags, env, file, defaults)
// into a validated model.Config.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
