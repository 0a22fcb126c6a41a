package queue

import "github.com/spf13/viper"

// Config selects and parameterizes the queue backend.
type Config struct {
	UseRelay   bool
	RedisURL   string
	RelayURL   string
	RelayToken string
}

// FromViper reads the queue configuration.
func FromViper() Config {
	return Config{
		UseRelay:   viper.GetBool("queue.use_relay"),
		RedisURL:   viper.GetString("queue.redis_url"),
		RelayURL:   viper.GetString("queue.relay_url"),
		RelayToken: viper.GetString("queue.relay_token"),
	}
}

// New constructs the Dispatcher for the given configuration. The broker
// backend is used when a Redis URL is configured and the relay is not
// forced; otherwise the relay backend is used. With neither configured
// it returns ErrBackendUnavailable.
func New(cfg Config) (Dispatcher, error) {
	if !cfg.UseRelay && cfg.RedisURL != "" {
		return NewRedisQueue(cfg.RedisURL)
	}
	if cfg.RelayURL != "" {
		return NewRelayQueue(cfg.RelayURL, cfg.RelayToken), nil
	}
	return nil, ErrBackendUnavailable
}
