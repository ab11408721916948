package provider

import (
	"time"

	"go.uber.org/zap"
)

// clientConfig carries the knobs shared by all provider clients
type clientConfig struct {
	client     Doer
	token      string
	l          *zap.Logger
	maxRetries uint64
	interval   time.Duration
}

// ClientOption is a functor to build a provider client with some options
type ClientOption func(*clientConfig)

// HTTPClient injects the HTTP client used for provider API calls
func HTTPClient(client Doer) ClientOption {
	return func(c *clientConfig) {
		c.client = client
	}
}

// AccessToken sets the token presented on authenticated provider calls
func AccessToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.token = token
	}
}

// ClientLogger injects a logging facility into provider calls
func ClientLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.l = l
	}
}

// MaxRetries bounds the retry attempts on idempotent calls
func MaxRetries(n uint64) ClientOption {
	return func(c *clientConfig) {
		c.maxRetries = n
	}
}

// RetryInterval sets the initial backoff interval between retries
func RetryInterval(interval time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.interval = interval
	}
}

func makeConfig(opts []ClientOption) clientConfig {
	c := clientConfig{
		l:          zap.NewNop(),
		maxRetries: defaultMaxRetries,
		interval:   defaultInitialInterval,
	}
	for _, apply := range opts {
		apply(&c)
	}
	return c
}
