package kafka

import "time"

// Option configures the transport.
type Option func(*Config)

// Config holds shared Kafka transport configuration.
type Config struct {
	Brokers      []string
	GroupID      string
	MinBytes     int
	MaxBytes     int
	WriteTimeout time.Duration
	MaxAttempts  int
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) Option {
	return func(c *Config) {
		c.Brokers = brokers
	}
}

// WithGroupID sets the consumer group ID.
func WithGroupID(groupID string) Option {
	return func(c *Config) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithFetch sets fetch min/max bytes.
func WithFetch(minBytes, maxBytes int) Option {
	return func(c *Config) {
		if minBytes > 0 {
			c.MinBytes = minBytes
		}
		if maxBytes > 0 {
			c.MaxBytes = maxBytes
		}
	}
}

// WithWriteTimeout sets the producer write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.WriteTimeout = d
		}
	}
}

// WithMaxAttempts sets producer write attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		GroupID:      "signalrelay",
		MinBytes:     1,
		MaxBytes:     10e6, // 10MB
		WriteTimeout: 10 * time.Second,
		MaxAttempts:  3,
	}
}
