package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Bus struct {
		Backend       string   `yaml:"backend" default:"gateway" validate:"oneof=gateway kafka"`
		Sources       []string `yaml:"sources" validate:"min=1"`
		Destination   string   `yaml:"destination" validate:"required"`
		SourceWorkers int      `yaml:"source_workers" default:"4" validate:"gt=0"`
		SourceQueue   int      `yaml:"source_queue" default:"64" validate:"gt=0"`
		SourceBurst   float64  `yaml:"source_burst" default:"5"`
		SourceRPS     float64  `yaml:"source_rps" default:"2"`
	} `yaml:"bus"`
	Gateway struct {
		URL                string        `yaml:"url"`
		Token              string        `yaml:"token"`
		APIURL             string        `yaml:"api_url" default:"https://api.telegram.org"`
		ReconnectDelay     time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval       time.Duration `yaml:"ping_interval" default:"30s"`
		// Pointer so an explicit false survives default application.
		DisableLinkPreview *bool         `yaml:"disable_link_preview" default:"true"`
	} `yaml:"gateway"`
	Kafka struct {
		Brokers          []string          `yaml:"brokers"`
		GroupID          string            `yaml:"group_id" default:"signalrelay"`
		SourceTopics     map[string]string `yaml:"source_topics"` // source id -> topic
		DestinationTopic string            `yaml:"destination_topic"`
		MinBytes         int               `yaml:"min_bytes" default:"1"`
		MaxBytes         int               `yaml:"max_bytes" default:"10485760"`
		WriteTimeout     time.Duration     `yaml:"write_timeout" default:"10s"`
		MaxAttempts      int               `yaml:"max_attempts" default:"3"`
	} `yaml:"kafka"`
	Oracle struct {
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"gemini-2.0-flash"`
		BaseURL     string        `yaml:"base_url" default:"https://generativelanguage.googleapis.com/v1beta"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"gt=0"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"500ms"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
	} `yaml:"oracle"`
	Dedup struct {
		Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		TTL        time.Duration `yaml:"ttl" default:"10m"`
		MaxEntries int           `yaml:"max_entries" default:"4096" validate:"gt=0"`
		Redis      struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"dedup"`
	Forward struct {
		MaxAttempts int           `yaml:"max_attempts" default:"4" validate:"gt=0"`
		BackoffMin  time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax  time.Duration `yaml:"backoff_max" default:"3s"`
	} `yaml:"forward"`
	Pipeline struct {
		MessageTimeout time.Duration `yaml:"message_timeout" default:"45s"`
	} `yaml:"pipeline"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file in the working directory is honored for local runs.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv("BUS_BACKEND"); v != "" {
		c.Bus.Backend = v
	}
	if v := os.Getenv("SOURCE_GROUPS"); v != "" {
		c.Bus.Sources = splitList(v)
	}
	if v := os.Getenv("DESTINATION_GROUP"); v != "" {
		c.Bus.Destination = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Dedup.Redis.Password = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks structural rules plus the cross-field requirements the
// selected backends imply.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}

	switch c.Bus.Backend {
	case "gateway":
		if c.Gateway.URL == "" {
			return fmt.Errorf("gateway.url is required for gateway backend")
		}
		if c.Gateway.Token == "" {
			return fmt.Errorf("gateway.token is required for gateway backend")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty for kafka backend")
		}
		if c.Kafka.DestinationTopic == "" {
			return fmt.Errorf("kafka.destination_topic is required for kafka backend")
		}
		for _, src := range c.Bus.Sources {
			if _, ok := c.Kafka.SourceTopics[src]; !ok {
				return fmt.Errorf("kafka.source_topics missing entry for source %q", src)
			}
		}
	}

	return nil
}
