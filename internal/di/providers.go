package di

import (
	"fmt"

	"SignalRelay/internal/domain/repository"
	"SignalRelay/internal/handler/api"
	"SignalRelay/internal/service/dedup"
	"SignalRelay/internal/service/forwarder"
	"SignalRelay/internal/service/gateway"
	"SignalRelay/internal/service/kafkabus"
	"SignalRelay/internal/service/oracle"
	"SignalRelay/internal/service/schema"
	"SignalRelay/internal/usecase"
	"SignalRelay/pkg/cache"
	"SignalRelay/pkg/config"
	xhttp "SignalRelay/pkg/http"
	pkgkafka "SignalRelay/pkg/kafka"
	"SignalRelay/pkg/logger"
	"SignalRelay/pkg/metrics"
	"SignalRelay/pkg/server"
)

// Transport bundles the two directions of the selected bus backend.
type Transport struct {
	Bus repository.SignalBus
	Pub repository.Publisher
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the dedup cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Dedup.Backend {
	case "redis":
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Dedup.Redis.Host),
			cache.WithRedisPort(cfg.Dedup.Redis.Port),
			cache.WithRedisPassword(cfg.Dedup.Redis.Password),
			cache.WithRedisDB(cfg.Dedup.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Dedup.MaxEntries)), nil
	}
}

// ProvideDeduper creates the dedup sequencer over the cache backend.
func ProvideDeduper(cfg *config.Config, c cache.Service) repository.Deduper {
	return dedup.New(c, cfg.Dedup.TTL)
}

// ProvideOracle creates the formatting oracle client.
func ProvideOracle(cfg *config.Config) repository.Oracle {
	return oracle.New(cfg.Oracle.APIKey, cfg.Oracle.Model,
		oracle.WithBaseURL(cfg.Oracle.BaseURL),
		oracle.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Oracle.Timeout))),
	)
}

// ProvideTransport selects and builds the bus backend.
func ProvideTransport(cfg *config.Config) (*Transport, error) {
	switch cfg.Bus.Backend {
	case "kafka":
		bus, err := kafkabus.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupID,
			cfg.Kafka.SourceTopics,
			cfg.Kafka.DestinationTopic,
			pkgkafka.WithFetch(cfg.Kafka.MinBytes, cfg.Kafka.MaxBytes),
			pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka bus: %w", err)
		}
		return &Transport{Bus: bus, Pub: bus}, nil
	default:
		stream := gateway.NewStream(
			cfg.Gateway.URL,
			cfg.Gateway.Token,
			cfg.Bus.Sources,
			cfg.Gateway.ReconnectDelay,
			cfg.Gateway.PingInterval,
		)
		pub := gateway.NewPublisher(cfg.Gateway.APIURL, cfg.Gateway.Token,
			gateway.WithLinkPreview(cfg.Gateway.DisableLinkPreview != nil && !*cfg.Gateway.DisableLinkPreview),
		)
		return &Transport{Bus: stream, Pub: pub}, nil
	}
}

// ProvideValidator creates the schema validator/repairer.
func ProvideValidator() *schema.Validator {
	return schema.NewValidator()
}

// ProvideJournal creates the recent-results journal.
func ProvideJournal() *usecase.Journal {
	return usecase.NewJournal(200)
}

// ProvideForwarder creates the destination forwarder.
func ProvideForwarder(cfg *config.Config, t *Transport, m repository.Metrics, log *logger.Logger) *forwarder.Forwarder {
	return forwarder.New(t.Pub, cfg.Bus.Destination, m, log,
		forwarder.WithRetry(cfg.Forward.MaxAttempts, cfg.Forward.BackoffMin, cfg.Forward.BackoffMax),
	)
}

// ProvidePipeline creates the per-message orchestrator.
func ProvidePipeline(
	cfg *config.Config,
	o repository.Oracle,
	v *schema.Validator,
	d repository.Deduper,
	f *forwarder.Forwarder,
	m repository.Metrics,
	log *logger.Logger,
	j *usecase.Journal,
) *usecase.Pipeline {
	return usecase.NewPipeline(o, v, d, f, m, log, j,
		usecase.WithMessageTimeout(cfg.Pipeline.MessageTimeout),
		usecase.WithOracleRetry(cfg.Oracle.MaxAttempts, cfg.Oracle.BackoffMin, cfg.Oracle.BackoffMax),
	)
}

// ProvideCollector creates the source multiplexer.
func ProvideCollector(cfg *config.Config, t *Transport, pipe *usecase.Pipeline, m repository.Metrics, log *logger.Logger) *usecase.SignalCollector {
	return usecase.NewSignalCollector(t.Bus, pipe, cfg.Bus.Sources, m, log,
		usecase.WithSourceWorkers(cfg.Bus.SourceWorkers),
		usecase.WithSourceQueue(cfg.Bus.SourceQueue),
		usecase.WithSourceThrottle(cfg.Bus.SourceBurst, cfg.Bus.SourceRPS),
	)
}

// ProvideStatusHandler creates the ops HTTP handler.
func ProvideStatusHandler(log *logger.Logger, j *usecase.Journal, c *usecase.SignalCollector) xhttp.Handler {
	return api.NewStatusHandler(log, j, c)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.SignalCollector,
	handler xhttp.Handler,
	c cache.Service,
	t *Transport,
) *server.App {
	return server.New(cfg, log, collector, handler, c, t.Pub)
}
