// Package kafkabus adapts bridge deployments where group traffic is mirrored
// into Kafka: each source group maps to a topic, the destination group to a
// producer topic. It serves both bus directions.
package kafkabus

import (
	"context"
	"fmt"
	"sync/atomic"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	pkgkafka "SignalRelay/pkg/kafka"
)

// Bus implements repository.SignalBus and repository.Publisher over Kafka
// topics.
type Bus struct {
	consumer  *pkgkafka.Consumer
	producer  *pkgkafka.Producer
	sources   map[string]string // topic -> source id
	destTopic string
	connected atomic.Bool
}

// New creates a Kafka bus. sourceTopics maps source id -> topic.
func New(brokers []string, groupID string, sourceTopics map[string]string, destTopic string, opts ...pkgkafka.Option) (*Bus, error) {
	topics := make([]string, 0, len(sourceTopics))
	byTopic := make(map[string]string, len(sourceTopics))
	for source, topic := range sourceTopics {
		topics = append(topics, topic)
		byTopic[topic] = source
	}

	base := []pkgkafka.Option{pkgkafka.WithBrokers(brokers), pkgkafka.WithGroupID(groupID)}
	opts = append(base, opts...)

	consumer, err := pkgkafka.NewConsumer(topics, opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	producer, err := pkgkafka.NewProducer(opts...)
	if err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return &Bus{
		consumer:  consumer,
		producer:  producer,
		sources:   byTopic,
		destTopic: destTopic,
	}, nil
}

// Connect marks the bus ready; kafka-go dials lazily on first fetch.
func (b *Bus) Connect(ctx context.Context) error {
	b.connected.Store(true)
	return nil
}

// Read streams raw signals decoded from the source topics. The partition
// offset serves as the source-scoped message sequence number.
func (b *Bus) Read(ctx context.Context) (<-chan *models.RawSignal, <-chan error) {
	signals := make(chan *models.RawSignal, 256)
	errs := make(chan error, 1)

	records, readErrs := b.consumer.Read(ctx)

	go func() {
		defer close(signals)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-readErrs:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			case rec, ok := <-records:
				if !ok {
					return
				}
				source, known := b.sources[rec.Topic]
				if !known {
					continue
				}
				sig := models.NewRawSignal(source, rec.Offset, string(rec.Value), rec.Time)
				select {
				case signals <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return signals, errs
}

// Reconnect is a no-op beyond marking connectivity; group readers rebalance
// and redial on their own.
func (b *Bus) Reconnect(ctx context.Context) error {
	return b.Connect(ctx)
}

// Publish writes the rendered text to the destination topic. Kafka write
// failures are transient: the client already exhausted its in-flight retry
// budget, and another delivery attempt is safe.
func (b *Bus) Publish(ctx context.Context, destination, text string) error {
	if err := b.producer.Publish(ctx, b.destTopic, []byte(destination), []byte(text)); err != nil {
		return fmt.Errorf("%w: %v", drepo.ErrPublishTransient, err)
	}
	return nil
}

// Close closes both directions.
func (b *Bus) Close() error {
	b.connected.Store(false)
	cerr := b.consumer.Close()
	perr := b.producer.Close()
	if cerr != nil {
		return cerr
	}
	return perr
}

// IsConnected indicates status.
func (b *Bus) IsConnected() bool { return b.connected.Load() }
