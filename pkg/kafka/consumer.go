package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Record is one consumed message with its topic of origin.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// Consumer reads a set of topics through one reader per topic and merges the
// streams into a single channel.
type Consumer struct {
	cfg      *Config
	readers  map[string]*kafka.Reader
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConsumer creates a consumer over the given topics.
func NewConsumer(topics []string, opts ...Option) (*Consumer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}

	readers := make(map[string]*kafka.Reader, len(topics))
	for _, topic := range topics {
		readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}

	return &Consumer{cfg: cfg, readers: readers}, nil
}

// Read starts one read loop per topic and returns merged record and error
// channels. Both channels close when ctx is canceled and all loops exit.
func (c *Consumer) Read(ctx context.Context) (<-chan *Record, <-chan error) {
	records := make(chan *Record, 256)
	errs := make(chan error, len(c.readers))

	for topic, reader := range c.readers {
		c.wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer c.wg.Done()
			for {
				m, err := r.ReadMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					select {
					case errs <- fmt.Errorf("read %s: %w", topic, err):
					default:
					}
					return
				}
				rec := &Record{
					Topic:     m.Topic,
					Partition: m.Partition,
					Offset:    m.Offset,
					Key:       m.Key,
					Value:     m.Value,
					Time:      m.Time,
				}
				select {
				case records <- rec:
				case <-ctx.Done():
					return
				}
			}
		}(topic, reader)
	}

	go func() {
		c.wg.Wait()
		close(records)
		close(errs)
	}()

	return records, errs
}

// Close closes all topic readers.
func (c *Consumer) Close() error {
	var firstErr error
	c.stopOnce.Do(func() {
		for topic, r := range c.readers {
			if err := r.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close reader %s: %w", topic, err)
			}
		}
	})
	return firstErr
}
