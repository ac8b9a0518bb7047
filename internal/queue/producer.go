// Package queue hands background jobs (scrapes, email sends) to Kafka so
// workers can pick them up out of band.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes JSON job payloads, one writer per topic. When no brokers
// are configured it degrades to a no-op that logs dropped jobs, so agents
// keep working in a single-binary setup without Kafka.
type Producer struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewProducer creates a producer for the given bootstrap brokers. An empty
// list yields the no-op producer.
func NewProducer(brokers []string) *Producer {
	var clean []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			clean = append(clean, b)
		}
	}
	return &Producer{brokers: clean, writers: make(map[string]*kafka.Writer)}
}

// Enabled reports whether jobs actually reach a broker.
func (p *Producer) Enabled() bool { return len(p.brokers) > 0 }

// Enqueue serializes payload as JSON and publishes it to topic.
func (p *Producer) Enqueue(ctx context.Context, topic string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	if !p.Enabled() {
		slog.Debug("Job dropped, no brokers configured", "topic", topic)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s-%d", topic, time.Now().UnixNano())),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("enqueue to %s: %w", topic, err)
	}
	slog.Debug("Job enqueued", "topic", topic, "bytes", len(value))
	return nil
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

// Close shuts down all topic writers.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}
