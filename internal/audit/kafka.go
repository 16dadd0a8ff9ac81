package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaMessageWriter abstracts kafka.Writer for tests.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes records as JSON, keyed by operation.
type KafkaSink struct {
	writer kafkaMessageWriter
}

// NewKafkaSink builds a synchronous writer for topic that sends each record
// as soon as it is emitted.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		// One record per gated call: flush it at once instead of waiting
		// out the default one second batch window.
		BatchSize:    1,
		BatchTimeout: 5 * time.Millisecond,
		WriteTimeout: 2 * time.Second,
	}}
}

func newKafkaSinkWith(w kafkaMessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Emit(ctx context.Context, r Record) {
	b, err := json.Marshal(r)
	if err != nil {
		reportFailure("kafka", r, err)
		return
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(r.Operation), Value: b}); err != nil {
		reportFailure("kafka", r, err)
	}
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
