// Package sink publishes finished runs to systems outside the local
// filesystem. Publication happens after the dataset is written and never
// changes it.
package sink

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/model"
)

// HeaderRunID carries the run identifier on every published message.
const HeaderRunID = "run_id"

const defaultBatchSize = 500

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits one message per enriched record.
type KafkaPublisher struct {
	writer    MessageWriter
	topic     string
	batchSize int
}

// NewKafkaPublisher wraps an existing writer.
func NewKafkaPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, batchSize: defaultBatchSize}
}

// NewKafkaPublisherFromConfig dials nothing up front; kafka-go connects on
// the first write.
func NewKafkaPublisherFromConfig(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, eris.New("sink: kafka brokers and topic are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaPublisher(w, cfg.Topic), nil
}

// Publish writes records keyed by normalized address, in batches.
func (p *KafkaPublisher) Publish(ctx context.Context, runID string, records []model.EnrichedRecord) error {
	headers := []kafka.Header{{Key: HeaderRunID, Value: []byte(runID)}}

	batch := make([]kafka.Message, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.WriteMessages(ctx, batch...); err != nil {
			return eris.Wrapf(err, "sink: publish %d messages to %s", len(batch), p.topic)
		}
		batch = batch[:0]
		return nil
	}

	for i, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sink: encode record %d", i+1)
		}
		batch = append(batch, kafka.Message{
			Key:     []byte(r.NormalizedText),
			Value:   value,
			Headers: headers,
		})
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	zap.L().Info("sink: records published",
		zap.String("topic", p.topic),
		zap.String("run_id", runID),
		zap.Int("records", len(records)),
	)
	return nil
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
