package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fekuna/shopsync-service/config"
	"github.com/segmentio/kafka-go"
)

// KafkaDispatcher publishes jobs keyed by shop so one shop's jobs share a partition.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(cfg config.KafkaConfig) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, jobs ...*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(jobs))
	for _, job := range jobs {
		value, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", job.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(job.ShopID, 10)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "job_type", Value: []byte(job.Type)},
			},
		})
	}
	if err := d.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d jobs: %w", len(msgs), err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// KafkaSource reads jobs through a consumer group; offsets are committed on Ack.
type KafkaSource struct {
	reader *kafka.Reader
}

func NewKafkaSource(cfg config.KafkaConfig) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

// Fetch returns a Delivery with a nil Job for messages that do not decode, so the worker
// can commit past them.
func (s *KafkaSource) Fetch(ctx context.Context) (*Delivery, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	ack := func(ctx context.Context) error {
		return s.reader.CommitMessages(ctx, msg)
	}

	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return &Delivery{Ack: ack}, nil
	}
	return &Delivery{Job: &job, Ack: ack}, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
