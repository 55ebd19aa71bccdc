package progress

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/zeromicro/go-zero/core/logx"
)

type KafkaConf struct {
	Brokers []string `json:",optional"`
	Topic   string   `json:",default=newton-progress"`
}

// KafkaPublisher writes events to a topic, keyed by run so a run's events stay
// ordered within one partition. Writes are asynchronous.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(c KafkaConf) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(c.Brokers...),
			Topic:                  c.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logx.Errorf("progress: kafka write of %d events: %v", len(messages), err)
				}
			},
		},
	}
}

func kafkaMessage(ev Event) (kafka.Message, error) {
	value, err := Encode(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.Run),
		Value: value,
		Time:  ev.Time,
	}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := kafkaMessage(ev)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, msg)
}

// Close flushes pending events.
func (k *KafkaPublisher) Close() error {
	return k.w.Close()
}
