package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2/log"
)

const DefaultPremiumTopic = "premium.activated"

// KafkaNotifier publishes entitlement events for downstream consumers.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaNotifier dials the brokers with a producer that waits for all
// in-sync replicas.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "recipefox"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Timeout = 5 * time.Second
	cfg.Net.DialTimeout = 5 * time.Second
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, topic), nil
}

func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultPremiumTopic
	}
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		// keyed by subscriber so one subscriber's events stay ordered
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(ev.SubscriberID), 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}

	log.Infof("[Notify] Published %s for subscriber %d to %s partition=%d offset=%d",
		ev.Type, ev.SubscriberID, k.topic, partition, offset)
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
