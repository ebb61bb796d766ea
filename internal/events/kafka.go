package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
)

// KafkaPublisher publica eventos JSON en un topic, particionando por tenant.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaConfig retorna la config de producer usada por NewKafkaPublisher.
func NewKafkaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// NewKafkaPublisher conecta a los brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("events: create producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer usa un producer existente (tests).
func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(e.TenantID, 10)),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("events: send: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error { return k.producer.Close() }
