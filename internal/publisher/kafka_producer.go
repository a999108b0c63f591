package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"plate_reader/internal/domain"
)

type KafkaConfig struct {
	Brokers      string
	Topic        string
	ClientID     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// KafkaProducer publishes plate events keyed by plate text.
type KafkaProducer struct {
	producer     *kafka.Producer
	topic        string
	deliveryChan chan kafka.Event

	messagesSent   atomic.Int64
	messagesAcked  atomic.Int64
	messagesFailed atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	maxRetries  int
	baseBackoff time.Duration
}

func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"client.id":          cfg.ClientID,
		"acks":               "all",
		"enable.idempotence": true,
		"linger.ms":          5,
		"request.timeout.ms": 30000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	kp := &KafkaProducer{
		producer:     p,
		topic:        cfg.Topic,
		deliveryChan: make(chan kafka.Event, 1000),
		ctx:          ctx,
		cancel:       cancel,
		maxRetries:   cfg.MaxRetries,
		baseBackoff:  cfg.RetryBackoff,
	}
	if kp.baseBackoff <= 0 {
		kp.baseBackoff = 100 * time.Millisecond
	}

	kp.wg.Add(1)
	go kp.handleDeliveryReports()

	log.Printf("KafkaProducer: initialized - topic: %s, brokers: %s", cfg.Topic, cfg.Brokers)
	return kp, nil
}

func (kp *KafkaProducer) handleDeliveryReports() {
	defer kp.wg.Done()
	for {
		select {
		case <-kp.ctx.Done():
			return
		case e := <-kp.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				kp.messagesFailed.Add(1)
				log.Printf("KafkaProducer: delivery failed: %v", m.TopicPartition.Error)
				continue
			}
			kp.messagesAcked.Add(1)
		}
	}
}

// buildPlateMessage encodes an event for the topic. The plate is the key so
// sightings of the same vehicle stay on one partition.
func buildPlateMessage(topic string, ev domain.PlateEvent) (*kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize plate event: %w", err)
	}
	t := topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &t, Partition: kafka.PartitionAny},
		Key:            []byte(ev.Plate),
		Value:          payload,
		Timestamp:      ev.CapturedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "session_id", Value: []byte(ev.SessionID)},
			{Key: "mode", Value: []byte(ev.Mode)},
		},
	}, nil
}

func (kp *KafkaProducer) Publish(ctx context.Context, ev domain.PlateEvent) error {
	message, err := buildPlateMessage(kp.topic, ev)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= kp.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := kp.baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := kp.producer.Produce(message, kp.deliveryChan)
		if err == nil {
			kp.messagesSent.Add(1)
			return nil
		}
		lastErr = err
		if kafkaErr, ok := err.(kafka.Error); ok && !kafkaErr.IsRetriable() {
			return fmt.Errorf("non-retriable error: %w", err)
		}
	}

	kp.messagesFailed.Add(1)
	return fmt.Errorf("failed after %d retries: %w", kp.maxRetries, lastErr)
}

func (kp *KafkaProducer) Metrics() map[string]int64 {
	return map[string]int64{
		"messages_sent":   kp.messagesSent.Load(),
		"messages_acked":  kp.messagesAcked.Load(),
		"messages_failed": kp.messagesFailed.Load(),
	}
}

func (kp *KafkaProducer) Close() {
	remaining := kp.producer.Flush(10000)
	if remaining > 0 {
		log.Printf("KafkaProducer: %d messages still queued after flush", remaining)
	}
	kp.cancel()
	kp.wg.Wait()
	kp.producer.Close()
	m := kp.Metrics()
	log.Printf("KafkaProducer: closed - sent: %d, acked: %d, failed: %d",
		m["messages_sent"], m["messages_acked"], m["messages_failed"])
}
