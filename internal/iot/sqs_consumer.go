package iot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"plate_reader/internal/domain"
)

// SQSAPI is the part of *sqs.Client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Triggerer starts a detection attempt on the running capture session.
type Triggerer interface {
	TriggerDetection(mode domain.DetectionMode) (<-chan domain.DetectionReport, error)
}

type SQSConsumer struct {
	sqsClient  SQSAPI
	queueURL   string
	controller Triggerer
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, controller Triggerer) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		controller: controller,
		retryDelay: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   30,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("SQS Consumer: error receiving messages: %v", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				log.Println("SQS Consumer: context cancelled while waiting for retry.")
				return
			}
			continue
		}

		for _, message := range result.Messages {
			var body string
			if message.Body != nil {
				body = *message.Body
			}
			if c.handleMessage(body) {
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

// handleMessage reports whether the message is done with and can be deleted.
// A busy controller leaves the message on the queue so SQS redelivers it later.
func (c *SQSConsumer) handleMessage(body string) bool {
	if body == "" {
		log.Println("SQS Consumer: empty message body, deleting.")
		return true
	}

	var msg domain.CaptureTriggerMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		log.Printf("SQS Consumer: cannot parse trigger message: %v. Deleting.", err)
		return true
	}
	if !msg.RequestsCapture() {
		log.Printf("SQS Consumer: ignoring event %s of type %q", msg.EventID, msg.EventType)
		return true
	}

	_, err := c.controller.TriggerDetection(domain.ModeManual)
	switch {
	case err == nil:
		log.Printf("SQS Consumer: event %s from %s triggered a capture", msg.EventID, msg.DeviceID)
		return true
	case errors.Is(err, domain.ErrBusy):
		log.Printf("SQS Consumer: controller busy, event %s will be redelivered", msg.EventID)
		return false
	case errors.Is(err, domain.ErrNotRunning):
		log.Printf("SQS Consumer: no capture session running, dropping event %s", msg.EventID)
		return true
	default:
		log.Printf("SQS Consumer: trigger for event %s failed: %v", msg.EventID, err)
		return false
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: empty receipt handle, cannot delete message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: error deleting message: %v", delErr)
	}
}
