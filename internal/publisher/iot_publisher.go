package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"plate_reader/internal/domain"
)

type IoTDataPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPublisher sends plate events to an AWS IoT Core MQTT topic, e.g. for a gate controller.
type IoTPublisher struct {
	iotDataClient IoTDataPublisher
	topic         string
}

func NewIoTPublisher(client IoTDataPublisher, topic string) *IoTPublisher {
	return &IoTPublisher{iotDataClient: client, topic: topic}
}

func (p *IoTPublisher) Publish(ctx context.Context, ev domain.PlateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal plate event: %w", err)
	}

	_, err = p.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish MQTT message: %w", err)
	}
	log.Printf("IoTPublisher: published plate %s to %s", ev.Plate, p.topic)
	return nil
}

func (p *IoTPublisher) Close() {}
