package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"plate_reader/internal/domain"
)

func sampleEvent() domain.PlateEvent {
	return domain.PlateEvent{
		EventID:    "evt-1",
		SessionID:  "sess-1",
		Plate:      "ABC123",
		Confidence: 0.92,
		Mode:       domain.ModeManual,
		CapturedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestBuildPlateMessage(t *testing.T) {
	msg, err := buildPlateMessage("plates", sampleEvent())
	if err != nil {
		t.Fatalf("buildPlateMessage: %v", err)
	}
	if *msg.TopicPartition.Topic != "plates" {
		t.Errorf("unexpected topic %s", *msg.TopicPartition.Topic)
	}
	if string(msg.Key) != "ABC123" {
		t.Errorf("message should be keyed by plate, got %q", msg.Key)
	}
	var decoded domain.PlateEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.EventID != "evt-1" || decoded.Confidence != 0.92 {
		t.Errorf("unexpected payload %+v", decoded)
	}
	if len(msg.Headers) != 3 || msg.Headers[2].Key != "mode" || string(msg.Headers[2].Value) != "manual" {
		t.Errorf("unexpected headers %+v", msg.Headers)
	}
}

type stubIoTData struct {
	input *iotdataplane.PublishInput
	err   error
}

func (s *stubIoTData) Publish(_ context.Context, in *iotdataplane.PublishInput, _ ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error) {
	s.input = in
	return &iotdataplane.PublishOutput{}, s.err
}

func TestIoTPublisher_Publish(t *testing.T) {
	stub := &stubIoTData{}
	p := NewIoTPublisher(stub, "plates/detections")

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(stub.input.Topic) != "plates/detections" || stub.input.Qos != 1 {
		t.Errorf("unexpected input %+v", stub.input)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(stub.input.Payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["plate"] != "ABC123" || decoded["mode"] != "manual" {
		t.Errorf("unexpected payload %v", decoded)
	}
}

type recordingPublisher struct {
	events []domain.PlateEvent
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, ev domain.PlateEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() { r.closed = true }

func TestMulti(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), sampleEvent())
	if err == nil || !errors.Is(err, failing.err) {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Error("a failing sink must not block the others")
	}
	m.Close()
	if !ok.closed || !failing.closed {
		t.Error("Close should reach every sink")
	}
}
