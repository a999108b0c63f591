package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"plate_reader/internal/domain"
)

type stubTextDetector struct {
	out *rekognition.DetectTextOutput
	err error
	in  *rekognition.DetectTextInput
}

func (s *stubTextDetector) DetectText(_ context.Context, in *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	s.in = in
	return s.out, s.err
}

func textDetection(text string, conf float32, left, top, w, h float32) types.TextDetection {
	return types.TextDetection{
		Type:         types.TextTypesLine,
		DetectedText: aws.String(text),
		Confidence:   aws.Float32(conf),
		Geometry: &types.Geometry{BoundingBox: &types.BoundingBox{
			Left: aws.Float32(left), Top: aws.Float32(top), Width: aws.Float32(w), Height: aws.Float32(h),
		}},
	}
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func TestSelectPlate_HighestConfidenceMatch(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{2,4}[- ]?[A-Z0-9]{2,5}$`)
	detections := []types.TextDetection{
		textDetection("PARKING ONLY", 99, 0, 0, 0.5, 0.1),
		textDetection("abc 123", 91.5, 0.25, 0.5, 0.25, 0.125),
		textDetection("XY-9876", 80, 0.1, 0.1, 0.2, 0.1),
	}

	resp := selectPlate(detections, re, 800, 600)
	if resp.PlateText != "ABC123" {
		t.Fatalf("expected ABC123, got %q", resp.PlateText)
	}
	if resp.Confidence != float64(float32(91.5))/100 {
		t.Errorf("confidence should be scaled to [0,1], got %v", resp.Confidence)
	}
	want := domain.BoundingBox{200, 300, 400, 375}
	if resp.BoundingBox == nil || *resp.BoundingBox != want {
		t.Errorf("expected bbox %v, got %v", want, resp.BoundingBox)
	}
	if len(resp.CandidateRegions) != 2 {
		t.Errorf("expected 2 candidate regions, got %d", len(resp.CandidateRegions))
	}
}

func TestSelectPlate_NoMatch(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	resp := selectPlate([]types.TextDetection{textDetection("hello world", 95, 0, 0, 1, 1)}, re, 100, 100)
	if resp.PlateText != "" || resp.Message == "" {
		t.Errorf("expected empty plate with message, got %+v", resp)
	}
}

func TestRekognitionDetectionClient_Detect(t *testing.T) {
	stub := &stubTextDetector{out: &rekognition.DetectTextOutput{
		TextDetections: []types.TextDetection{textDetection("ABC123", 92, 0.5, 0.5, 0.25, 0.25)},
	}}
	client, err := NewRekognitionDetectionClient(stub, `^[A-Z]{3}[0-9]{3}$`)
	if err != nil {
		t.Fatalf("NewRekognitionDetectionClient: %v", err)
	}

	resp, err := client.Detect(context.Background(), domain.DetectionRequest{
		ImageBytes:          testJPEG(t, 400, 200),
		ConfidenceThreshold: 0.25,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if resp.PlateText != "ABC123" {
		t.Errorf("expected ABC123, got %q", resp.PlateText)
	}
	if resp.BoundingBox == nil || *resp.BoundingBox != (domain.BoundingBox{200, 100, 300, 150}) {
		t.Errorf("unexpected bbox %v", resp.BoundingBox)
	}
	if got := aws.ToFloat32(stub.in.Filters.WordFilter.MinConfidence); got != 25 {
		t.Errorf("expected min confidence 25, got %v", got)
	}
}

func TestRekognitionDetectionClient_Throttled(t *testing.T) {
	stub := &stubTextDetector{err: &types.ThrottlingException{Message: aws.String("slow down")}}
	client, _ := NewRekognitionDetectionClient(stub, `.+`)

	_, err := client.Detect(context.Background(), domain.DetectionRequest{})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestNewRekognitionDetectionClient_BadPattern(t *testing.T) {
	if _, err := NewRekognitionDetectionClient(&stubTextDetector{}, "("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
