package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"plate_reader/internal/domain"
)

// TextDetector is the part of the Rekognition API used for plate reading.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionDetectionClient reads plates with AWS Rekognition DetectText.
type RekognitionDetectionClient struct {
	rekognitionClient TextDetector
	plateRegex        *regexp.Regexp
}

func NewRekognitionDetectionClient(rekClient TextDetector, platePattern string) (*RekognitionDetectionClient, error) {
	re, err := regexp.Compile(platePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid plate pattern %q: %w", platePattern, err)
	}
	return &RekognitionDetectionClient{rekognitionClient: rekClient, plateRegex: re}, nil
}

func (s *RekognitionDetectionClient) Detect(ctx context.Context, req domain.DetectionRequest) (*domain.DetectionResponse, error) {
	if s.rekognitionClient == nil {
		return nil, &domain.FailureError{ReasonCode: "not_configured", Message: "Rekognition client is not initialized"}
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: req.ImageBytes},
		Filters: &types.DetectTextFilters{
			WordFilter: &types.DetectionFilter{
				MinConfidence: aws.Float32(float32(req.ConfidenceThreshold * 100)),
			},
		},
	}

	result, err := s.rekognitionClient.DetectText(ctx, input)
	if err != nil {
		log.Printf("RekognitionDetectionClient: DetectText failed: %v", err)
		return nil, classifyAWSError(err)
	}
	log.Printf("RekognitionDetectionClient: Rekognition returned %d text blocks", len(result.TextDetections))

	width, height := imageSize(req.ImageBytes)
	return selectPlate(result.TextDetections, s.plateRegex, width, height), nil
}

// selectPlate keeps the regex-matching text with the highest confidence.
// Other matches become candidate regions.
func selectPlate(detections []types.TextDetection, plateRegex *regexp.Regexp, width, height int) *domain.DetectionResponse {
	out := &domain.DetectionResponse{}
	var bestConfidence float32
	var seen []string

	for _, td := range detections {
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		if td.DetectedText == nil || td.Confidence == nil {
			continue
		}
		txt := normalizePlate(*td.DetectedText)
		seen = append(seen, fmt.Sprintf("%s (%.2f)", txt, *td.Confidence))
		if !plateRegex.MatchString(txt) {
			continue
		}

		box := toPixelBox(td.Geometry, width, height)
		conf := float64(*td.Confidence) / 100
		if box != nil {
			out.CandidateRegions = append(out.CandidateRegions, domain.CandidateRegion{Box: *box, Confidence: conf})
		}
		if *td.Confidence > bestConfidence {
			bestConfidence = *td.Confidence
			out.PlateText = txt
			out.Confidence = conf
			out.BoundingBox = box
			out.DetectorConfidence = conf
		}
	}

	if out.PlateText == "" {
		log.Printf("RekognitionDetectionClient: no text matched the plate pattern: %s", strings.Join(seen, ", "))
		out.Message = "No license plate text recognized"
	}
	return out
}

func normalizePlate(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), "")
}

// toPixelBox converts Rekognition's ratio geometry into pixel corners. Without
// image dimensions the box is unknown.
func toPixelBox(g *types.Geometry, width, height int) *domain.BoundingBox {
	if g == nil || g.BoundingBox == nil || width <= 0 || height <= 0 {
		return nil
	}
	bb := g.BoundingBox
	left := float64(aws.ToFloat32(bb.Left)) * float64(width)
	top := float64(aws.ToFloat32(bb.Top)) * float64(height)
	w := float64(aws.ToFloat32(bb.Width)) * float64(width)
	h := float64(aws.ToFloat32(bb.Height)) * float64(height)
	return &domain.BoundingBox{left, top, left + w, top + h}
}

func imageSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func classifyAWSError(err error) error {
	var throttled *types.ThrottlingException
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) || errors.As(err, &throughput) {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &domain.FailureError{ReasonCode: apiErr.ErrorCode(), Message: apiErr.ErrorMessage()}
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}
