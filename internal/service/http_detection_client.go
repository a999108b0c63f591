package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"plate_reader/internal/domain"
)

const (
	autoDetectPath   = "/api/detect-yolo"
	manualDetectPath = "/api/detect"
)

// detectAPIResponse is the JSON body returned by both detection endpoints.
type detectAPIResponse struct {
	Success        bool                     `json:"success"`
	LicensePlate   string                   `json:"license_plate"`
	Confidence     float64                  `json:"confidence"`
	BBox           []float64                `json:"bbox"`
	YoloConfidence float64                  `json:"yolo_confidence"`
	YoloDetections []domain.CandidateRegion `json:"yolo_detections"`
	Error          string                   `json:"error"`
}

// HTTPDetectionClient posts frames to the plate recognition web API.
// Auto mode goes through the detector+OCR pipeline, manual mode straight to OCR.
type HTTPDetectionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPDetectionClient(baseURL string, timeout time.Duration) *HTTPDetectionClient {
	return &HTTPDetectionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPDetectionClient) endpoint(mode domain.DetectionMode) string {
	if mode == domain.ModeAuto {
		return c.baseURL + autoDetectPath
	}
	return c.baseURL + manualDetectPath
}

func (c *HTTPDetectionClient) Detect(ctx context.Context, req domain.DetectionRequest) (*domain.DetectionResponse, error) {
	body, contentType, err := buildDetectForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Mode), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	log.Printf("HTTPDetectionClient: %s %s -> %d in %s", req.Mode, httpReq.URL.Path, resp.StatusCode, time.Since(started))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FailureError{
			ReasonCode: "http_" + strconv.Itoa(resp.StatusCode),
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var decoded detectAPIResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.FailureError{ReasonCode: "invalid_response", Message: err.Error()}
	}
	return toDetectionResponse(decoded)
}

func buildDetectForm(req domain.DetectionRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fmt.Sprintf("capture_%d.jpg", time.Now().UnixMilli()))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.ImageBytes); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("confidence", strconv.FormatFloat(req.ConfidenceThreshold, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("source", "webcam"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// toDetectionResponse maps the API body onto the detection contract.
// success=false is still a completed call: nothing readable was found, unless the
// error text says the upstream OCR service rate-limited us.
func toDetectionResponse(r detectAPIResponse) (*domain.DetectionResponse, error) {
	if r.Error != "" && strings.Contains(strings.ToLower(r.Error), "rate limit") {
		return nil, domain.ErrRateLimited
	}

	out := &domain.DetectionResponse{
		DetectorConfidence: r.YoloConfidence,
		CandidateRegions:   r.YoloDetections,
		Message:            r.Error,
	}
	if len(r.BBox) == 4 {
		box := domain.BoundingBox{r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3]}
		out.BoundingBox = &box
	}
	if r.Success && r.LicensePlate != "" {
		out.PlateText = strings.TrimSpace(r.LicensePlate)
		out.Confidence = r.Confidence
	}
	return out, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}
