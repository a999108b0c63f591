package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plate_reader/internal/domain"
)

func newDetectServer(t *testing.T, handler http.HandlerFunc) *HTTPDetectionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPDetectionClient(srv.URL+"/", time.Second)
}

func TestHTTPDetectionClient_Success(t *testing.T) {
	var gotPath, gotConfidence, gotSource string
	var gotImage []byte
	client := newDetectServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("invalid multipart body: %v", err)
		}
		gotConfidence = r.FormValue("confidence")
		gotSource = r.FormValue("source")
		f, _, err := r.FormFile("file")
		if err == nil {
			gotImage, _ = io.ReadAll(f)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"license_plate":"ABC123","confidence":0.92,
			"bbox":[10,20,110,60],"yolo_confidence":0.81,
			"yolo_detections":[{"bbox":[10,20,110,60],"confidence":0.81}]}`)
	})

	resp, err := client.Detect(context.Background(), domain.DetectionRequest{
		ImageBytes:          []byte("jpeg-bytes"),
		ConfidenceThreshold: 0.25,
		Mode:                domain.ModeAuto,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if gotPath != "/api/detect-yolo" {
		t.Errorf("auto mode should hit /api/detect-yolo, got %s", gotPath)
	}
	if gotConfidence != "0.25" || gotSource != "webcam" {
		t.Errorf("unexpected form fields confidence=%q source=%q", gotConfidence, gotSource)
	}
	if string(gotImage) != "jpeg-bytes" {
		t.Errorf("unexpected uploaded image %q", gotImage)
	}
	if resp.PlateText != "ABC123" || resp.Confidence != 0.92 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.BoundingBox == nil || *resp.BoundingBox != (domain.BoundingBox{10, 20, 110, 60}) {
		t.Errorf("unexpected bbox %v", resp.BoundingBox)
	}
	if resp.DetectorConfidence != 0.81 || len(resp.CandidateRegions) != 1 {
		t.Errorf("detector details lost: %+v", resp)
	}
}

func TestHTTPDetectionClient_ManualEndpoint(t *testing.T) {
	var gotPath string
	client := newDetectServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, `{"success":false,"license_plate":"","error":"no plate"}`)
	})

	resp, err := client.Detect(context.Background(), domain.DetectionRequest{Mode: domain.ModeManual})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if gotPath != "/api/detect" {
		t.Errorf("manual mode should hit /api/detect, got %s", gotPath)
	}
	if resp.PlateText != "" || resp.Message != "no plate" {
		t.Errorf("expected empty plate with message, got %+v", resp)
	}
}

func TestHTTPDetectionClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		reason  string
	}{
		{name: "429", status: http.StatusTooManyRequests, body: "slow down", wantErr: domain.ErrRateLimited},
		{name: "rate limit text", status: http.StatusOK, body: `{"success":false,"error":"API Rate Limit"}`, wantErr: domain.ErrRateLimited},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", reason: "http_500"},
		{name: "bad json", status: http.StatusOK, body: "<html>", reason: "invalid_response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newDetectServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.Detect(context.Background(), domain.DetectionRequest{Mode: domain.ModeAuto})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			var failure *domain.FailureError
			if !errors.As(err, &failure) {
				t.Fatalf("expected FailureError, got %v", err)
			}
			if failure.ReasonCode != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, failure.ReasonCode)
			}
		})
	}
}

func TestHTTPDetectionClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newDetectServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Detect(ctx, domain.DetectionRequest{Mode: domain.ModeAuto})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestHTTPDetectionClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPDetectionClient(url, time.Second)
	_, err := client.Detect(context.Background(), domain.DetectionRequest{Mode: domain.ModeManual})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
