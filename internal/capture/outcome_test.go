package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"plate_reader/internal/domain"
)

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name   string
		resp   *domain.DetectionResponse
		err    error
		kind   domain.OutcomeKind
		reason string
	}{
		{name: "plate", resp: &domain.DetectionResponse{PlateText: "ABC123"}, kind: domain.OutcomeSuccess},
		{name: "nil response", kind: domain.OutcomeSuccess},
		{name: "rate limited", err: fmt.Errorf("detect: %w", domain.ErrRateLimited), kind: domain.OutcomeRateLimited},
		{name: "429 failure", err: &domain.FailureError{ReasonCode: "http_429"}, kind: domain.OutcomeRateLimited},
		{name: "rate limit text", err: errors.New("API Rate Limit exceeded"), kind: domain.OutcomeRateLimited},
		{name: "timeout", err: domain.ErrTimeout, kind: domain.OutcomeTimeout},
		{name: "deadline", err: context.DeadlineExceeded, kind: domain.OutcomeTimeout},
		{name: "network", err: fmt.Errorf("dial: %w", domain.ErrNetwork), kind: domain.OutcomeNetworkError},
		{name: "rate limit message", err: &domain.FailureError{ReasonCode: "http_503", Message: "Rate limit reached"}, kind: domain.OutcomeRateLimited},
		{name: "429 inside error body", err: &domain.FailureError{ReasonCode: "http_500", Message: `{"request_id":"a4291f"}`}, kind: domain.OutcomeFailure, reason: "http_500"},
		{name: "429 inside plain error", err: errors.New("upstream id 4290 failed"), kind: domain.OutcomeFailure, reason: "unexpected"},
		{name: "service failure", err: &domain.FailureError{ReasonCode: "http_500", Message: "boom"}, kind: domain.OutcomeFailure, reason: "http_500"},
		{name: "unknown", err: errors.New("weird"), kind: domain.OutcomeFailure, reason: "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyOutcome(tt.resp, tt.err)
			if got.Kind != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, got.Kind)
			}
			if got.ReasonCode != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, got.ReasonCode)
			}
			if got.Kind == domain.OutcomeSuccess && got.Response == nil {
				t.Error("success must carry a response")
			}
		})
	}
}

func TestFPSSampler(t *testing.T) {
	var s fpsSampler
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s.reset(start)

	for i := 0; i < 24; i++ {
		if _, ok := s.tick(start.Add(time.Duration(i) * 40 * time.Millisecond)); ok {
			t.Fatalf("sampled early at frame %d", i)
		}
	}
	fps, ok := s.tick(start.Add(time.Second))
	if !ok || fps != 25 {
		t.Errorf("expected 25 fps sample, got %d (%v)", fps, ok)
	}
	if _, ok := s.tick(start.Add(1100 * time.Millisecond)); ok {
		t.Error("window should restart after a sample")
	}
}
