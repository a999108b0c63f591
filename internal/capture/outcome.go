package capture

import (
	"context"
	"errors"
	"strings"

	"plate_reader/internal/domain"
)

// classifyOutcome folds whatever the detection client returned into one tagged outcome.
// An http_429 reason code or a "rate limit" phrase is the same signal as an explicit rate-limit response.
// Response bodies are free text, so a bare "429" inside them means nothing.
func classifyOutcome(resp *domain.DetectionResponse, err error) domain.DetectionOutcome {
	if err == nil {
		if resp == nil {
			resp = &domain.DetectionResponse{}
		}
		return domain.DetectionOutcome{Kind: domain.OutcomeSuccess, Response: resp}
	}

	var failure *domain.FailureError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return domain.DetectionOutcome{Kind: domain.OutcomeRateLimited, Err: err}
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.DetectionOutcome{Kind: domain.OutcomeTimeout, Err: err}
	case errors.As(err, &failure):
		if isRateLimitReason(failure.ReasonCode) || isRateLimitText(failure.Message) {
			return domain.DetectionOutcome{Kind: domain.OutcomeRateLimited, Err: err}
		}
		return domain.DetectionOutcome{Kind: domain.OutcomeFailure, ReasonCode: failure.ReasonCode, Err: err}
	case errors.Is(err, domain.ErrNetwork):
		return domain.DetectionOutcome{Kind: domain.OutcomeNetworkError, Err: err}
	case isRateLimitText(err.Error()):
		return domain.DetectionOutcome{Kind: domain.OutcomeRateLimited, Err: err}
	}
	return domain.DetectionOutcome{Kind: domain.OutcomeFailure, ReasonCode: "unexpected", Err: err}
}

func isRateLimitReason(code string) bool {
	switch strings.ToLower(code) {
	case "http_429", "rate_limited", "rate_limit":
		return true
	}
	return false
}

func isRateLimitText(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")
}
