package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

var ErrInvalidFilter = errors.New("invalid detection filter")

// DetectionService serves the persisted detection log.
type DetectionService struct {
	repo repository.DetectionRepository
	now  func() time.Time
}

func NewDetectionService(repo repository.DetectionRepository) *DetectionService {
	return &DetectionService{repo: repo, now: time.Now}
}

func (s *DetectionService) Find(ctx context.Context, filter domain.DetectionFilterDTO) ([]domain.DetectionRecord, error) {
	if filter.Plate != nil {
		plate := strings.TrimSpace(*filter.Plate)
		if plate == "" {
			filter.Plate = nil
		} else {
			filter.Plate = &plate
		}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", ErrInvalidFilter)
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	records, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.DetectionRecord{}
	}
	return records, nil
}

func (s *DetectionService) Get(ctx context.Context, id string) (*domain.DetectionRecord, error) {
	return s.repo.FindByID(ctx, id)
}

// Stats aggregates everything stored; Last24Hours counts from the current time.
func (s *DetectionService) Stats(ctx context.Context) (*domain.DetectionStats, error) {
	return s.repo.Stats(ctx, s.now().Add(-24*time.Hour))
}

func (s *DetectionService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PurgeOlderThan deletes records captured more than retention ago. A non-positive
// retention keeps everything.
func (s *DetectionService) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge detections before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		log.Printf("DetectionService: purged %d detections captured before %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}
