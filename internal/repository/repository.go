package repository

import (
	"context"
	"errors"
	"time"

	"plate_reader/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

const DefaultFindLimit = 100
const MaxFindLimit = 1000

type DetectionRepository interface {
	Create(ctx context.Context, rec *domain.DetectionRecord) error
	FindByID(ctx context.Context, id string) (*domain.DetectionRecord, error)
	Find(ctx context.Context, filter domain.DetectionFilterDTO) ([]domain.DetectionRecord, error)
	Stats(ctx context.Context, since time.Time) (*domain.DetectionStats, error)
	Delete(ctx context.Context, id string) error
	// DeleteOlderThan removes records captured before cutoff and returns how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SettingsRepository is a small key-value store for operator preferences.
type SettingsRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Save(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}
