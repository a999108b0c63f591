// Package publisher fans recognized plates out to downstream systems.
package publisher

import (
	"context"
	"errors"

	"plate_reader/internal/domain"
)

type PlatePublisher interface {
	Publish(ctx context.Context, ev domain.PlateEvent) error
	Close()
}

// Multi publishes to every sink and joins their errors.
type Multi []PlatePublisher

func (m Multi) Publish(ctx context.Context, ev domain.PlateEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, p := range m {
		p.Close()
	}
}
