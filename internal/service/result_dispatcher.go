package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"plate_reader/internal/domain"
	"plate_reader/internal/publisher"
	"plate_reader/internal/repository"
)

// ResultDispatcher persists recognized plates and publishes them downstream.
// It receives controller notifications and does the slow work on its own goroutine.
type ResultDispatcher struct {
	repo      repository.DetectionRepository
	publisher publisher.PlatePublisher
	queue     chan domain.CaptureNotification
	timeout   time.Duration
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewResultDispatcher(repo repository.DetectionRepository, pub publisher.PlatePublisher, queueSize int) *ResultDispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ResultDispatcher{
		repo:      repo,
		publisher: pub,
		queue:     make(chan domain.CaptureNotification, queueSize),
		timeout:   10 * time.Second,
	}
}

// Notify never blocks. Results are dropped with a log line when the queue is full.
func (d *ResultDispatcher) Notify(n domain.CaptureNotification) {
	if n.Type != domain.CaptureEventResult || n.Result == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		log.Printf("ResultDispatcher: queue full, dropping result %s", n.Result.PlateText)
	}
}

func (d *ResultDispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.dispatch(n)
		}
	}()
}

// Close drains the queue and waits for the worker.
func (d *ResultDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *ResultDispatcher) dispatch(n domain.CaptureNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	rec := domain.NewDetectionRecord(uuid.NewString(), n.SessionID, *n.Result)
	if d.repo != nil {
		if err := d.repo.Create(ctx, rec); err != nil {
			log.Printf("ResultDispatcher: failed to save detection %s: %v", rec.Plate, err)
		}
	}

	if d.publisher == nil {
		return
	}
	ev := domain.PlateEvent{
		EventID:    rec.ID,
		SessionID:  n.SessionID,
		Plate:      n.Result.PlateText,
		Confidence: n.Result.Confidence,
		BBox:       n.Result.BoundingBox,
		Mode:       n.Result.Mode,
		CapturedAt: n.Result.Timestamp.UTC(),
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		log.Printf("ResultDispatcher: failed to publish plate %s: %v", ev.Plate, err)
	}
}
