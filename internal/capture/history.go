package capture

import (
	"sync"

	"plate_reader/internal/domain"
)

const DefaultHistoryCapacity = 50

// History is a bounded ring of session results. Reads return newest-first;
// once full, the oldest entry is evicted.
type History struct {
	mu       sync.RWMutex
	entries  []domain.SessionResult
	head     int // next write position
	count    int
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:  make([]domain.SessionResult, capacity),
		capacity: capacity,
	}
}

func (h *History) Add(r domain.SessionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = r
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Newest returns up to n results, newest first. n <= 0 returns all of them.
func (h *History) Newest(n int) []domain.SessionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.count {
		n = h.count
	}
	out := make([]domain.SessionResult, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.head - i + h.capacity) % h.capacity
		out = append(out, h.entries[idx])
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *History) Capacity() int {
	return h.capacity
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]domain.SessionResult, h.capacity)
	h.head = 0
	h.count = 0
}
