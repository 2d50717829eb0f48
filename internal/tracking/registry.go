package tracking

import (
	"sync"

	"github.com/rafaeljc/verdandi/internal/visitor"
)

const (
	defaultStorageLimit    = 1_000_000
	defaultExtractionLimit = 20_000

	// stored codes kept when the storage limit is exceeded, as a fraction
	// of the limit
	removalFactor = 0.8

	// Extract drains everything while the backlog is below this multiple
	// of the extraction limit, so a moderate backlog clears in one pass.
	drainAllThresholdCoefficient = 2
)

// Registry accumulates the visitor codes whose data awaits delivery.
// Codes are deduplicated; Extract drains them in bounded portions.
type Registry struct {
	mu       sync.Mutex
	visitors map[string]struct{}

	manager         *visitor.Manager
	storageLimit    int
	extractionLimit int
}

// NewRegistry returns a registry backed by the given visitor store. The
// store is consulted to drop codes of expired visitors when the registry
// overflows.
func NewRegistry(manager *visitor.Manager) *Registry {
	return &Registry{
		visitors:        map[string]struct{}{},
		manager:         manager,
		storageLimit:    defaultStorageLimit,
		extractionLimit: defaultExtractionLimit,
	}
}

// Add records a single visitor code.
func (r *Registry) Add(visitorCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visitors[visitorCode] = struct{}{}
}

// AddAll records multiple visitor codes, shrinking the registry when it
// grows beyond the storage limit.
func (r *Registry) AddAll(visitorCodes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range visitorCodes {
		r.visitors[code] = struct{}{}
	}
	if len(r.visitors) > r.storageLimit {
		r.eraseExpiredVisitors()
		r.eraseToStorageLimit()
	}
}

// Len returns the number of pending visitor codes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

func (r *Registry) eraseExpiredVisitors() {
	for code := range r.visitors {
		if r.manager.GetVisitor(code) == nil {
			delete(r.visitors, code)
		}
	}
}

func (r *Registry) eraseToStorageLimit() {
	keep := int(float64(r.storageLimit) * removalFactor)
	for code := range r.visitors {
		if len(r.visitors) <= keep {
			break
		}
		delete(r.visitors, code)
	}
}

// Extract removes and returns pending visitor codes. While the backlog is
// small it drains everything; past twice the extraction limit it returns at
// most one extraction-limit worth of codes per call.
func (r *Registry) Extract() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.visitors) < r.extractionLimit*drainAllThresholdCoefficient {
		extracted := make([]string, 0, len(r.visitors))
		for code := range r.visitors {
			extracted = append(extracted, code)
		}
		r.visitors = map[string]struct{}{}
		return extracted
	}
	extracted := make([]string, 0, r.extractionLimit)
	for code := range r.visitors {
		if len(extracted) >= r.extractionLimit {
			break
		}
		extracted = append(extracted, code)
		delete(r.visitors, code)
	}
	return extracted
}
