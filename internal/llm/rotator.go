package llm

import (
	"errors"
	"sync"
)

// ErrNoCredentials is returned when a rotator is constructed without providers.
var ErrNoCredentials = errors.New("at least one credential is required")

// Rotator dispenses interchangeable provider clients round-robin, one per
// configured credential. The cursor is process-wide; access is serialized so
// concurrent repair sessions see a strict rotation.
type Rotator struct {
	mu        sync.Mutex
	providers []Provider
	cursor    int
}

// NewRotator creates a rotator over an ordered, non-empty provider set.
func NewRotator(providers []Provider) (*Rotator, error) {
	if len(providers) == 0 {
		return nil, ErrNoCredentials
	}
	return &Rotator{providers: providers}, nil
}

// Next returns the provider at the current cursor with its ordinal (1-based)
// and advances the cursor modulo the set size.
func (r *Rotator) Next() (Provider, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.providers[r.cursor]
	ordinal := r.cursor + 1
	r.cursor = (r.cursor + 1) % len(r.providers)
	return p, ordinal
}

// Size reports the number of credentials in rotation.
func (r *Rotator) Size() int {
	return len(r.providers)
}
