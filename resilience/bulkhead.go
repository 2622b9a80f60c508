package resilience

import (
	"errors"
)

// ErrBulkheadFull is returned when every slot is taken.
var ErrBulkheadFull = errors.New("bulkhead is full")

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of slots held at once.
	MaxConcurrent int
	// OnReject is called when an acquisition is rejected.
	OnReject func(name string)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead is a fixed-size slot counter that rejects instead of queueing.
// Slots are held for as long as the caller owns the guarded resource, which
// may outlive any single function call (e.g. an open stream).
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// TryAcquire takes a slot if one is free. It never blocks.
func (b *Bulkhead) TryAcquire() error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return ErrBulkheadFull
	}
}

// Release returns a slot taken by TryAcquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
	default:
	}
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum number of slots.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
