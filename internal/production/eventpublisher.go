package production

import (
	"context"
	"errors"
	"sync"

	"github.com/comalice/avssm/internal/core"
	"github.com/comalice/avssm/internal/primitives"
)

// ChannelPublisher forwards transition records to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	mu      sync.Mutex
	ch      chan<- primitives.TransitionRecord
	closed  bool
	dropped uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- primitives.TransitionRecord) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, rec primitives.TransitionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped++
		return nil
	}
}

// Dropped reports how many records were discarded because the channel was full.
func (p *ChannelPublisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// MultiPublisher fans each record out to several publishers.
type MultiPublisher []core.Publisher

func (m MultiPublisher) Publish(ctx context.Context, rec primitives.TransitionRecord) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
