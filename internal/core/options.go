package core

import "log/slog"

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher sends every completed dispatch to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithPersister saves each endpoint's state whenever it changes.
func WithPersister(p Persister) Option {
	return func(m *Manager) {
		m.persister = p
	}
}

// WithRestore makes Register resume an endpoint from its persisted state.
// It has no effect without a Persister.
func WithRestore(restore bool) Option {
	return func(m *Manager) {
		m.restore = restore
	}
}

// WithQueueSize sets the per-endpoint event queue capacity.
func WithQueueSize(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.queueSize = size
		}
	}
}

// WithLogger replaces the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithEventSource pumps every Delivery from s into Send until the manager
// closes or s's channel is closed.
func WithEventSource(s EventSource) Option {
	return func(m *Manager) {
		m.sources = append(m.sources, s)
	}
}
