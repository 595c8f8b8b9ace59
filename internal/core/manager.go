package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/primitives"
)

const defaultQueueSize = 64

// Manager is the connection manager that owns stream endpoints.
// Thread-safe: Send, Do and the registry calls may be used from any
// goroutine. Each endpoint runs on its own goroutine, so events for one
// endpoint are handled in delivery order, one at a time, while different
// endpoints proceed independently.
type Manager struct {
	mu     sync.RWMutex
	conns  map[avssm.Handle]*endpoint
	closed bool

	queueSize int
	logger    *slog.Logger
	publisher Publisher
	persister Persister
	restore   bool
	sources   []EventSource

	stop    chan struct{}
	pumpsWG sync.WaitGroup
}

// NewManager creates a manager and starts pumping its event sources.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		conns:     make(map[avssm.Handle]*endpoint),
		queueSize: defaultQueueSize,
		logger:    slog.Default(),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, src := range m.sources {
		m.pumpsWG.Add(1)
		go m.pump(src)
	}
	return m
}

// Register creates the endpoint for handle and starts its executor. When
// restoring is enabled and a snapshot for the same peer and handle exists,
// the connection resumes in the persisted state; otherwise it starts in
// Init. The returned session id tags every record the endpoint publishes.
func (m *Manager) Register(ctx context.Context, handle avssm.Handle, peer avssm.Address, runner avssm.ActionRunner) (uuid.UUID, error) {
	if runner == nil {
		return uuid.Nil, fmt.Errorf("register 0x%02x: nil action runner", uint8(handle))
	}

	var opts []avssm.ConnOption
	if m.persister != nil && m.restore {
		snap, err := m.persister.Load(ctx, SnapshotKey(peer, handle))
		switch {
		case err == nil && snap.Peer == peer:
			opts = append(opts, avssm.WithInitialState(snap.State))
			m.logger.Info("stream restored", "peer", peer, "handle", uint8(handle), "state", snap.State)
		case err != nil && !errors.Is(err, os.ErrNotExist):
			m.logger.Warn("stream snapshot unreadable, starting in INIT", "peer", peer, "handle", uint8(handle), "err", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return uuid.Nil, ErrClosed
	}
	if _, ok := m.conns[handle]; ok {
		return uuid.Nil, fmt.Errorf("register 0x%02x: %w", uint8(handle), ErrExists)
	}

	ep := &endpoint{
		m:       m,
		session: uuid.New(),
		queue:   make(chan job, m.queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	opts = append(opts, avssm.WithObserver(ep))
	ep.conn = avssm.NewConnection(handle, peer, runner, opts...)
	ep.save(ctx)

	m.conns[handle] = ep
	go ep.run()

	m.logger.Debug("stream registered", "conn", ep.conn, "session", ep.session, "state", ep.conn.State())
	return ep.session, nil
}

// Deregister stops the endpoint's executor and forgets it. Events still
// queued for it are dropped.
func (m *Manager) Deregister(handle avssm.Handle) error {
	m.mu.Lock()
	ep, ok := m.conns[handle]
	delete(m.conns, handle)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("deregister 0x%02x: %w", uint8(handle), ErrNotFound)
	}
	ep.shutdown()
	m.logger.Debug("stream deregistered", "conn", ep.conn)
	return nil
}

// Send queues e for the endpoint. It never blocks: a full queue is reported
// as ErrQueueFull.
func (m *Manager) Send(handle avssm.Handle, e avssm.Event, payload any) error {
	if !e.Valid() {
		return fmt.Errorf("send to 0x%02x: %w: index %d", uint8(handle), avssm.ErrEventOutOfRange, e.Index())
	}
	ep, err := m.lookup(handle)
	if err != nil {
		m.logger.Debug("stream not registered", "handle", uint8(handle), "event", e)
		return err
	}
	return ep.enqueue(job{event: e, payload: payload})
}

// SendCode is Send for an event given by its wire code.
func (m *Manager) SendCode(handle avssm.Handle, code uint16, payload any) error {
	e, err := avssm.EventFromCode(code)
	if err != nil {
		return fmt.Errorf("send to 0x%02x: %w", uint8(handle), err)
	}
	return m.Send(handle, e, payload)
}

// Do runs fn on the endpoint's executor, after every event queued before
// it, and waits for it to finish. fn must not call Do for the same handle.
func (m *Manager) Do(ctx context.Context, handle avssm.Handle, fn func(*avssm.Connection)) error {
	ep, err := m.lookup(handle)
	if err != nil {
		return err
	}
	reply := make(chan struct{})
	if err := ep.enqueue(job{fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ep.stopped:
		return fmt.Errorf("stream 0x%02x: %w", uint8(handle), ErrClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the endpoint's state once every previously queued event
// has been handled.
func (m *Manager) State(ctx context.Context, handle avssm.Handle) (avssm.State, error) {
	var s avssm.State
	err := m.Do(ctx, handle, func(c *avssm.Connection) { s = c.State() })
	return s, err
}

// ForceInit applies avssm.ForceInit on the endpoint's executor.
func (m *Manager) ForceInit(ctx context.Context, handle avssm.Handle) error {
	return m.Do(ctx, handle, avssm.ForceInit)
}

// ForceIncoming applies avssm.ForceIncoming on the endpoint's executor.
func (m *Manager) ForceIncoming(ctx context.Context, handle avssm.Handle) error {
	return m.Do(ctx, handle, avssm.ForceIncoming)
}

// Session returns the session id assigned at registration.
func (m *Manager) Session(handle avssm.Handle) (uuid.UUID, bool) {
	ep, err := m.lookup(handle)
	if err != nil {
		return uuid.Nil, false
	}
	return ep.session, true
}

// Handles returns the registered handles in ascending order.
func (m *Manager) Handles() []avssm.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]avssm.Handle, 0, len(m.conns))
	for h := range m.conns {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Close stops every endpoint and event source, then closes the publisher.
// Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	eps := make([]*endpoint, 0, len(m.conns))
	for _, ep := range m.conns {
		eps = append(eps, ep)
	}
	m.conns = make(map[avssm.Handle]*endpoint)
	m.mu.Unlock()

	close(m.stop)
	for _, ep := range eps {
		ep.shutdown()
	}
	m.pumpsWG.Wait()

	if m.publisher != nil {
		return m.publisher.Close()
	}
	return nil
}

func (m *Manager) lookup(handle avssm.Handle) (*endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	ep, ok := m.conns[handle]
	if !ok {
		return nil, fmt.Errorf("stream 0x%02x: %w", uint8(handle), ErrNotFound)
	}
	return ep, nil
}

func (m *Manager) pump(src EventSource) {
	defer m.pumpsWG.Done()
	events := src.Events()
	for {
		select {
		case d, ok := <-events:
			if !ok {
				return
			}
			if err := m.Send(d.Handle, d.Event, d.Payload); err != nil {
				m.logger.Warn("event source delivery failed", "handle", uint8(d.Handle), "event", d.Event, "err", err)
			}
		case <-m.stop:
			return
		}
	}
}

type job struct {
	event   avssm.Event
	payload any
	fn      func(*avssm.Connection)
	reply   chan struct{}
}

// endpoint is one registered connection plus the goroutine that owns it.
// Only run touches conn after registration.
type endpoint struct {
	m       *Manager
	conn    *avssm.Connection
	session uuid.UUID
	saved   avssm.State
	queue   chan job
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (ep *endpoint) run() {
	defer close(ep.stopped)
	for {
		select {
		case j := <-ep.queue:
			ep.handle(j)
		case <-ep.done:
			return
		}
	}
}

func (ep *endpoint) handle(j job) {
	if j.fn != nil {
		j.fn(ep.conn)
		if ep.conn.State() != ep.saved {
			ep.save(context.Background())
		}
		close(j.reply)
		return
	}
	avssm.Execute(ep.conn, j.event, j.payload)
}

func (ep *endpoint) enqueue(j job) error {
	select {
	case <-ep.done:
		return ErrClosed
	default:
	}
	select {
	case ep.queue <- j:
		return nil
	default:
		return fmt.Errorf("stream %s: %w", ep.conn, ErrQueueFull)
	}
}

func (ep *endpoint) shutdown() {
	ep.once.Do(func() { close(ep.done) })
	<-ep.stopped
}

// OnTransition runs on the endpoint goroutine after each dispatch.
func (ep *endpoint) OnTransition(c *avssm.Connection, t avssm.Transition) {
	ctx := context.Background()
	if p := ep.m.publisher; p != nil {
		rec := primitives.NewTransitionRecord(ep.session.String(), c, t)
		if err := p.Publish(ctx, rec); err != nil {
			ep.m.logger.Warn("publish transition", "conn", c, "event", t.Event, "err", err)
		}
	}
	if t.To != ep.saved {
		ep.save(ctx)
	}
}

func (ep *endpoint) save(ctx context.Context) {
	ep.saved = ep.conn.State()
	if ep.m.persister == nil {
		return
	}
	snap := Snapshot{
		Handle:       uint8(ep.conn.Handle()),
		Peer:         ep.conn.Peer(),
		SessionID:    ep.session.String(),
		State:        ep.saved,
		TableVersion: primitives.StreamTableVersion(),
		Timestamp:    time.Now(),
	}
	if err := ep.m.persister.Save(ctx, snap); err != nil {
		ep.m.logger.Warn("save stream snapshot", "conn", ep.conn, "err", err)
	}
}
