// Package benchmarks provides shared helpers for manager benchmarks.
package benchmarks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/core"
	"github.com/comalice/avssm/internal/primitives"
)

// CountingRunner counts every action it runs.
type CountingRunner struct {
	n atomic.Int64
}

func (r *CountingRunner) Run(*avssm.Connection, avssm.ActionID, any) {
	r.n.Add(1)
}

// Count returns the number of actions run so far.
func (r *CountingRunner) Count() int64 {
	return r.n.Load()
}

// BenchConfig parses a configuration for n endpoints with the given queue
// size, exercising the same path as a deployed config file.
func BenchConfig(tb testing.TB, n, queueSize int) primitives.Config {
	tb.Helper()
	doc := fmt.Sprintf("queueSize: %d\nlogLevel: error\nendpoints:\n", queueSize)
	for i := 0; i < n; i++ {
		doc += fmt.Sprintf("  - handle: %d\n    peer: \"00:1a:7d:da:71:%02x\"\n", i+1, i)
	}
	cfg, err := primitives.ParseConfig([]byte(doc))
	if err != nil {
		tb.Fatal(err)
	}
	return cfg
}

// OpenManager registers every endpoint of cfg and drives it into OPEN.
func OpenManager(tb testing.TB, cfg primitives.Config, runner avssm.ActionRunner) *core.Manager {
	tb.Helper()
	ctx := context.Background()
	m := core.NewManager(core.WithQueueSize(cfg.QueueSize))
	for _, ep := range cfg.Endpoints {
		h := avssm.Handle(ep.Handle)
		if _, err := m.Register(ctx, h, ep.Peer, runner); err != nil {
			tb.Fatal(err)
		}
		for _, e := range []avssm.Event{avssm.EvAPIOpen, avssm.EvStrOpenOK} {
			if err := m.Send(h, e, nil); err != nil {
				tb.Fatal(err)
			}
		}
		if s, err := m.State(ctx, h); err != nil || s != avssm.Open {
			tb.Fatalf("endpoint 0x%02x: state %s, err %v", ep.Handle, s, err)
		}
	}
	return m
}

// Drain waits until every event queued so far on every endpoint has run.
func Drain(tb testing.TB, m *core.Manager) {
	tb.Helper()
	for _, h := range m.Handles() {
		if _, err := m.State(context.Background(), h); err != nil {
			tb.Fatal(err)
		}
	}
}
