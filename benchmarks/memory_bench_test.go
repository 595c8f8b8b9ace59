package benchmarks

import (
	"context"
	"testing"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/core"
)

// BenchmarkRegister measures the cost of one endpoint: connection, queue
// and executor goroutine.
func BenchmarkRegister(b *testing.B) {
	ctx := context.Background()
	runner := &CountingRunner{}
	m := core.NewManager(core.WithQueueSize(8))
	defer m.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h := avssm.Handle(i % 250)
		if _, err := m.Register(ctx, h, avssm.Address{}, runner); err != nil {
			b.Fatal(err)
		}
		if err := m.Deregister(h); err != nil {
			b.Fatal(err)
		}
	}
}

func TestBenchConfig(t *testing.T) {
	cfg := BenchConfig(t, 3, 32)
	if len(cfg.Endpoints) != 3 || cfg.QueueSize != 32 {
		t.Fatalf("cfg = %+v", cfg)
	}
	runner := &CountingRunner{}
	m := OpenManager(t, cfg, runner)
	defer m.Close()
	// API_OPEN runs one action, STR_OPEN_OK in OPENING runs two.
	if got := runner.Count(); got != 9 {
		t.Errorf("actions = %d, want 9", got)
	}
}
