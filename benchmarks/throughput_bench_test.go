// Package benchmarks provides performance benchmarks for event throughput.
package benchmarks

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/core"
)

// sendRetry spins on backpressure instead of dropping the event.
func sendRetry(m *core.Manager, h avssm.Handle, e avssm.Event) error {
	for {
		err := m.Send(h, e, nil)
		if !errors.Is(err, core.ErrQueueFull) {
			return err
		}
		runtime.Gosched()
	}
}

func BenchmarkManagerThroughput(b *testing.B) {
	for _, endpoints := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("endpoints=%d", endpoints), func(b *testing.B) {
			runner := &CountingRunner{}
			m := OpenManager(b, BenchConfig(b, endpoints, 1024), runner)
			defer m.Close()
			handles := m.Handles()
			before := runner.Count()

			b.ReportAllocs()
			b.ResetTimer()
			var wg sync.WaitGroup
			var failed atomic.Int64
			per := b.N/len(handles) + 1
			for _, h := range handles {
				wg.Add(1)
				go func(h avssm.Handle) {
					defer wg.Done()
					for i := 0; i < per; i++ {
						if err := sendRetry(m, h, avssm.EvStrWriteCfm); err != nil {
							failed.Add(1)
							return
						}
					}
				}(h)
			}
			wg.Wait()
			Drain(b, m)
			b.StopTimer()

			if failed.Load() != 0 {
				b.Fatalf("%d senders failed", failed.Load())
			}
			// Two actions per write confirm.
			if got, want := runner.Count()-before, int64(2*per*len(handles)); got != want {
				b.Fatalf("actions = %d, want %d", got, want)
			}
		})
	}
}

func BenchmarkManagerRoundTrip(b *testing.B) {
	m := OpenManager(b, BenchConfig(b, 1, 64), &CountingRunner{})
	defer m.Close()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := m.Send(1, avssm.EvSrcDataReady, nil); err != nil {
			b.Fatal(err)
		}
		Drain(b, m)
	}
}
