package extensibility

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/testutil"
)

func TestLoggingRunner(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	spy := testutil.NewSpyRunner()
	r := NewLoggingRunner(spy, logger, slog.LevelInfo)

	c := avssm.NewConnection(2, testutil.Peer, r, avssm.WithInitialState(avssm.Open))
	avssm.Execute(c, avssm.EvStrWriteCfm, "pkt")

	want := []avssm.ActionID{avssm.ActClearCongestion, avssm.ActForwardDataPath}
	if got := spy.Actions(); !testutil.EqualActions(got, want) {
		t.Errorf("inner actions = %v, want %v", got, want)
	}
	out := buf.String()
	for _, s := range []string{"action=CLEAR_CONGESTION", "action=DATA_PATH", "state=OPEN", "took="} {
		if !strings.Contains(out, s) {
			t.Errorf("log missing %q:\n%s", s, out)
		}
	}
}

func TestLoggingRunner_BelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	spy := testutil.NewSpyRunner()
	r := NewLoggingRunner(spy, logger, slog.LevelDebug)

	c := avssm.NewConnection(2, testutil.Peer, r)
	avssm.Execute(c, avssm.EvAPIOpen, nil)
	if buf.Len() != 0 {
		t.Errorf("debug action logged at info level: %s", buf.String())
	}
	if len(spy.Calls()) != 1 {
		t.Errorf("inner ran %d times", len(spy.Calls()))
	}
}

func TestRecoveringRunner(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	spy := testutil.NewSpyRunner()
	spy.Hook = func(_ *avssm.Connection, id avssm.ActionID, _ any) {
		if id == avssm.ActStartReconnectTimer {
			panic(errors.New("timer pool exhausted"))
		}
	}
	r := NewRecoveringRunner(spy, logger)
	var recovered error
	r.OnPanic = func(_ *avssm.Connection, _ avssm.ActionID, err error) { recovered = err }

	c := avssm.NewConnection(1, testutil.Peer, r, avssm.WithInitialState(avssm.Opening))
	avssm.Execute(c, avssm.EvStrOpenOK, nil)

	if c.State() != avssm.Open {
		t.Errorf("state = %s, want OPEN", c.State())
	}
	// The action after the panicking one still runs.
	want := []avssm.ActionID{avssm.ActStartReconnectTimer, avssm.ActStreamOpened}
	if got := spy.Actions(); !testutil.EqualActions(got, want) {
		t.Errorf("actions = %v, want %v", got, want)
	}
	if recovered == nil || !strings.Contains(recovered.Error(), "timer pool exhausted") {
		t.Errorf("OnPanic err = %v", recovered)
	}
	if !strings.Contains(buf.String(), "stream action panicked") {
		t.Errorf("panic not logged:\n%s", buf.String())
	}
}

func TestRecoveringRunner_NonErrorPanic(t *testing.T) {
	spy := testutil.NewSpyRunner()
	spy.Hook = func(*avssm.Connection, avssm.ActionID, any) { panic("boom") }
	var recovered error
	r := NewRecoveringRunner(spy, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r.OnPanic = func(_ *avssm.Connection, _ avssm.ActionID, err error) { recovered = err }

	c := avssm.NewConnection(1, testutil.Peer, r)
	avssm.Execute(c, avssm.EvAPIOpen, nil)
	if recovered == nil || !strings.Contains(recovered.Error(), "boom") {
		t.Errorf("OnPanic err = %v", recovered)
	}
}
