package avssm_test

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/comalice/avssm"
	"github.com/comalice/avssm/testutil"
)

type recordingObserver struct {
	seen []Transition
}

func (o *recordingObserver) OnTransition(c *Connection, t Transition) {
	o.seen = append(o.seen, t)
}

// Every cell of the table, dispatched through a spy, commits the row's next
// state before the first action and runs exactly the row's actions in order.
func TestExecuteMatchesTable(t *testing.T) {
	for s := State(0); s < NumStates; s++ {
		for _, e := range Events() {
			row, _ := Lookup(s, e)
			spy := testutil.NewSpyRunner()
			c := NewConnection(3, testutil.Peer, spy, WithInitialState(s))

			Execute(c, e, e.Code())

			if c.State() != row.Next() {
				t.Errorf("%s/%s: state = %s, want %s", s, e, c.State(), row.Next())
			}
			if got := spy.Actions(); !testutil.EqualActions(got, row.Actions()) {
				t.Errorf("%s/%s: actions = %v, want %v", s, e, got, row.Actions())
			}
			for _, call := range spy.Calls() {
				if call.State != row.Next() {
					t.Errorf("%s/%s: %s observed %s, want %s", s, e, call.Action, call.State, row.Next())
				}
				if call.Payload != e.Code() {
					t.Errorf("%s/%s: payload = %v, want %v", s, e, call.Payload, e.Code())
				}
			}
		}
	}
}

func TestExecuteScenarios(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		actions []ActionID
	}{
		{"open request", Init, EvAPIOpen, Opening, []ActionID{ActStartDiscovery}},
		{"stream opened", Opening, EvStrOpenOK, Open, []ActionID{ActStartReconnectTimer, ActStreamOpened}},
		{"write confirm", Open, EvStrWriteCfm, Open, []ActionID{ActClearCongestion, ActForwardDataPath}},
		{"set-config failed", Incoming, EvCISetConfigFail, Init, []ActionID{ActRejectSetConfig, ActCleanup}},
		{"transport disconnected", Closing, EvAVDTDisconnect, Init, []ActionID{ActStreamClosed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := testutil.NewSpyRunner()
			c := NewConnection(1, testutil.Peer, spy, WithInitialState(tt.from))
			Execute(c, tt.event, nil)
			if c.State() != tt.want {
				t.Errorf("state = %s, want %s", c.State(), tt.want)
			}
			if got := spy.Actions(); !testutil.EqualActions(got, tt.actions) {
				t.Errorf("actions = %v, want %v", got, tt.actions)
			}
		})
	}
}

func TestExecuteSourceLifecycle(t *testing.T) {
	spy := testutil.NewSpyRunner()
	c := NewConnection(1, testutil.Peer, spy)

	steps := []struct {
		event Event
		want  State
	}{
		{EvAPIOpen, Opening},
		{EvSDPDiscOK, Opening},
		{EvAVDTConnect, Opening},
		{EvStrDiscOK, Opening},
		{EvStrGetCapOK, Opening},
		{EvStrOpenOK, Open},
		{EvAPStart, Open},
		{EvStrStartOK, Open},
		{EvSrcDataReady, Open},
		{EvAPIReconfig, Reconfiguring},
		{EvStrSuspendCfm, Reconfiguring},
		{EvStrReconfigCfm, Reconfiguring},
		{EvStrOpenOK, Open},
		{EvAPIClose, Closing},
		{EvAVDTDisconnect, Init},
	}
	for i, st := range steps {
		Execute(c, st.event, nil)
		if c.State() != st.want {
			t.Fatalf("step %d (%s): state = %s, want %s", i, st.event, c.State(), st.want)
		}
	}
	want := []ActionID{
		ActStartDiscovery, ActConnectRequest, ActDiscoverRequest, ActDiscoveryResults,
		ActGetCapResults, ActStartReconnectTimer, ActStreamOpened, ActStartStream, ActStartOK,
		ActForwardDataPath, ActReconfigure, ActSuspendConfirm, ActSuspendContinue,
		ActReconfigConfirm, ActReconfigStreamOK, ActCloseStream, ActStreamClosed,
	}
	if got := spy.Actions(); !testutil.EqualActions(got, want) {
		t.Errorf("actions =\n%v\nwant\n%v", got, want)
	}
}

func TestExecuteNilConnection(t *testing.T) {
	for _, e := range Events() {
		Execute(nil, e, "payload")
	}
	Execute(nil, Event(200), nil)
	if IsInit(nil) || IsOpening(nil) || IsIncoming(nil) {
		t.Error("predicate true for nil connection")
	}
	ForceInit(nil)
	ForceIncoming(nil)
}

func TestExecuteOutOfRangeEvent(t *testing.T) {
	spy := testutil.NewSpyRunner()
	c := NewConnection(1, testutil.Peer, spy, WithInitialState(Open))
	Execute(c, Event(NumEvents), nil)
	if c.State() != Open {
		t.Errorf("state = %s, want Open", c.State())
	}
	if n := len(spy.Calls()); n != 0 {
		t.Errorf("%d actions ran for an out-of-range event", n)
	}
}

func TestForceOverrides(t *testing.T) {
	spy := testutil.NewSpyRunner()
	obs := &recordingObserver{}
	c := NewConnection(1, testutil.Peer, spy, WithInitialState(Open), WithObserver(obs))

	ForceIncoming(c)
	if !IsIncoming(c) {
		t.Fatalf("state = %s after ForceIncoming", c.State())
	}
	ForceInit(c)
	if !IsInit(c) {
		t.Fatalf("state = %s after ForceInit", c.State())
	}
	if n := len(spy.Calls()); n != 0 {
		t.Errorf("overrides ran %d actions", n)
	}
	if len(obs.seen) != 0 {
		t.Errorf("overrides reported %d transitions", len(obs.seen))
	}
}

func TestPredicates(t *testing.T) {
	c := NewConnection(1, testutil.Peer, testutil.NewSpyRunner())
	if !IsInit(c) || IsOpening(c) || IsIncoming(c) {
		t.Fatalf("fresh connection: init=%v opening=%v incoming=%v", IsInit(c), IsOpening(c), IsIncoming(c))
	}
	Execute(c, EvAPIOpen, nil)
	if !IsOpening(c) || IsInit(c) {
		t.Errorf("after API_OPEN: state %s", c.State())
	}
	Execute(c, EvStrConfigInd, nil)
	if !IsIncoming(c) {
		t.Errorf("after STR_CONFIG_IND: state %s", c.State())
	}
}

func TestObserverSeesCompletedDispatch(t *testing.T) {
	obs := &recordingObserver{}
	var ranBeforeObserver bool
	spy := testutil.NewSpyRunner()
	spy.Hook = func(*Connection, ActionID, any) { ranBeforeObserver = len(obs.seen) == 0 }

	c := NewConnection(1, testutil.Peer, spy, WithObserver(obs), WithInitialState(Opening))
	Execute(c, EvStrOpenOK, nil)

	if len(obs.seen) != 1 {
		t.Fatalf("observer saw %d transitions, want 1", len(obs.seen))
	}
	got := obs.seen[0]
	if got.From != Opening || got.To != Open || got.Event != EvStrOpenOK {
		t.Errorf("transition = %+v", got)
	}
	if !testutil.EqualActions(got.Actions, []ActionID{ActStartReconnectTimer, ActStreamOpened}) {
		t.Errorf("transition actions = %v", got.Actions)
	}
	if !ranBeforeObserver {
		t.Error("observer ran before the dispatch's actions")
	}
}

func TestActionTable(t *testing.T) {
	var order []string
	handlers := ActionTable{
		ActClearCongestion: func(c *Connection, _ any) { order = append(order, "clr:"+c.State().String()) },
		ActForwardDataPath: func(c *Connection, p any) { order = append(order, "data:"+p.(string)) },
	}
	c := NewConnection(1, testutil.Peer, handlers, WithInitialState(Open))
	Execute(c, EvStrWriteCfm, "pkt")
	if len(order) != 2 || order[0] != "clr:OPEN" || order[1] != "data:pkt" {
		t.Errorf("order = %v", order)
	}

	// Missing handlers are skipped, not fatal.
	Execute(c, EvAPIClose, nil)
	if c.State() != Closing {
		t.Errorf("state = %s, want Closing", c.State())
	}

	err := handlers.Validate(StreamTable())
	if !errors.Is(err, ErrMissingHandler) {
		t.Fatalf("Validate err = %v, want ErrMissingHandler", err)
	}

	full := ActionTable{}
	for _, id := range Actions() {
		full[id] = func(*Connection, any) {}
	}
	if err := full.Validate(StreamTable()); err != nil {
		t.Errorf("complete table: %v", err)
	}
}

func TestStateName(t *testing.T) {
	want := map[State]string{
		Init: "INIT", Incoming: "INCOMING", Opening: "OPENING",
		Open: "OPEN", Reconfiguring: "RCFG", Closing: "CLOSING",
		State(6): "unknown", State(255): "unknown",
	}
	for s, name := range want {
		if got := StateName(s); got != name {
			t.Errorf("StateName(%d) = %q, want %q", uint8(s), got, name)
		}
	}
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"s": Reconfiguring})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"s":"RCFG"}` {
		t.Errorf("json = %s", data)
	}
	var back map[string]State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["s"] != Reconfiguring {
		t.Errorf("decoded %s", back["s"])
	}
	if _, err := json.Marshal(State(9)); err == nil {
		t.Error("marshal of invalid state succeeded")
	}
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("00:1A:7D:DA:71:13")
	if err != nil {
		t.Fatal(err)
	}
	if a != testutil.Peer {
		t.Errorf("ParseAddress = %v", a)
	}
	if a.String() != "00:1a:7d:da:71:13" {
		t.Errorf("String = %q", a.String())
	}
	if _, err := ParseAddress("00:1a:7d:da:71:13:00:01"); err == nil {
		t.Error("8-byte address accepted")
	}
	if _, err := ParseAddress("nope"); err == nil {
		t.Error("garbage accepted")
	}
}
