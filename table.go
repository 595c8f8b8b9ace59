package avssm

import (
	"errors"
	"fmt"
)

// maxActions is the widest action list any row carries.
const maxActions = 2

// Row is one (state, event) cell: the state to move to and the actions to
// run afterwards, in order. Rows are values; nothing reachable from a Row
// can mutate the shared table.
type Row struct {
	next    State
	actions [maxActions]ActionID
	n       uint8
	defined bool
}

// to builds a row. The action list ends at the first NoAction, so nothing
// after an absent slot can ever run.
func to(next State, actions ...ActionID) Row {
	r := Row{next: next, defined: true}
	for _, id := range actions {
		if id == NoAction || int(r.n) == maxActions {
			break
		}
		r.actions[r.n] = id
		r.n++
	}
	return r
}

// stay is a row that neither moves nor acts.
func stay(s State) Row { return to(s) }

// Next returns the state the connection moves to.
func (r Row) Next() State { return r.next }

// Len returns the number of actions in the row.
func (r Row) Len() int { return int(r.n) }

// Action returns the i-th action, or NoAction past the end of the list.
func (r Row) Action(i int) ActionID {
	if i < 0 || i >= int(r.n) {
		return NoAction
	}
	return r.actions[i]
}

// Actions returns a copy of the row's action list.
func (r Row) Actions() []ActionID {
	out := make([]ActionID, r.n)
	copy(out, r.actions[:r.n])
	return out
}

// Ignored reports whether the row neither acts nor leaves from.
func (r Row) Ignored(from State) bool {
	return r.n == 0 && r.next == from
}

// Table is the complete state x event transition matrix.
type Table [NumStates][NumEvents]Row

// Lookup returns the row for (s, e).
func (t *Table) Lookup(s State, e Event) (Row, error) {
	if !s.Valid() {
		return Row{}, fmt.Errorf("%w: %d", ErrInvalidState, uint8(s))
	}
	if !e.Valid() {
		return Row{}, fmt.Errorf("%w: index %d", ErrEventOutOfRange, e.Index())
	}
	return t[s][e], nil
}

// Validate checks that every cell was written and refers only to defined
// states and actions.
func (t *Table) Validate() error {
	var errs []error
	for s := State(0); s < NumStates; s++ {
		for e := Event(0); e < NumEvents; e++ {
			r := t[s][e]
			switch {
			case !r.defined:
				errs = append(errs, fmt.Errorf("%w: no row for %s/%s", ErrIncompleteTable, s, e))
			case !r.next.Valid():
				errs = append(errs, fmt.Errorf("%w: %s/%s moves to %d", ErrInvalidState, s, e, uint8(r.next)))
			}
			for i := 0; i < r.Len(); i++ {
				if id := r.Action(i); id == NoAction || !id.Valid() {
					errs = append(errs, fmt.Errorf("%w: %s/%s slot %d", ErrUnknownAction, s, e, i+1))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// ReachableActions lists, in ActionID order, every action some row can run.
func (t *Table) ReachableActions() []ActionID {
	var seen [numActions]bool
	for s := range t {
		for e := range t[s] {
			r := t[s][e]
			for i := 0; i < r.Len(); i++ {
				seen[r.Action(i)] = true
			}
		}
	}
	var out []ActionID
	for id := ActStartDiscovery; id < numActions; id++ {
		if seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// StreamTable returns a copy of the stream state machine table.
func StreamTable() Table {
	return streamTable
}

// Lookup returns the stream table row for (s, e).
func Lookup(s State, e Event) (Row, error) {
	return streamTable.Lookup(s, e)
}

func init() {
	if err := streamTable.Validate(); err != nil {
		panic(err)
	}
}

var streamTable = Table{
	Init: {
		EvAPIOpen:            to(Opening, ActStartDiscovery),
		EvAPIClose:           to(Init, ActCleanup),
		EvAPStart:            stay(Init),
		EvAPStop:             stay(Init),
		EvAPIReconfig:        stay(Init),
		EvAPIProtectReq:      stay(Init),
		EvAPIProtectRsp:      stay(Init),
		EvAPIRCOpen:          stay(Init),
		EvSrcDataReady:       stay(Init),
		EvCISetConfigOK:      stay(Init),
		EvCISetConfigFail:    stay(Init),
		EvSDPDiscOK:          to(Init, ActFreeSDPDatabase),
		EvSDPDiscFail:        to(Init, ActFreeSDPDatabase),
		EvStrDiscOK:          stay(Init),
		EvStrDiscFail:        stay(Init),
		EvStrGetCapOK:        stay(Init),
		EvStrGetCapFail:      stay(Init),
		EvStrOpenOK:          stay(Init),
		EvStrOpenFail:        stay(Init),
		EvStrStartOK:         stay(Init),
		EvStrStartFail:       stay(Init),
		EvStrClose:           stay(Init),
		EvStrConfigInd:       to(Incoming, ActConfigIndication),
		EvStrSecurityInd:     stay(Init),
		EvStrSecurityCfm:     stay(Init),
		EvStrWriteCfm:        stay(Init),
		EvStrSuspendCfm:      stay(Init),
		EvStrReconfigCfm:     stay(Init),
		EvAVRCTimer:          stay(Init),
		EvAVDTConnect:        stay(Init),
		EvAVDTDisconnect:     stay(Init),
		EvRoleChange:         stay(Init),
		EvAVDTDelayReport:    stay(Init),
		EvACPConnect:         to(Incoming),
		EvAPIOffloadStart:    to(Init, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Init, ActOffloadResponse),
	},
	Incoming: {
		EvAPIOpen:            to(Incoming, ActOpenAtIncoming),
		EvAPIClose:           to(Closing, ActCodecClose, ActDisconnectRequest),
		EvAPStart:            stay(Incoming),
		EvAPStop:             stay(Incoming),
		EvAPIReconfig:        stay(Incoming),
		EvAPIProtectReq:      to(Incoming, ActSecurityRequest),
		EvAPIProtectRsp:      to(Incoming, ActSecurityResponse),
		EvAPIRCOpen:          stay(Incoming),
		EvSrcDataReady:       stay(Incoming),
		EvCISetConfigOK:      to(Incoming, ActSetConfigResponse, ActStartReconnectTimer),
		EvCISetConfigFail:    to(Init, ActRejectSetConfig, ActCleanup),
		EvSDPDiscOK:          to(Incoming, ActFreeSDPDatabase),
		EvSDPDiscFail:        to(Incoming, ActFreeSDPDatabase),
		EvStrDiscOK:          to(Incoming, ActDiscoveryResultsAsAcceptor),
		EvStrDiscFail:        stay(Incoming),
		EvStrGetCapOK:        to(Incoming, ActSaveCapabilities),
		EvStrGetCapFail:      stay(Incoming),
		EvStrOpenOK:          to(Open, ActStreamOpened),
		EvStrOpenFail:        stay(Incoming),
		EvStrStartOK:         stay(Incoming),
		EvStrStartFail:       stay(Incoming),
		EvStrClose:           to(Init, ActCodecClose, ActCleanup),
		EvStrConfigInd:       to(Incoming, ActConfigIndication),
		EvStrSecurityInd:     to(Incoming, ActSecurityIndication),
		EvStrSecurityCfm:     to(Incoming, ActSecurityConfirm),
		EvStrWriteCfm:        stay(Incoming),
		EvStrSuspendCfm:      stay(Incoming),
		EvStrReconfigCfm:     stay(Incoming),
		EvAVRCTimer:          stay(Incoming),
		EvAVDTConnect:        stay(Incoming),
		EvAVDTDisconnect:     to(Closing, ActCodecClose, ActDisconnectRequest),
		EvRoleChange:         stay(Incoming),
		EvAVDTDelayReport:    to(Incoming, ActDelayReport),
		EvACPConnect:         stay(Incoming),
		EvAPIOffloadStart:    to(Incoming, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Incoming, ActOffloadResponse),
	},
	Opening: {
		EvAPIOpen:            stay(Opening),
		EvAPIClose:           to(Closing, ActCloseStream),
		EvAPStart:            stay(Opening),
		EvAPStop:             stay(Opening),
		EvAPIReconfig:        stay(Opening),
		EvAPIProtectReq:      to(Opening, ActSecurityRequest),
		EvAPIProtectRsp:      to(Opening, ActSecurityResponse),
		EvAPIRCOpen:          stay(Opening),
		EvSrcDataReady:       stay(Opening),
		EvCISetConfigOK:      stay(Opening),
		EvCISetConfigFail:    stay(Opening),
		EvSDPDiscOK:          to(Opening, ActConnectRequest),
		EvSDPDiscFail:        to(Opening, ActConnectRequest),
		EvStrDiscOK:          to(Opening, ActDiscoveryResults),
		EvStrDiscFail:        to(Closing, ActOpenFailed),
		EvStrGetCapOK:        to(Opening, ActGetCapResults),
		EvStrGetCapFail:      to(Closing, ActOpenFailed),
		EvStrOpenOK:          to(Open, ActStartReconnectTimer, ActStreamOpened),
		EvStrOpenFail:        to(Closing, ActOpenFailed),
		EvStrStartOK:         stay(Opening),
		EvStrStartFail:       stay(Opening),
		EvStrClose:           stay(Opening),
		EvStrConfigInd:       to(Incoming, ActConfigIndication),
		EvStrSecurityInd:     to(Opening, ActSecurityIndication),
		EvStrSecurityCfm:     to(Opening, ActSecurityConfirm),
		EvStrWriteCfm:        stay(Opening),
		EvStrSuspendCfm:      stay(Opening),
		EvStrReconfigCfm:     stay(Opening),
		EvAVRCTimer:          to(Opening, ActSwitchRole),
		EvAVDTConnect:        to(Opening, ActDiscoverRequest),
		EvAVDTDisconnect:     to(Init, ActConnectFailed),
		EvRoleChange:         to(Opening, ActRoleResult),
		EvAVDTDelayReport:    to(Opening, ActDelayReport),
		EvACPConnect:         stay(Opening),
		EvAPIOffloadStart:    to(Opening, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Opening, ActOffloadResponse),
	},
	Open: {
		EvAPIOpen:            stay(Open),
		EvAPIClose:           to(Closing, ActCloseStream),
		EvAPStart:            to(Open, ActStartStream),
		EvAPStop:             to(Open, ActStreamStopped),
		EvAPIReconfig:        to(Reconfiguring, ActReconfigure),
		EvAPIProtectReq:      to(Open, ActSecurityRequest),
		EvAPIProtectRsp:      to(Open, ActSecurityResponse),
		EvAPIRCOpen:          to(Open, ActSetUseRemoteControl, ActOpenRemoteControl),
		EvSrcDataReady:       to(Open, ActForwardDataPath),
		EvCISetConfigOK:      stay(Open),
		EvCISetConfigFail:    stay(Open),
		EvSDPDiscOK:          to(Open, ActFreeSDPDatabase),
		EvSDPDiscFail:        to(Open, ActFreeSDPDatabase),
		EvStrDiscOK:          stay(Open),
		EvStrDiscFail:        stay(Open),
		EvStrGetCapOK:        to(Open, ActSaveCapabilities),
		EvStrGetCapFail:      stay(Open),
		EvStrOpenOK:          stay(Open),
		EvStrOpenFail:        stay(Open),
		EvStrStartOK:         to(Open, ActStartOK),
		EvStrStartFail:       to(Open, ActStartFailed),
		EvStrClose:           to(Init, ActStreamClosed),
		EvStrConfigInd:       to(Open, ActRejectSetConfig),
		EvStrSecurityInd:     to(Open, ActSecurityIndication),
		EvStrSecurityCfm:     to(Open, ActSecurityConfirm),
		EvStrWriteCfm:        to(Open, ActClearCongestion, ActForwardDataPath),
		EvStrSuspendCfm:      to(Open, ActSuspendConfirm),
		EvStrReconfigCfm:     stay(Open),
		EvAVRCTimer:          to(Open, ActOpenRemoteControl, ActCheckSecondStart),
		EvAVDTConnect:        stay(Open),
		EvAVDTDisconnect:     to(Init, ActStreamClosed),
		EvRoleChange:         to(Open, ActRoleResult),
		EvAVDTDelayReport:    to(Open, ActDelayReport),
		EvACPConnect:         stay(Open),
		EvAPIOffloadStart:    to(Open, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Open, ActOffloadResponse),
	},
	Reconfiguring: {
		EvAPIOpen:            stay(Reconfiguring),
		EvAPIClose:           to(Closing, ActDisconnectRequest),
		EvAPStart:            stay(Reconfiguring),
		EvAPStop:             stay(Reconfiguring),
		EvAPIReconfig:        to(Reconfiguring, ActReconfigure),
		EvAPIProtectReq:      stay(Reconfiguring),
		EvAPIProtectRsp:      stay(Reconfiguring),
		EvAPIRCOpen:          stay(Reconfiguring),
		EvSrcDataReady:       stay(Reconfiguring),
		EvCISetConfigOK:      stay(Reconfiguring),
		EvCISetConfigFail:    stay(Reconfiguring),
		EvSDPDiscOK:          to(Reconfiguring, ActFreeSDPDatabase),
		EvSDPDiscFail:        to(Reconfiguring, ActFreeSDPDatabase),
		EvStrDiscOK:          to(Reconfiguring, ActDiscoveryResults),
		EvStrDiscFail:        to(Init, ActStreamClosed),
		EvStrGetCapOK:        to(Reconfiguring, ActGetCapResults),
		EvStrGetCapFail:      to(Init, ActStreamClosed),
		EvStrOpenOK:          to(Open, ActReconfigStreamOK),
		EvStrOpenFail:        to(Reconfiguring, ActReconfigFailed),
		EvStrStartOK:         stay(Reconfiguring),
		EvStrStartFail:       stay(Reconfiguring),
		EvStrClose:           to(Reconfiguring, ActReconfigConnect),
		EvStrConfigInd:       to(Reconfiguring, ActRejectSetConfig),
		EvStrSecurityInd:     stay(Reconfiguring),
		EvStrSecurityCfm:     stay(Reconfiguring),
		EvStrWriteCfm:        stay(Reconfiguring),
		EvStrSuspendCfm:      to(Reconfiguring, ActSuspendConfirm, ActSuspendContinue),
		EvStrReconfigCfm:     to(Reconfiguring, ActReconfigConfirm),
		EvAVRCTimer:          stay(Reconfiguring),
		EvAVDTConnect:        to(Reconfiguring, ActReconfigOpen),
		EvAVDTDisconnect:     to(Reconfiguring, ActReconfigDisconnected),
		EvRoleChange:         stay(Reconfiguring),
		EvAVDTDelayReport:    to(Reconfiguring, ActDelayReport),
		EvACPConnect:         stay(Reconfiguring),
		EvAPIOffloadStart:    to(Reconfiguring, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Reconfiguring, ActOffloadResponse),
	},
	Closing: {
		EvAPIOpen:            stay(Closing),
		EvAPIClose:           to(Closing, ActDisconnectRequest),
		EvAPStart:            stay(Closing),
		EvAPStop:             stay(Closing),
		EvAPIReconfig:        stay(Closing),
		EvAPIProtectReq:      stay(Closing),
		EvAPIProtectRsp:      stay(Closing),
		EvAPIRCOpen:          stay(Closing),
		EvSrcDataReady:       stay(Closing),
		EvCISetConfigOK:      stay(Closing),
		EvCISetConfigFail:    stay(Closing),
		EvSDPDiscOK:          to(Init, ActSDPFailed),
		EvSDPDiscFail:        to(Init, ActSDPFailed),
		EvStrDiscOK:          stay(Closing),
		EvStrDiscFail:        stay(Closing),
		EvStrGetCapOK:        stay(Closing),
		EvStrGetCapFail:      stay(Closing),
		EvStrOpenOK:          to(Closing, ActCloseStream),
		EvStrOpenFail:        to(Closing, ActDisconnectRequest),
		EvStrStartOK:         stay(Closing),
		EvStrStartFail:       stay(Closing),
		EvStrClose:           to(Closing, ActDisconnectRequest),
		EvStrConfigInd:       to(Closing, ActRejectSetConfig),
		EvStrSecurityInd:     to(Closing, ActRejectSecurity),
		EvStrSecurityCfm:     stay(Closing),
		EvStrWriteCfm:        stay(Closing),
		EvStrSuspendCfm:      stay(Closing),
		EvStrReconfigCfm:     stay(Closing),
		EvAVRCTimer:          stay(Closing),
		EvAVDTConnect:        stay(Closing),
		EvAVDTDisconnect:     to(Init, ActStreamClosed),
		EvRoleChange:         stay(Closing),
		EvAVDTDelayReport:    stay(Closing),
		EvACPConnect:         stay(Closing),
		EvAPIOffloadStart:    to(Closing, ActOffloadRequest),
		EvAPIOffloadStartRsp: to(Closing, ActOffloadResponse),
	},
}
