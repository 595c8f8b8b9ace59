package avssm

import (
	"errors"
	"fmt"
)

// ActionID names a side-effecting operation implemented outside this
// package. The zero value NoAction never runs.
type ActionID uint8

const (
	NoAction ActionID = iota
	ActStartDiscovery
	ActCleanup
	ActFreeSDPDatabase
	ActConfigIndication
	ActDisconnectRequest
	ActSecurityRequest
	ActSecurityResponse
	ActSetConfigResponse
	ActStartReconnectTimer
	ActStreamOpened
	ActSecurityIndication
	ActSecurityConfirm
	ActCloseStream
	ActConnectRequest
	ActSDPFailed
	ActDiscoveryResults
	ActDiscoveryResultsAsAcceptor
	ActOpenFailed
	ActGetCapResults
	ActRejectSetConfig
	ActDiscoverRequest
	ActConnectFailed
	ActStartStream
	ActStreamStopped
	ActReconfigure
	ActForwardDataPath
	ActStartOK
	ActStartFailed
	ActStreamClosed
	ActClearCongestion
	ActSuspendConfirm
	ActReconfigStreamOK
	ActReconfigFailed
	ActReconfigConnect
	ActReconfigDisconnected
	ActSuspendContinue
	ActReconfigConfirm
	ActReconfigOpen
	ActRejectSecurity
	ActOpenRemoteControl
	ActCheckSecondStart
	ActSaveCapabilities
	ActSetUseRemoteControl
	ActCodecClose
	ActSwitchRole
	ActRoleResult
	ActDelayReport
	ActOpenAtIncoming
	ActOffloadRequest
	ActOffloadResponse

	numActions
)

var actionNames = [numActions]string{
	NoAction:                      "NONE",
	ActStartDiscovery:             "START_DISCOVERY",
	ActCleanup:                    "CLEANUP",
	ActFreeSDPDatabase:            "FREE_SDP_DB",
	ActConfigIndication:           "CONFIG_IND",
	ActDisconnectRequest:          "DISCONNECT_REQ",
	ActSecurityRequest:            "SECURITY_REQ",
	ActSecurityResponse:           "SECURITY_RSP",
	ActSetConfigResponse:          "SETCONFIG_RSP",
	ActStartReconnectTimer:        "START_RC_TIMER",
	ActStreamOpened:               "STREAM_OPENED",
	ActSecurityIndication:         "SECURITY_IND",
	ActSecurityConfirm:            "SECURITY_CFM",
	ActCloseStream:                "CLOSE_STREAM",
	ActConnectRequest:             "CONNECT_REQ",
	ActSDPFailed:                  "SDP_FAILED",
	ActDiscoveryResults:           "DISC_RESULTS",
	ActDiscoveryResultsAsAcceptor: "DISC_RESULTS_AS_ACP",
	ActOpenFailed:                 "OPEN_FAILED",
	ActGetCapResults:              "GETCAP_RESULTS",
	ActRejectSetConfig:            "SETCONFIG_REJ",
	ActDiscoverRequest:            "DISCOVER_REQ",
	ActConnectFailed:              "CONN_FAILED",
	ActStartStream:                "START_STREAM",
	ActStreamStopped:              "STREAM_STOPPED",
	ActReconfigure:                "RECONFIG",
	ActForwardDataPath:            "DATA_PATH",
	ActStartOK:                    "START_OK",
	ActStartFailed:                "START_FAILED",
	ActStreamClosed:               "STREAM_CLOSED",
	ActClearCongestion:            "CLEAR_CONGESTION",
	ActSuspendConfirm:             "SUSPEND_CFM",
	ActReconfigStreamOK:           "RCFG_STREAM_OK",
	ActReconfigFailed:             "RCFG_FAILED",
	ActReconfigConnect:            "RCFG_CONNECT",
	ActReconfigDisconnected:       "RCFG_DISCONNECTED",
	ActSuspendContinue:            "SUSPEND_CONTINUE",
	ActReconfigConfirm:            "RCFG_CFM",
	ActReconfigOpen:               "RCFG_OPEN",
	ActRejectSecurity:             "SECURITY_REJ",
	ActOpenRemoteControl:          "OPEN_RC",
	ActCheckSecondStart:           "CHECK_2ND_START",
	ActSaveCapabilities:           "SAVE_CAPS",
	ActSetUseRemoteControl:        "SET_USE_RC",
	ActCodecClose:                 "CODEC_CLOSE",
	ActSwitchRole:                 "SWITCH_ROLE",
	ActRoleResult:                 "ROLE_RESULT",
	ActDelayReport:                "DELAY_REPORT",
	ActOpenAtIncoming:             "OPEN_AT_INCOMING",
	ActOffloadRequest:             "OFFLOAD_REQ",
	ActOffloadResponse:            "OFFLOAD_RSP",
}

// Valid reports whether id is NoAction or a defined action.
func (id ActionID) Valid() bool {
	return id < numActions
}

func (id ActionID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("ACTION(%d)", uint8(id))
	}
	return actionNames[id]
}

// ParseAction resolves a label such as "STREAM_OPENED".
func ParseAction(name string) (ActionID, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionID(i), nil
		}
	}
	return NoAction, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Actions returns every action except NoAction.
func Actions() []ActionID {
	out := make([]ActionID, 0, numActions-1)
	for id := ActStartDiscovery; id < numActions; id++ {
		out = append(out, id)
	}
	return out
}

// ActionRunner executes the actions selected by the transition table. It is
// supplied by whoever owns the connection.
type ActionRunner interface {
	Run(c *Connection, id ActionID, payload any)
}

// ActionFunc handles one action for one connection.
type ActionFunc func(c *Connection, payload any)

// RunnerFunc adapts a plain function to ActionRunner.
type RunnerFunc func(c *Connection, id ActionID, payload any)

func (f RunnerFunc) Run(c *Connection, id ActionID, payload any) {
	f(c, id, payload)
}

// ActionTable maps action identifiers to their handlers.
type ActionTable map[ActionID]ActionFunc

// Run invokes the handler registered for id. A missing handler is a wiring
// bug in the owner; it is logged and the action is skipped.
func (t ActionTable) Run(c *Connection, id ActionID, payload any) {
	h, ok := t[id]
	if !ok || h == nil {
		Logger.Error("no handler for action", "conn", c, "action", id)
		return
	}
	h(c, payload)
}

// Validate reports every action reachable from tbl that has no handler.
func (t ActionTable) Validate(tbl Table) error {
	var errs []error
	for _, id := range tbl.ReachableActions() {
		if h, ok := t[id]; !ok || h == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingHandler, id))
		}
	}
	return errors.Join(errs...)
}
