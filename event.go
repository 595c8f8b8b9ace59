package avssm

import (
	"fmt"
	"strings"
)

// Event is a stream state machine event. Values are zero-based table
// columns; on the wire an event travels as FirstEventCode plus its index.
type Event uint8

// FirstEventCode is the wire code of EvAPIOpen.
const FirstEventCode uint16 = 0x1200

const (
	EvAPIOpen Event = iota
	EvAPIClose
	EvAPStart
	EvAPStop
	EvAPIReconfig
	EvAPIProtectReq
	EvAPIProtectRsp
	EvAPIRCOpen
	EvSrcDataReady
	EvCISetConfigOK
	EvCISetConfigFail
	EvSDPDiscOK
	EvSDPDiscFail
	EvStrDiscOK
	EvStrDiscFail
	EvStrGetCapOK
	EvStrGetCapFail
	EvStrOpenOK
	EvStrOpenFail
	EvStrStartOK
	EvStrStartFail
	EvStrClose
	EvStrConfigInd
	EvStrSecurityInd
	EvStrSecurityCfm
	EvStrWriteCfm
	EvStrSuspendCfm
	EvStrReconfigCfm
	EvAVRCTimer
	EvAVDTConnect
	EvAVDTDisconnect
	EvRoleChange
	EvAVDTDelayReport
	EvACPConnect
	EvAPIOffloadStart
	EvAPIOffloadStartRsp

	// NumEvents is the number of columns in the transition table.
	NumEvents = 36
)

var eventNames = [NumEvents]string{
	EvAPIOpen:            "API_OPEN",
	EvAPIClose:           "API_CLOSE",
	EvAPStart:            "AP_START",
	EvAPStop:             "AP_STOP",
	EvAPIReconfig:        "API_RECONFIG",
	EvAPIProtectReq:      "API_PROTECT_REQ",
	EvAPIProtectRsp:      "API_PROTECT_RSP",
	EvAPIRCOpen:          "API_RC_OPEN",
	EvSrcDataReady:       "SRC_DATA_READY",
	EvCISetConfigOK:      "CI_SETCONFIG_OK",
	EvCISetConfigFail:    "CI_SETCONFIG_FAIL",
	EvSDPDiscOK:          "SDP_DISC_OK",
	EvSDPDiscFail:        "SDP_DISC_FAIL",
	EvStrDiscOK:          "STR_DISC_OK",
	EvStrDiscFail:        "STR_DISC_FAIL",
	EvStrGetCapOK:        "STR_GETCAP_OK",
	EvStrGetCapFail:      "STR_GETCAP_FAIL",
	EvStrOpenOK:          "STR_OPEN_OK",
	EvStrOpenFail:        "STR_OPEN_FAIL",
	EvStrStartOK:         "STR_START_OK",
	EvStrStartFail:       "STR_START_FAIL",
	EvStrClose:           "STR_CLOSE",
	EvStrConfigInd:       "STR_CONFIG_IND",
	EvStrSecurityInd:     "STR_SECURITY_IND",
	EvStrSecurityCfm:     "STR_SECURITY_CFM",
	EvStrWriteCfm:        "STR_WRITE_CFM",
	EvStrSuspendCfm:      "STR_SUSPEND_CFM",
	EvStrReconfigCfm:     "STR_RECONFIG_CFM",
	EvAVRCTimer:          "AVRC_TIMER",
	EvAVDTConnect:        "AVDT_CONNECT",
	EvAVDTDisconnect:     "AVDT_DISCONNECT",
	EvRoleChange:         "ROLE_CHANGE",
	EvAVDTDelayReport:    "AVDT_DELAY_RPT",
	EvACPConnect:         "ACP_CONNECT",
	EvAPIOffloadStart:    "API_OFFLOAD_START",
	EvAPIOffloadStartRsp: "API_OFFLOAD_START_RSP",
}

// Valid reports whether e indexes a table column.
func (e Event) Valid() bool {
	return e < NumEvents
}

// Index returns the zero-based table column of e.
func (e Event) Index() int {
	return int(e)
}

// Code returns the wire code of e.
func (e Event) Code() uint16 {
	return FirstEventCode + uint16(e)
}

func (e Event) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EVENT(%d)", uint8(e))
	}
	return eventNames[e]
}

// EventFromCode maps a wire code back to its event. Codes outside
// [FirstEventCode, FirstEventCode+NumEvents) are rejected.
func EventFromCode(code uint16) (Event, error) {
	if code < FirstEventCode || code-FirstEventCode >= NumEvents {
		return 0, fmt.Errorf("%w: code 0x%04x", ErrEventOutOfRange, code)
	}
	return Event(code - FirstEventCode), nil
}

// ParseEvent resolves a label such as "STR_OPEN_OK". The "_EVT" suffix used
// by stack traces is accepted.
func ParseEvent(name string) (Event, error) {
	name = strings.TrimSuffix(strings.ToUpper(name), "_EVT")
	for i, n := range eventNames {
		if n == name {
			return Event(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrEventOutOfRange, name)
}

// Events returns every stream event in table order.
func Events() []Event {
	out := make([]Event, NumEvents)
	for i := range out {
		out[i] = Event(i)
	}
	return out
}
