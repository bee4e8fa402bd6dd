package websocket

import "strconv"

// CloseCode is a WebSocket close status code, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.
type CloseCode uint16

const (
	CloseNormalClosure           CloseCode = 1000
	CloseGoingAway               CloseCode = 1001
	CloseProtocolError           CloseCode = 1002
	CloseUnsupportedData         CloseCode = 1003
	// 1004 is reserved and MUST NOT be used.
	CloseNoStatusReceived        CloseCode = 1005 // never sent on the wire; local use only.
	CloseAbnormalClosure         CloseCode = 1006 // never sent on the wire; local use only.
	CloseInvalidFramePayloadData CloseCode = 1007
	ClosePolicyViolation         CloseCode = 1008
	CloseMessageTooBig           CloseCode = 1009
	CloseMandatoryExtension      CloseCode = 1010
	CloseInternalServerErr       CloseCode = 1011
	CloseServiceRestart          CloseCode = 1012
	CloseTryAgainLater           CloseCode = 1013
	CloseBadGateway              CloseCode = 1014
	CloseTLSHandshake            CloseCode = 1015 // never sent on the wire; local use only.
)

// String returns a human-readable name for the close code, or its number
// if it's outside the named range.
//
//nolint:cyclop // one branch per defined close code.
func (c CloseCode) String() string {
	switch c {
	case CloseNormalClosure:
		return "normal closure"
	case CloseGoingAway:
		return "going away"
	case CloseProtocolError:
		return "protocol error"
	case CloseUnsupportedData:
		return "unsupported data"
	case CloseNoStatusReceived:
		return "no status received"
	case CloseAbnormalClosure:
		return "abnormal closure"
	case CloseInvalidFramePayloadData:
		return "invalid frame payload data"
	case ClosePolicyViolation:
		return "policy violation"
	case CloseMessageTooBig:
		return "message too big"
	case CloseMandatoryExtension:
		return "mandatory extension"
	case CloseInternalServerErr:
		return "internal server error"
	case CloseServiceRestart:
		return "service restart"
	case CloseTryAgainLater:
		return "try again later"
	case CloseBadGateway:
		return "bad gateway"
	case CloseTLSHandshake:
		return "TLS handshake"
	default:
		return strconv.Itoa(int(c))
	}
}

// validOnWire reports whether code is legal to appear in a received Close
// frame's payload. 1004, 1005, 1006, and 1015 are reserved for local use
// only and must never be put on the wire; anything below 1000, in
// 1016-2999, or above 4999 is likewise forbidden. See spec.md Section 3.
func (c CloseCode) validOnWire() bool {
	switch {
	case c < 1000:
		return false
	case c == CloseNoStatusReceived || c == CloseAbnormalClosure || c == CloseTLSHandshake:
		return false
	case c == 1004:
		return false
	case c >= 1016 && c <= 2999:
		return false
	case c > 4999:
		return false
	default:
		return true
	}
}
