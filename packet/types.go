package packet

import "fmt"

type PacketType uint16

// engine level packets, business packets start at PacketUserBase
const (
	PacketHeartbeatRq PacketType = iota
	PacketHeartbeatRs
	PacketSessionCreateRq
	PacketSessionCreateRs
	PacketSessionAuthRq
	PacketSessionAuthRs
	PacketSessionCloseRq
	PacketBandwidthOverflowPs
	PacketServerIsBusyPs
	PacketUserBase PacketType = 64
)

var packetTypeNames = [...]string{
	PacketHeartbeatRq:         "heartbeat_rq",
	PacketHeartbeatRs:         "heartbeat_rs",
	PacketSessionCreateRq:     "session_create_rq",
	PacketSessionCreateRs:     "session_create_rs",
	PacketSessionAuthRq:       "session_auth_rq",
	PacketSessionAuthRs:       "session_auth_rs",
	PacketSessionCloseRq:      "session_close_rq",
	PacketBandwidthOverflowPs: "bandwidth_overflow_ps",
	PacketServerIsBusyPs:      "server_is_busy_ps",
}

func (t PacketType) String() string {
	if int(t) < len(packetTypeNames) && packetTypeNames[t] != "" {
		return packetTypeNames[t]
	}
	return fmt.Sprintf("packet(%d)", uint16(t))
}

type ErrorCode uint16

const (
	ErrorNone ErrorCode = iota
	ErrorUnknownServerID
	ErrorSectorNotFound
	ErrorObjectNotFound
	ErrorRecoveryFailed
	ErrorSessionAuthFailed
	ErrorSessionIsNotReady
	ErrorSessionIsFull
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "None"
	case ErrorUnknownServerID:
		return "UnknownServerId"
	case ErrorSectorNotFound:
		return "SectorNotFound"
	case ErrorObjectNotFound:
		return "ObjectNotFound"
	case ErrorRecoveryFailed:
		return "RecoveryFailed"
	case ErrorSessionAuthFailed:
		return "SessionAuthFailed"
	case ErrorSessionIsNotReady:
		return "SessionIsNotReady"
	case ErrorSessionIsFull:
		return "SessionIsFull"
	}
	return fmt.Sprintf("ErrorCode(%d)", uint16(c))
}
