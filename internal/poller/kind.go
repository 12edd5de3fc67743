package poller

// RequestKind tells which handler a completed request is dispatched to.
type RequestKind int

const (
	RequestIdle RequestKind = iota
	RequestVersionCheck
	RequestMessageCheck
)

func (k RequestKind) String() string {
	switch k {
	case RequestIdle:
		return "idle"
	case RequestVersionCheck:
		return "version"
	case RequestMessageCheck:
		return "message"
	default:
		return "unknown"
	}
}

// ParseRequestKind maps console names to kinds.
func ParseRequestKind(raw string) (RequestKind, bool) {
	switch raw {
	case "version":
		return RequestVersionCheck, true
	case "message", "motd":
		return RequestMessageCheck, true
	default:
		return RequestIdle, false
	}
}
