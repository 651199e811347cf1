package room

type Scope int

const (
	// ScopeBroadcast delivers to every connection subscribed to the room.
	ScopeBroadcast Scope = iota
	// ScopeUnicast delivers only to the connection that triggered the operation.
	ScopeUnicast
)

const (
	EventPlaybackUpdated = "PLAYBACK_UPDATED"
	EventUserJoined      = "USER_JOINED"
	EventUserLeft        = "USER_LEFT"
	EventHostChanged     = "HOST_CHANGED"
	EventSyncFullState   = "SYNC_FULL_STATE"
	EventError           = "ERROR"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Scope   Scope  `json:"-"`
}

type MemberCountPayload struct {
	UserId      string `json:"userId"`
	MemberCount int    `json:"memberCount"`
}

type HostChangedPayload struct {
	NewHostId string `json:"newHostId"`
}

func broadcast(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, Scope: ScopeBroadcast}
}

func unicast(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, Scope: ScopeUnicast}
}

// ErrorEvent builds the unicast ERROR event sent to the offending connection.
func ErrorEvent(message string) Event {
	return unicast(EventError, message)
}

func (s Scope) String() string {
	switch s {
	case ScopeBroadcast:
		return "broadcast"
	case ScopeUnicast:
		return "unicast"
	default:
		return "unknown"
	}
}
