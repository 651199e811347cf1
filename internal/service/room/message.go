package room

// Message is an inbound protocol message. The set of implementations is closed.
type Message interface {
	isMessage()
}

type UpdatePlayback struct {
	Patch PlaybackPatch
}

type SyncRequest struct{}

type Heartbeat struct{}

func (UpdatePlayback) isMessage() {}
func (SyncRequest) isMessage()    {}
func (Heartbeat) isMessage()      {}
