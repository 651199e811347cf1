package room

import "time"

type Metadata struct {
	Name            string
	HostId          string
	IsPublic        bool
	MaxParticipants int
	CreatedAt       time.Time
}

type PlaybackState struct {
	MediaUrl      string
	MediaType     string
	IsPlaying     bool
	CurrentTime   float64
	PlaybackSpeed float64
	LastUpdatedBy string
	LastUpdated   time.Time
}
