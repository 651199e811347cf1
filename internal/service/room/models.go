package room

import (
	"time"

	"github.com/sharetube/watchparty/internal/repository/room"
)

type Room struct {
	RoomId          string    `json:"roomId"`
	Name            string    `json:"name"`
	HostId          string    `json:"hostId"`
	IsPublic        bool      `json:"isPublic"`
	MaxParticipants int       `json:"maxParticipants"`
	CreatedAt       time.Time `json:"createdAt"`
}

type PlaybackState struct {
	MediaUrl      string    `json:"mediaUrl"`
	MediaType     string    `json:"mediaType"`
	IsPlaying     bool      `json:"isPlaying"`
	CurrentTime   float64   `json:"currentTime"`
	PlaybackSpeed float64   `json:"playbackSpeed"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// RoomDetails is the composite view sent in SYNC_FULL_STATE.
type RoomDetails struct {
	Room
	Members       []string       `json:"members"`
	PlaybackState *PlaybackState `json:"playbackState"`
}

// PlaybackPatch holds the fields a client wants to change. Nil fields keep their stored value.
type PlaybackPatch struct {
	MediaUrl      *string  `json:"mediaUrl"`
	MediaType     *string  `json:"mediaType"`
	IsPlaying     *bool    `json:"isPlaying"`
	CurrentTime   *float64 `json:"currentTime"`
	PlaybackSpeed *float64 `json:"playbackSpeed"`
}

func newRoom(roomId string, metadata room.Metadata) Room {
	return Room{
		RoomId:          roomId,
		Name:            metadata.Name,
		HostId:          metadata.HostId,
		IsPublic:        metadata.IsPublic,
		MaxParticipants: metadata.MaxParticipants,
		CreatedAt:       metadata.CreatedAt,
	}
}

func newPlaybackState(state room.PlaybackState) PlaybackState {
	return PlaybackState{
		MediaUrl:      state.MediaUrl,
		MediaType:     state.MediaType,
		IsPlaying:     state.IsPlaying,
		CurrentTime:   state.CurrentTime,
		PlaybackSpeed: state.PlaybackSpeed,
		LastUpdatedBy: state.LastUpdatedBy,
		LastUpdated:   state.LastUpdated,
	}
}
