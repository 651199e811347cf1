package room

import "errors"

var (
	ErrMetadataNotFound = errors.New("room metadata not found")
	ErrPlaybackNotFound = errors.New("playback state not found")
	ErrStoreUnavailable = errors.New("state store unavailable")
)
