package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/mediatype"
)

const defaultPlaybackSpeed = 1.0

type UpdatePlaybackParams struct {
	RoomId string
	UserId string
	Patch  PlaybackPatch
}

// UpdatePlayback applies a patch on behalf of a room member outside of a
// websocket session. The caller is responsible for broadcasting the result.
func (s service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams) (PlaybackState, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	return s.updatePlayback(ctx, params.RoomId, params.UserId, &params.Patch)
}

func (s service) updatePlayback(ctx context.Context, roomId, userId string, patch *PlaybackPatch) (PlaybackState, error) {
	if err := patch.validate(); err != nil {
		return PlaybackState{}, err
	}

	if _, err := s.getMetadata(ctx, roomId); err != nil {
		return PlaybackState{}, err
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomId, userId)
	if err != nil {
		return PlaybackState{}, fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		return PlaybackState{}, ErrNotMember
	}

	exists := true
	prev, err := s.roomRepo.GetPlaybackState(ctx, roomId)
	if err != nil {
		if !errors.Is(err, room.ErrPlaybackNotFound) {
			return PlaybackState{}, fmt.Errorf("failed to get playback state: %w", err)
		}

		exists = false
		prev = room.PlaybackState{PlaybackSpeed: defaultPlaybackSpeed}
	}

	next := mergePlayback(prev, patch)
	next.LastUpdatedBy = userId
	next.LastUpdated = s.timestamp()

	if exists {
		err = s.roomRepo.UpdatePlaybackState(ctx, roomId, next)
	} else {
		err = s.roomRepo.CreatePlaybackState(ctx, roomId, next)
	}
	if err != nil {
		return PlaybackState{}, fmt.Errorf("failed to save playback state: %w", err)
	}

	s.refresh(ctx, roomId)

	return newPlaybackState(next), nil
}

// mergePlayback copies the supplied patch fields onto prev. A new media url
// without an explicit type gets its type inferred.
func mergePlayback(prev room.PlaybackState, patch *PlaybackPatch) room.PlaybackState {
	next := prev
	if patch.MediaUrl != nil {
		next.MediaUrl = *patch.MediaUrl
		if patch.MediaType == nil && next.MediaUrl != prev.MediaUrl {
			next.MediaType = inferMediaType(next.MediaUrl)
		}
	}

	if patch.MediaType != nil {
		next.MediaType = *patch.MediaType
	}

	if patch.IsPlaying != nil {
		next.IsPlaying = *patch.IsPlaying
	}

	if patch.CurrentTime != nil {
		next.CurrentTime = *patch.CurrentTime
	}

	if patch.PlaybackSpeed != nil {
		next.PlaybackSpeed = *patch.PlaybackSpeed
	}

	return next
}

func inferMediaType(mediaUrl string) string {
	if mediaUrl == "" {
		return ""
	}

	return mediatype.Detect(mediaUrl)
}
