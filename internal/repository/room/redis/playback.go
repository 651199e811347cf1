package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

type playbackRecord struct {
	MediaUrl      string  `redis:"media_url"`
	MediaType     string  `redis:"media_type"`
	IsPlaying     bool    `redis:"is_playing"`
	CurrentTime   float64 `redis:"current_time"`
	PlaybackSpeed float64 `redis:"playback_speed"`
	LastUpdatedBy string  `redis:"last_updated_by"`
	LastUpdated   string  `redis:"last_updated"`
}

func (r repo) newPlaybackRecord(state room.PlaybackState) playbackRecord {
	return playbackRecord{
		MediaUrl:      state.MediaUrl,
		MediaType:     state.MediaType,
		IsPlaying:     state.IsPlaying,
		CurrentTime:   state.CurrentTime,
		PlaybackSpeed: state.PlaybackSpeed,
		LastUpdatedBy: state.LastUpdatedBy,
		LastUpdated:   r.formatTime(state.LastUpdated),
	}
}

func (r repo) CreatePlaybackState(ctx context.Context, roomId string, state room.PlaybackState) error {
	return r.setPlayback(ctx, roomId, state)
}

// UpdatePlaybackState overwrites the stored state. Merging a partial update is the caller's job.
func (r repo) UpdatePlaybackState(ctx context.Context, roomId string, state room.PlaybackState) error {
	return r.setPlayback(ctx, roomId, state)
}

func (r repo) setPlayback(ctx context.Context, roomId string, state room.PlaybackState) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "playback", state)
	pipe := r.rc.TxPipeline()

	playbackKey := r.getPlaybackKey(roomId)
	r.hSetStruct(ctx, pipe, playbackKey, r.newPlaybackRecord(state))
	r.expire(ctx, pipe, playbackKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetPlaybackState(ctx context.Context, roomId string) (room.PlaybackState, error) {
	cmd := r.rc.HGetAll(ctx, r.getPlaybackKey(roomId))
	if err := cmd.Err(); err != nil {
		return room.PlaybackState{}, r.storeErr(err)
	}

	if len(cmd.Val()) == 0 {
		return room.PlaybackState{}, room.ErrPlaybackNotFound
	}

	var record playbackRecord
	if err := cmd.Scan(&record); err != nil {
		return room.PlaybackState{}, fmt.Errorf("failed to scan playback: %w", err)
	}

	return room.PlaybackState{
		MediaUrl:      record.MediaUrl,
		MediaType:     record.MediaType,
		IsPlaying:     record.IsPlaying,
		CurrentTime:   record.CurrentTime,
		PlaybackSpeed: record.PlaybackSpeed,
		LastUpdatedBy: record.LastUpdatedBy,
		LastUpdated:   r.parseTime(record.LastUpdated),
	}, nil
}

func (r repo) DeletePlaybackState(ctx context.Context, roomId string) error {
	if err := r.rc.Del(ctx, r.getPlaybackKey(roomId)).Err(); err != nil {
		return r.storeErr(err)
	}

	return nil
}
