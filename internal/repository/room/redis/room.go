package redis

import (
	"context"
)

func (r repo) GetActiveRooms(ctx context.Context) ([]string, error) {
	roomIds, err := r.rc.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, r.storeErr(err)
	}

	return roomIds, nil
}

func (r repo) RemoveActiveRoom(ctx context.Context, roomId string) error {
	if err := r.rc.SRem(ctx, activeRoomsKey, roomId).Err(); err != nil {
		return r.storeErr(err)
	}

	return nil
}

// DeleteRoom removes every key that belongs to the room and drops it from the active set.
func (r repo) DeleteRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	userIds, err := r.rc.SMembers(ctx, r.getConnectionIndexKey(roomId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.storeErr(err)
	}

	keys := r.roomKeys(roomId)
	for _, userId := range userIds {
		keys = append(keys, r.getConnectionsKey(roomId, userId))
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, activeRoomsKey, roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// ExpireRoom pushes the expiration of all room keys forward.
func (r repo) ExpireRoom(ctx context.Context, roomId string) error {
	if r.expireDuration <= 0 {
		return nil
	}

	userIds, err := r.rc.SMembers(ctx, r.getConnectionIndexKey(roomId)).Result()
	if err != nil {
		return r.storeErr(err)
	}

	keys := r.roomKeys(roomId)
	for _, userId := range userIds {
		keys = append(keys, r.getConnectionsKey(roomId, userId))
	}

	pipe := r.rc.TxPipeline()
	r.expire(ctx, pipe, keys...)

	return r.executePipe(ctx, pipe)
}

func (r repo) roomKeys(roomId string) []string {
	return []string{
		r.getMetadataKey(roomId),
		r.getMembersKey(roomId),
		r.getPlaybackKey(roomId),
		r.getConnectionIndexKey(roomId),
	}
}

func (r repo) CountActiveRooms(ctx context.Context) (int, error) {
	count, err := r.rc.SCard(ctx, activeRoomsKey).Result()
	if err != nil {
		return 0, r.storeErr(err)
	}

	return int(count), nil
}
