package redis

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) AddConnection(ctx context.Context, params *room.ConnectionParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	connectionsKey := r.getConnectionsKey(params.RoomId, params.UserId)
	indexKey := r.getConnectionIndexKey(params.RoomId)
	pipe.SAdd(ctx, connectionsKey, params.ConnectionId)
	pipe.SAdd(ctx, indexKey, params.UserId)
	r.expire(ctx, pipe, connectionsKey, indexKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// RemoveConnection returns the number of connections the user still holds in the room.
func (r repo) RemoveConnection(ctx context.Context, params *room.ConnectionParams) (int, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	remaining, err := removeConnectionScript.Run(
		ctx,
		r.rc,
		[]string{r.getConnectionsKey(params.RoomId, params.UserId), r.getConnectionIndexKey(params.RoomId)},
		params.ConnectionId,
		params.UserId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, r.storeErr(err)
	}

	r.logger.DebugContext(ctx, "returned", "remaining", remaining)
	return remaining, nil
}

func (r repo) HasActiveConnections(ctx context.Context, roomId, userId string) (bool, error) {
	count, err := r.rc.SCard(ctx, r.getConnectionsKey(roomId, userId)).Result()
	if err != nil {
		return false, r.storeErr(err)
	}

	return count > 0, nil
}

func (r repo) GetConnections(ctx context.Context, roomId, userId string) ([]string, error) {
	connections, err := r.rc.SMembers(ctx, r.getConnectionsKey(roomId, userId)).Result()
	if err != nil {
		return nil, r.storeErr(err)
	}

	return connections, nil
}
