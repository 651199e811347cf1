package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

type metadataRecord struct {
	Name            string `redis:"name"`
	HostId          string `redis:"host_id"`
	IsPublic        bool   `redis:"is_public"`
	MaxParticipants int    `redis:"max_participants"`
	CreatedAt       string `redis:"created_at"`
}

func (r repo) CreateMetadata(ctx context.Context, roomId string, metadata room.Metadata) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "metadata", metadata)
	pipe := r.rc.TxPipeline()

	metadataKey := r.getMetadataKey(roomId)
	pipe.Del(ctx, metadataKey)
	r.hSetStruct(ctx, pipe, metadataKey, metadataRecord{
		Name:            metadata.Name,
		HostId:          metadata.HostId,
		IsPublic:        metadata.IsPublic,
		MaxParticipants: metadata.MaxParticipants,
		CreatedAt:       r.formatTime(metadata.CreatedAt),
	})
	r.expire(ctx, pipe, metadataKey)
	pipe.SAdd(ctx, activeRoomsKey, roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMetadata(ctx context.Context, roomId string) (room.Metadata, error) {
	cmd := r.rc.HGetAll(ctx, r.getMetadataKey(roomId))
	if err := cmd.Err(); err != nil {
		return room.Metadata{}, r.storeErr(err)
	}

	if len(cmd.Val()) == 0 {
		return room.Metadata{}, room.ErrMetadataNotFound
	}

	var record metadataRecord
	if err := cmd.Scan(&record); err != nil {
		return room.Metadata{}, fmt.Errorf("failed to scan metadata: %w", err)
	}

	return room.Metadata{
		Name:            record.Name,
		HostId:          record.HostId,
		IsPublic:        record.IsPublic,
		MaxParticipants: record.MaxParticipants,
		CreatedAt:       r.parseTime(record.CreatedAt),
	}, nil
}

func (r repo) DeleteMetadata(ctx context.Context, roomId string) error {
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getMetadataKey(roomId))
	pipe.SRem(ctx, activeRoomsKey, roomId)

	return r.executePipe(ctx, pipe)
}

func (r repo) UpdateHost(ctx context.Context, roomId, newHostId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "new_host_id", newHostId)
	updated, err := updateHostScript.Run(ctx, r.rc, []string{r.getMetadataKey(roomId)}, newHostId).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.storeErr(err)
	}

	if updated == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMetadataNotFound)
		return room.ErrMetadataNotFound
	}

	return nil
}
