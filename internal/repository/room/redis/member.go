package redis

import (
	"context"
	"fmt"
)

func (r repo) AddMember(ctx context.Context, roomId, userId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "user_id", userId)
	if err := addMemberScript.Run(ctx, r.rc, []string{r.getMembersKey(roomId)}, userId, r.expireMillis()).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.storeErr(err)
	}

	return nil
}

func (r repo) RemoveMember(ctx context.Context, roomId, userId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "user_id", userId)
	if err := r.rc.ZRem(ctx, r.getMembersKey(roomId), userId).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.storeErr(err)
	}

	return nil
}

// GetMembers returns member ids in join order.
func (r repo) GetMembers(ctx context.Context, roomId string) ([]string, error) {
	members, err := r.rc.ZRange(ctx, r.getMembersKey(roomId), 0, -1).Result()
	if err != nil {
		return nil, r.storeErr(err)
	}

	return members, nil
}

func (r repo) GetMemberCount(ctx context.Context, roomId string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getMembersKey(roomId)).Result()
	if err != nil {
		return 0, r.storeErr(err)
	}

	return int(count), nil
}

func (r repo) IsMember(ctx context.Context, roomId, userId string) (bool, error) {
	_, err := r.rc.ZScore(ctx, r.getMembersKey(roomId), userId).Result()
	if err != nil {
		if isNil(err) {
			return false, nil
		}

		return false, r.storeErr(fmt.Errorf("failed to get member score: %w", err))
	}

	return true, nil
}
