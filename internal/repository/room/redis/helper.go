package redis

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
)

const activeRoomsKey = "active_rooms"

func (r repo) getMetadataKey(roomId string) string {
	return "room:" + roomId + ":metadata"
}

func (r repo) getMembersKey(roomId string) string {
	return "room:" + roomId + ":members"
}

func (r repo) getPlaybackKey(roomId string) string {
	return "room:" + roomId + ":playback"
}

func (r repo) getConnectionIndexKey(roomId string) string {
	return "room:" + roomId + ":connections"
}

func (r repo) getConnectionsKey(roomId, userId string) string {
	return "room:" + roomId + ":connections:" + userId
}

func (r repo) storeErr(err error) error {
	return fmt.Errorf("%w: %w", room.ErrStoreUnavailable, err)
}

func (r repo) expireMillis() int64 {
	return r.expireDuration.Milliseconds()
}

func (r repo) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if r.expireDuration <= 0 {
		return
	}

	for _, key := range keys {
		pipe.PExpire(ctx, key, r.expireDuration)
	}
}

// hSetStruct writes the exported fields of value to a hash using their redis tags.
func (r repo) hSetStruct(ctx context.Context, c redis.Pipeliner, key string, value any) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]any, v.NumField())
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" || tag == "-" {
			continue
		}

		fields[tag] = v.Field(i).Interface()
	}

	c.HSet(ctx, key, fields)
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
				return r.storeErr(err)
			}
		}

		if errors.Is(err, redis.Nil) {
			return nil
		}

		return r.storeErr(err)
	}

	return nil
}

func (r repo) formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r repo) parseTime(field string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, field)
	return t
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
