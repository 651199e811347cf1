package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// addMemberScript appends a member to the join-ordered list unless it is already present.
var addMemberScript = redis.NewScript(`
	if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
		return 0
	end
	local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	local nextScore = 1
	if #maxScore > 0 then
		nextScore = tonumber(maxScore[2]) + 1
	end
	redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
	if tonumber(ARGV[2]) > 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 1
`)

var updateHostScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'host_id', ARGV[1])
	return 1
`)

// removeConnectionScript drops the user's entry from the connection index once their set is empty.
var removeConnectionScript = redis.NewScript(`
	redis.call('SREM', KEYS[1], ARGV[1])
	local remaining = redis.call('SCARD', KEYS[1])
	if remaining == 0 then
		redis.call('DEL', KEYS[1])
		redis.call('SREM', KEYS[2], ARGV[2])
	end
	return remaining
`)

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
	logger         *slog.Logger
}

// NewRepo returns the redis backed room repository. Room keys get a sliding
// expiration of expireDuration; zero disables expiration.
func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		logger:         logger,
	}
}
