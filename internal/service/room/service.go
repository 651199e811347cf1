package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/keymutex"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrInvalidRoom          = errors.New("invalid room")
	ErrInvalidPlaybackPatch = errors.New("invalid playback patch")
	ErrNotMember            = errors.New("user is not a member of the room")
	ErrStoreUnavailable     = room.ErrStoreUnavailable
)

type iRoomRepo interface {
	// metadata
	CreateMetadata(ctx context.Context, roomId string, metadata room.Metadata) error
	GetMetadata(ctx context.Context, roomId string) (room.Metadata, error)
	DeleteMetadata(ctx context.Context, roomId string) error
	UpdateHost(ctx context.Context, roomId, newHostId string) error
	// member
	AddMember(ctx context.Context, roomId, userId string) error
	RemoveMember(ctx context.Context, roomId, userId string) error
	GetMembers(ctx context.Context, roomId string) ([]string, error)
	GetMemberCount(ctx context.Context, roomId string) (int, error)
	IsMember(ctx context.Context, roomId, userId string) (bool, error)
	// playback
	CreatePlaybackState(ctx context.Context, roomId string, state room.PlaybackState) error
	GetPlaybackState(ctx context.Context, roomId string) (room.PlaybackState, error)
	UpdatePlaybackState(ctx context.Context, roomId string, state room.PlaybackState) error
	// connection
	AddConnection(ctx context.Context, params *room.ConnectionParams) error
	RemoveConnection(ctx context.Context, params *room.ConnectionParams) (int, error)
	HasActiveConnections(ctx context.Context, roomId, userId string) (bool, error)
	// room
	GetActiveRooms(ctx context.Context) ([]string, error)
	RemoveActiveRoom(ctx context.Context, roomId string) error
	DeleteRoom(ctx context.Context, roomId string) error
	ExpireRoom(ctx context.Context, roomId string) error
}

type service struct {
	roomRepo               iRoomRepo
	locks                  *keymutex.KeyMutex
	defaultMaxParticipants int
	logger                 *slog.Logger
	now                    func() time.Time
}

// NewService returns the room engine. Every operation touching one room runs
// under that room's lock, so callers may invoke it from any goroutine.
func NewService(roomRepo iRoomRepo, defaultMaxParticipants int, logger *slog.Logger) *service {
	return &service{
		roomRepo:               roomRepo,
		locks:                  keymutex.New(),
		defaultMaxParticipants: defaultMaxParticipants,
		logger:                 logger,
		now:                    time.Now,
	}
}

func (s service) lockRoom(roomId string) func() {
	return s.locks.Lock(roomId)
}

// timestamp is the current time in UTC without the monotonic reading, so it
// survives a round trip through the store unchanged.
func (s service) timestamp() time.Time {
	return s.now().UTC().Round(0)
}
