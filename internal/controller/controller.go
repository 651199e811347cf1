package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/metric"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.Room, error)
	ListActiveRooms(context.Context) ([]room.Room, error)
	GetRoomDetails(context.Context, string) (room.RoomDetails, error)
	GetPlaybackState(context.Context, string) (*room.PlaybackState, error)
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) (room.PlaybackState, error)
	HandleUserConnection(context.Context, *room.ConnectionParams) ([]room.Event, error)
	HandleUserMessage(context.Context, *room.MessageParams, room.Message) ([]room.Event, error)
	HandleUserDisconnection(context.Context, *room.ConnectionParams) ([]room.Event, error)
}

type iConnRepo interface {
	Subscribe(connectionId, roomId, userId string, conn connection.Conn) error
	Unsubscribe(connectionId string) error
	Send(connectionId string, data []byte) error
	Publish(roomId string, data []byte) int
}

type iVerifier interface {
	Verify(token string) (string, error)
}

type Config struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	ReadLimit  int64
	// DisconnectTimeout bounds the cleanup run after a websocket closes.
	DisconnectTimeout time.Duration
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	verifier    iVerifier
	metrics     *metric.Metrics
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	cfg         Config
	logger      *slog.Logger
	sessions    *sessionGroup
	closing     chan struct{}
	closeOnce   *sync.Once
}

func NewController(
	roomService iRoomService,
	connRepo iConnRepo,
	verifier iVerifier,
	metrics *metric.Metrics,
	cfg Config,
	logger *slog.Logger,
) *controller {
	c := &controller{
		roomService: roomService,
		connRepo:    connRepo,
		verifier:    verifier,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:  validator.NewValidator(),
		cfg:       cfg,
		logger:    logger,
		sessions:  &sessionGroup{},
		closing:   make(chan struct{}),
		closeOnce: &sync.Once{},
	}
	c.wsmux = c.getWSRouter()

	return c
}

// Shutdown closes every open websocket session and waits until their
// disconnect handling has finished or ctx is done.
func (c controller) Shutdown(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.sessions.close()
		close(c.closing)
	})

	done := make(chan struct{})
	go func() {
		c.sessions.wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
