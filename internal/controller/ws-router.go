package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	messageUpdatePlayback = "UPDATE_PLAYBACK"
	messageSyncRequest    = "SYNC_REQUEST"
	messageHeartbeat      = "HEARTBEAT"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw(), c.metricsWSMw())
	mux.OnError(c.handleWSError)

	// playback
	wsrouter.Handle(mux, messageUpdatePlayback, c.handleUpdatePlayback)
	// state
	wsrouter.Handle(mux, messageSyncRequest, c.handleSyncRequest)
	wsrouter.Handle(mux, messageHeartbeat, c.handleHeartbeat)

	return mux
}

// handleWSError answers the offending connection with an ERROR event. The connection stays open.
func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	if errors.Is(err, wsrouter.ErrUnknownMessageType) ||
		errors.Is(err, wsrouter.ErrInvalidMessage) ||
		errors.Is(err, wsrouter.ErrInvalidPayload) {
		c.metrics.RecordMessage("unrouted", "rejected")
	}

	c.logger.InfoContext(ctx, "websocket message failed", "error", err)
	c.publish(ctx, c.getRoomIdFromCtx(ctx), c.getConnectionIdFromCtx(ctx), []room.Event{
		room.ErrorEvent(c.errorMessage(err)),
	})
}
