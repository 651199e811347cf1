package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/rest"
)

const closeWait = time.Second

func (c controller) serveRoomWS(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room_id", roomId))

	if !c.sessions.add() {
		c.logger.InfoContext(ctx, "websocket refused, server is shutting down")
		rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": "server is shutting down"})
		return
	}
	defer c.sessions.done()

	userId, authErr := c.authenticate(r)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	if authErr != nil {
		c.logger.InfoContext(ctx, "websocket rejected", "error", authErr)
		c.rejectConn(ctx, conn, authErr)
		return
	}

	connectionId := uuid.NewString()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", userId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connectionId))
	params := &room.ConnectionParams{
		RoomId:       roomId,
		UserId:       userId,
		ConnectionId: connectionId,
	}

	events, err := c.roomService.HandleUserConnection(ctx, params)
	if err != nil {
		c.logger.InfoContext(ctx, "websocket rejected", "error", err)
		c.rejectConn(ctx, conn, err)
		c.disconnect(ctx, params)
		return
	}

	if err := c.connRepo.Subscribe(connectionId, roomId, userId, conn); err != nil {
		c.logger.ErrorContext(ctx, "failed to subscribe connection", "error", err)
		c.disconnect(ctx, params)
		return
	}
	defer c.disconnect(ctx, params)

	c.logger.InfoContext(ctx, "websocket connected")
	c.publish(ctx, roomId, connectionId, events)

	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, userIdCtxKey, userId)
	ctx = context.WithValue(ctx, connectionIdCtxKey, connectionId)

	stopKeepAlive := c.keepAlive(ctx, conn)
	defer stopKeepAlive()

	err = c.wsmux.ServeConn(ctx, conn)
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		c.logger.InfoContext(ctx, "websocket closed unexpectedly", "error", err)
		return
	}

	c.logger.InfoContext(ctx, "websocket closed", "reason", err)
}

// rejectConn sends an ERROR event and closes a connection that never joined its room.
func (c controller) rejectConn(ctx context.Context, conn *websocket.Conn, cause error) {
	data, err := json.Marshal(room.ErrorEvent(c.errorMessage(cause)))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to marshal error event", "error", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(closeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.DebugContext(ctx, "failed to write error event", "error", err)
		return
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, c.errorMessage(cause)),
		time.Now().Add(closeWait),
	)
}

// disconnect unsubscribes the connection and runs the leave logic on a context
// that outlives the request, so cleanup still happens during shutdown.
func (c controller) disconnect(ctx context.Context, params *room.ConnectionParams) {
	if err := c.connRepo.Unsubscribe(params.ConnectionId); err != nil {
		c.logger.DebugContext(ctx, "failed to unsubscribe connection", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.DisconnectTimeout)
	defer cancel()

	events, err := c.roomService.HandleUserDisconnection(ctx, params)
	if err != nil {
		if errors.Is(err, room.ErrStoreUnavailable) {
			c.logger.WarnContext(ctx, "membership may be stale after disconnect", "error", err)
		} else {
			c.logger.ErrorContext(ctx, "failed to handle disconnection", "error", err)
		}
	}

	c.publish(ctx, params.RoomId, "", events)
}

// keepAlive pings the client every ping period and expects a pong within the
// pong wait. It also closes the connection on shutdown or once ctx is done.
func (c controller) keepAlive(ctx context.Context, conn *websocket.Conn) func() {
	conn.SetReadLimit(c.cfg.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.cfg.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-c.closing:
				c.goingAway(conn)
				return
			case <-ctx.Done():
				c.goingAway(conn)
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeWait)); err != nil {
					c.logger.DebugContext(ctx, "failed to ping", "error", err)
					conn.Close()
					return
				}
			}
		}
	}()

	return func() {
		close(done)
	}
}

func (c controller) goingAway(conn *websocket.Conn) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(closeWait),
	)
	conn.Close()
}
