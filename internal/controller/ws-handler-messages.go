package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
)

type UpdatePlaybackInput struct {
	MediaUrl      *string  `json:"mediaUrl" validate:"omitnil,max=2048"`
	MediaType     *string  `json:"mediaType" validate:"omitnil,max=32"`
	IsPlaying     *bool    `json:"isPlaying"`
	CurrentTime   *float64 `json:"currentTime" validate:"omitnil,gte=0"`
	PlaybackSpeed *float64 `json:"playbackSpeed" validate:"omitnil,gte=0.25,lte=2"`
}

func (i UpdatePlaybackInput) patch() room.PlaybackPatch {
	return room.PlaybackPatch{
		MediaUrl:      i.MediaUrl,
		MediaType:     i.MediaType,
		IsPlaying:     i.IsPlaying,
		CurrentTime:   i.CurrentTime,
		PlaybackSpeed: i.PlaybackSpeed,
	}
}

type EmptyInput struct{}

func (c controller) handleUpdatePlayback(ctx context.Context, _ *websocket.Conn, input UpdatePlaybackInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return validationError{errs: validationErrors}
	}

	return c.handleMessage(ctx, room.UpdatePlayback{Patch: input.patch()})
}

func (c controller) handleSyncRequest(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.handleMessage(ctx, room.SyncRequest{})
}

func (c controller) handleHeartbeat(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.handleMessage(ctx, room.Heartbeat{})
}

func (c controller) handleMessage(ctx context.Context, msg room.Message) error {
	roomId := c.getRoomIdFromCtx(ctx)

	events, err := c.roomService.HandleUserMessage(ctx, &room.MessageParams{
		RoomId: roomId,
		UserId: c.getUserIdFromCtx(ctx),
	}, msg)
	if err != nil {
		return err
	}

	c.publish(ctx, roomId, c.getConnectionIdFromCtx(ctx), events)
	return nil
}
