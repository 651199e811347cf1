package controller

import (
	"context"
	"encoding/json"

	"github.com/sharetube/watchparty/internal/service/room"
)

// publish delivers events in order. Unicast events go to connectionId only.
func (c controller) publish(ctx context.Context, roomId, connectionId string, events []room.Event) {
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to marshal event", "type", event.Type, "error", err)
			continue
		}

		switch event.Scope {
		case room.ScopeUnicast:
			if connectionId == "" {
				continue
			}

			if err := c.connRepo.Send(connectionId, data); err != nil {
				c.logger.WarnContext(ctx, "failed to send event", "type", event.Type, "error", err)
				continue
			}
		case room.ScopeBroadcast:
			delivered := c.connRepo.Publish(roomId, data)
			c.logger.DebugContext(ctx, "event broadcast", "type", event.Type, "delivered", delivered)
		}

		c.metrics.RecordEvent(event.Type, event.Scope.String())
	}
}
