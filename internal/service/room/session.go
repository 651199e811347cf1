package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

type ConnectionParams struct {
	RoomId       string
	UserId       string
	ConnectionId string
}

func (p *ConnectionParams) repoParams() *room.ConnectionParams {
	return &room.ConnectionParams{
		RoomId:       p.RoomId,
		UserId:       p.UserId,
		ConnectionId: p.ConnectionId,
	}
}

// HandleUserConnection registers a new connection of the user. The returned
// events start with the unicast welcome; USER_JOINED follows only when this
// is the user's first connection in the room.
func (s service) HandleUserConnection(ctx context.Context, params *ConnectionParams) ([]Event, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	metadata, err := s.getMetadata(ctx, params.RoomId)
	if err != nil {
		return nil, err
	}

	alreadyConnected, err := s.roomRepo.HasActiveConnections(ctx, params.RoomId, params.UserId)
	if err != nil {
		return nil, fmt.Errorf("failed to check active connections: %w", err)
	}

	if !alreadyConnected {
		isMember, err := s.roomRepo.IsMember(ctx, params.RoomId, params.UserId)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}

		if !isMember {
			memberCount, err := s.roomRepo.GetMemberCount(ctx, params.RoomId)
			if err != nil {
				return nil, fmt.Errorf("failed to get member count: %w", err)
			}

			if memberCount >= metadata.MaxParticipants {
				return nil, ErrRoomFull
			}
		}
	}

	if err := s.roomRepo.AddConnection(ctx, params.repoParams()); err != nil {
		return nil, fmt.Errorf("failed to add connection: %w", err)
	}

	if !alreadyConnected {
		if err := s.roomRepo.AddMember(ctx, params.RoomId, params.UserId); err != nil {
			s.rollbackConnection(ctx, params, false)
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}

	s.refresh(ctx, params.RoomId)

	details, err := s.getRoomDetails(ctx, params.RoomId)
	if err != nil {
		s.rollbackConnection(ctx, params, !alreadyConnected)
		return nil, err
	}

	events := []Event{unicast(EventSyncFullState, details)}
	if !alreadyConnected {
		s.logger.InfoContext(ctx, "user joined", "room_id", params.RoomId, "user_id", params.UserId)
		events = append(events, broadcast(EventUserJoined, MemberCountPayload{
			UserId:      params.UserId,
			MemberCount: len(details.Members),
		}))
	}

	return events, nil
}

// rollbackConnection undoes the writes of a failed HandleUserConnection.
// Membership is only removed when this connection created it.
func (s service) rollbackConnection(ctx context.Context, params *ConnectionParams, removeMember bool) {
	if _, err := s.roomRepo.RemoveConnection(ctx, params.repoParams()); err != nil {
		s.logger.WarnContext(ctx, "failed to roll back connection", "error", err)
	}

	if !removeMember {
		return
	}

	if err := s.roomRepo.RemoveMember(ctx, params.RoomId, params.UserId); err != nil {
		s.logger.WarnContext(ctx, "failed to roll back membership", "error", err)
	}
}

// HandleUserDisconnection removes the connection. When it was the user's last
// one the user leaves the room, the host moves to the earliest joined
// remaining member if needed, and an emptied room is deleted.
func (s service) HandleUserDisconnection(ctx context.Context, params *ConnectionParams) ([]Event, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	remaining, err := s.roomRepo.RemoveConnection(ctx, params.repoParams())
	if err != nil {
		return nil, fmt.Errorf("failed to remove connection: %w", err)
	}

	if remaining > 0 {
		return nil, nil
	}

	isMember, err := s.roomRepo.IsMember(ctx, params.RoomId, params.UserId)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		return nil, nil
	}

	if err := s.roomRepo.RemoveMember(ctx, params.RoomId, params.UserId); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.InfoContext(ctx, "user left", "room_id", params.RoomId, "user_id", params.UserId)

	members, err := s.roomRepo.GetMembers(ctx, params.RoomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	if len(members) == 0 {
		if err := s.roomRepo.DeleteRoom(ctx, params.RoomId); err != nil {
			return nil, fmt.Errorf("failed to delete room: %w", err)
		}

		s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)
		return nil, nil
	}

	events := []Event{broadcast(EventUserLeft, MemberCountPayload{
		UserId:      params.UserId,
		MemberCount: len(members),
	})}

	metadata, err := s.getMetadata(ctx, params.RoomId)
	if err != nil {
		return events, err
	}

	if metadata.HostId != params.UserId {
		return events, nil
	}

	newHostId := members[0]
	if err := s.roomRepo.UpdateHost(ctx, params.RoomId, newHostId); err != nil {
		if errors.Is(err, room.ErrMetadataNotFound) {
			return events, ErrRoomNotFound
		}

		return events, fmt.Errorf("failed to update host: %w", err)
	}

	s.logger.InfoContext(ctx, "host changed", "room_id", params.RoomId, "new_host_id", newHostId)
	events = append(events, broadcast(EventHostChanged, HostChangedPayload{NewHostId: newHostId}))

	return events, nil
}

type MessageParams struct {
	RoomId string
	UserId string
}

func (s service) HandleUserMessage(ctx context.Context, params *MessageParams, msg Message) ([]Event, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	switch msg := msg.(type) {
	case UpdatePlayback:
		state, err := s.updatePlayback(ctx, params.RoomId, params.UserId, &msg.Patch)
		if err != nil {
			return nil, err
		}

		return []Event{broadcast(EventPlaybackUpdated, state)}, nil
	case SyncRequest:
		details, err := s.getRoomDetails(ctx, params.RoomId)
		if err != nil {
			return nil, err
		}

		return []Event{unicast(EventSyncFullState, details)}, nil
	case Heartbeat:
		s.refresh(ctx, params.RoomId)
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported message %T", msg)
	}
}

func (s service) refresh(ctx context.Context, roomId string) {
	if err := s.roomRepo.ExpireRoom(ctx, roomId); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh room expiration", "room_id", roomId, "error", err)
	}
}
