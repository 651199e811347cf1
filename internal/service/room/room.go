package room

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type CreateRoomParams struct {
	HostId          string
	Name            string
	IsPublic        *bool
	MaxParticipants *int
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (Room, error) {
	name := strings.TrimSpace(params.Name)
	isPublic := true
	if params.IsPublic != nil {
		isPublic = *params.IsPublic
	}

	maxParticipants := s.defaultMaxParticipants
	if params.MaxParticipants != nil {
		maxParticipants = *params.MaxParticipants
	}

	if err := (validation.Errors{
		"hostId":          validation.Validate(params.HostId, HostIdRule...),
		"name":            validation.Validate(name, RoomNameRule...),
		"maxParticipants": validation.Validate(maxParticipants, MaxParticipantsRule...),
	}).Filter(); err != nil {
		return Room{}, fmt.Errorf("%w: %w", ErrInvalidRoom, err)
	}

	roomId := uuid.NewString()
	metadata := room.Metadata{
		Name:            name,
		HostId:          params.HostId,
		IsPublic:        isPublic,
		MaxParticipants: maxParticipants,
		CreatedAt:       s.timestamp(),
	}
	if err := s.roomRepo.CreateMetadata(ctx, roomId, metadata); err != nil {
		return Room{}, fmt.Errorf("failed to create metadata: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "host_id", params.HostId)
	return newRoom(roomId, metadata), nil
}

// ListActiveRooms returns every room that still has metadata. Ids whose
// metadata expired are dropped from the active set.
func (s service) ListActiveRooms(ctx context.Context) ([]Room, error) {
	roomIds, err := s.roomRepo.GetActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rooms: %w", err)
	}

	rooms := make([]Room, 0, len(roomIds))
	for _, roomId := range roomIds {
		metadata, err := s.roomRepo.GetMetadata(ctx, roomId)
		if err != nil {
			if errors.Is(err, room.ErrMetadataNotFound) {
				if err := s.roomRepo.RemoveActiveRoom(ctx, roomId); err != nil {
					s.logger.WarnContext(ctx, "failed to prune stale room", "room_id", roomId, "error", err)
				}

				continue
			}

			return nil, fmt.Errorf("failed to get metadata: %w", err)
		}

		rooms = append(rooms, newRoom(roomId, metadata))
	}

	slices.SortFunc(rooms, func(a, b Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.RoomId, b.RoomId)
	})

	return rooms, nil
}

func (s service) GetRoomDetails(ctx context.Context, roomId string) (RoomDetails, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	return s.getRoomDetails(ctx, roomId)
}

// GetPlaybackState returns nil when nothing has been played in the room yet.
func (s service) GetPlaybackState(ctx context.Context, roomId string) (*PlaybackState, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	if _, err := s.getMetadata(ctx, roomId); err != nil {
		return nil, err
	}

	return s.getPlaybackState(ctx, roomId)
}

func (s service) getMetadata(ctx context.Context, roomId string) (room.Metadata, error) {
	metadata, err := s.roomRepo.GetMetadata(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrMetadataNotFound) {
			return room.Metadata{}, ErrRoomNotFound
		}

		return room.Metadata{}, fmt.Errorf("failed to get metadata: %w", err)
	}

	return metadata, nil
}

func (s service) getPlaybackState(ctx context.Context, roomId string) (*PlaybackState, error) {
	state, err := s.roomRepo.GetPlaybackState(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrPlaybackNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get playback state: %w", err)
	}

	playbackState := newPlaybackState(state)
	return &playbackState, nil
}

func (s service) getRoomDetails(ctx context.Context, roomId string) (RoomDetails, error) {
	metadata, err := s.getMetadata(ctx, roomId)
	if err != nil {
		return RoomDetails{}, err
	}

	members, err := s.roomRepo.GetMembers(ctx, roomId)
	if err != nil {
		return RoomDetails{}, fmt.Errorf("failed to get members: %w", err)
	}

	if members == nil {
		members = []string{}
	}

	playbackState, err := s.getPlaybackState(ctx, roomId)
	if err != nil {
		return RoomDetails{}, err
	}

	return RoomDetails{
		Room:          newRoom(roomId, metadata),
		Members:       members,
		PlaybackState: playbackState,
	}, nil
}
