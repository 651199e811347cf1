package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/rest"
)

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := c.statusFromError(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "error", err)
	}

	if vErr, ok := err.(validationError); ok {
		rest.WriteJSON(w, status, rest.Envelope{"errors": vErr.errs})
		return
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": c.errorMessage(err)})
}

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListActiveRooms(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

type createRoomInput struct {
	Name            string `json:"name" validate:"required,min=3,max=100"`
	IsPublic        *bool  `json:"isPublic"`
	MaxParticipants *int   `json:"maxParticipants" validate:"omitnil,gte=2,lte=50"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	var input createRoomInput
	if err := rest.ReadJSON(r, &input); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(w, r, validationError{errs: validationErrors})
		return
	}

	createdRoom, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		HostId:          userId,
		Name:            input.Name,
		IsPublic:        input.IsPublic,
		MaxParticipants: input.MaxParticipants,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.metrics.RoomCreated()
	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createdRoom})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	details, err := c.roomService.GetRoomDetails(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": details})
}

func (c controller) getPlayback(w http.ResponseWriter, r *http.Request) {
	state, err := c.roomService.GetPlaybackState(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}

func (c controller) updatePlayback(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	userId, err := c.authenticate(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	var input UpdatePlaybackInput
	if err := rest.ReadJSON(r, &input); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(w, r, validationError{errs: validationErrors})
		return
	}

	state, err := c.roomService.UpdatePlayback(r.Context(), &room.UpdatePlaybackParams{
		RoomId: roomId,
		UserId: userId,
		Patch:  input.patch(),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.publish(r.Context(), roomId, "", []room.Event{{
		Type:    room.EventPlaybackUpdated,
		Payload: state,
		Scope:   room.ScopeBroadcast,
	}})

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}
