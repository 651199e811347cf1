package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sharetube/watchparty/internal/auth"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const sessionCookieName = "session"

func (c controller) generateTimeBasedId() string {
	return ulid.Make().String()
}

// getToken looks for the token in the query, the bearer header and the session cookie, in that order.
func (c controller) getToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

func (c controller) authenticate(r *http.Request) (string, error) {
	return c.verifier.Verify(c.getToken(r))
}

type validationError struct {
	errs []validator.ValidationError
}

func (e validationError) Error() string {
	messages := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		messages = append(messages, err.Message)
	}

	return "validation failed: " + strings.Join(messages, "; ")
}

// errorMessage is the text sent to clients for err. Unexpected errors are not exposed.
func (c controller) errorMessage(err error) string {
	var vErr validationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.Is(err, auth.ErrUnauthorized):
		return "invalid token"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, room.ErrNotMember):
		return "not a member of the room"
	case errors.Is(err, room.ErrInvalidPlaybackPatch), errors.Is(err, room.ErrInvalidRoom):
		return err.Error()
	case errors.Is(err, room.ErrStoreUnavailable):
		return "service unavailable"
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		return "unknown message type"
	case errors.Is(err, wsrouter.ErrInvalidMessage):
		return "invalid message"
	case errors.Is(err, wsrouter.ErrInvalidPayload):
		return "invalid payload"
	default:
		return "internal error"
	}
}

func (c controller) statusFromError(err error) int {
	var vErr validationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, room.ErrInvalidPlaybackPatch),
		errors.Is(err, room.ErrInvalidRoom):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, room.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, room.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
