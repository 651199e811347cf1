package wsrouter

import (
	"context"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	CurrentTime *float64 `json:"currentTime"`
}

func TestDispatchDecodesPayload(t *testing.T) {
	r := New()

	var got seekInput
	Handle(r, "SEEK", func(ctx context.Context, _ *websocket.Conn, input seekInput) error {
		assert.Equal(t, "SEEK", GetMessageTypeFromCtx(ctx))
		got = input
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), nil, []byte(`{"type":"SEEK","payload":{"currentTime":12.5}}`)))
	require.NotNil(t, got.CurrentTime)
	assert.Equal(t, 12.5, *got.CurrentTime)
}

func TestDispatchMissingPayload(t *testing.T) {
	r := New()

	called := false
	Handle(r, "PING", func(_ context.Context, _ *websocket.Conn, _ struct{}) error {
		called = true
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), nil, []byte(`{"type":"PING"}`)))
	assert.True(t, called)
}

func TestDispatchRejectsBeforeHandler(t *testing.T) {
	r := New()
	Handle(r, "SEEK", func(context.Context, *websocket.Conn, seekInput) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := r.Dispatch(context.Background(), nil, []byte(`{"type":"DANCE"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	err = r.Dispatch(context.Background(), nil, []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	err = r.Dispatch(context.Background(), nil, []byte(`{"type":"SEEK","payload":{"currentTime":"soon"}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	err = r.Dispatch(context.Background(), nil, []byte(`{"type":"SEEK","payload":{"position":1}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()

	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *websocket.Conn, payload any) error {
				order = append(order, name)
				return next(ctx, conn, payload)
			}
		}
	}
	r.Use(mw("first"), mw("second"))

	errBoom := errors.New("boom")
	Handle(r, "PING", func(context.Context, *websocket.Conn, struct{}) error {
		order = append(order, "handler")
		return errBoom
	})

	err := r.Dispatch(context.Background(), nil, []byte(`{"type":"PING"}`))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
