package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testApp struct {
	server        *httptest.Server
	mr            *miniredis.Miniredis
	closeSessions func(context.Context) error
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	cfg := &AppConfig{
		Secret:                 testSecret,
		RoomTTL:                time.Hour,
		DefaultMaxParticipants: 10,
		PingPeriod:             30 * time.Second,
		PongWait:               time.Minute,
		ReadLimit:              4096,
		ShutdownTimeout:        5 * time.Second,
	}

	logger, err := newLogger(io.Discard, "DEBUG")
	require.NoError(t, err)

	handler, closeSessions := build(rc, cfg, logger)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testApp{
		server:        server,
		mr:            mr,
		closeSessions: closeSessions,
	}
}

func token(t *testing.T, userId string) string {
	t.Helper()

	tok, err := auth.NewVerifier(testSecret).Sign(userId, time.Hour)
	require.NoError(t, err)

	return tok
}

func (a *testApp) createRoom(t *testing.T, hostId, name string) string {
	t.Helper()

	return a.postRoom(t, hostId, map[string]any{"name": name})
}

func (a *testApp) postRoom(t *testing.T, hostId string, input map[string]any) string {
	t.Helper()

	body, err := json.Marshal(input)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/rooms", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, hostId))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			RoomId string `json:"roomId"`
			HostId string `json:"hostId"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Data.RoomId)
	require.Equal(t, hostId, out.Data.HostId)

	return out.Data.RoomId
}

func (a *testApp) dial(t *testing.T, roomId, tok string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/v1/rooms/" + roomId + "/ws?token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return conn
}

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readEvent(t *testing.T, conn *websocket.Conn) event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var e event
	require.NoError(t, conn.ReadJSON(&e))

	return e
}

func expectEvent(t *testing.T, conn *websocket.Conn, eventType string) event {
	t.Helper()

	e := readEvent(t, conn)
	require.Equal(t, eventType, e.Type, "payload: %s", e.Payload)

	return e
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}))
}

func TestWatchParty(t *testing.T) {
	a := newTestApp(t)
	roomId := a.createRoom(t, "alice", "movie night")

	alice := a.dial(t, roomId, token(t, "alice"))
	welcome := expectEvent(t, alice, "SYNC_FULL_STATE")
	var details struct {
		RoomId        string          `json:"roomId"`
		HostId        string          `json:"hostId"`
		Members       []string        `json:"members"`
		PlaybackState json.RawMessage `json:"playbackState"`
	}
	require.NoError(t, json.Unmarshal(welcome.Payload, &details))
	assert.Equal(t, roomId, details.RoomId)
	assert.Equal(t, []string{"alice"}, details.Members)
	assert.Equal(t, "null", string(details.PlaybackState))
	expectEvent(t, alice, "USER_JOINED")

	bob := a.dial(t, roomId, token(t, "bob"))
	expectEvent(t, bob, "SYNC_FULL_STATE")
	expectEvent(t, bob, "USER_JOINED")
	joined := expectEvent(t, alice, "USER_JOINED")
	assert.JSONEq(t, `{"userId":"bob","memberCount":2}`, string(joined.Payload))

	send(t, alice, "UPDATE_PLAYBACK", map[string]any{
		"mediaUrl":  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"isPlaying": true,
	})
	for _, conn := range []*websocket.Conn{alice, bob} {
		updated := expectEvent(t, conn, "PLAYBACK_UPDATED")
		var state struct {
			MediaType     string  `json:"mediaType"`
			IsPlaying     bool    `json:"isPlaying"`
			PlaybackSpeed float64 `json:"playbackSpeed"`
			LastUpdatedBy string  `json:"lastUpdatedBy"`
		}
		require.NoError(t, json.Unmarshal(updated.Payload, &state))
		assert.Equal(t, "youtube", state.MediaType)
		assert.True(t, state.IsPlaying)
		assert.Equal(t, 1.0, state.PlaybackSpeed)
		assert.Equal(t, "alice", state.LastUpdatedBy)
	}

	// the connection survives a bad message
	send(t, bob, "DANCE", nil)
	expectEvent(t, bob, "ERROR")
	send(t, bob, "UPDATE_PLAYBACK", map[string]any{"playbackSpeed": 5})
	expectEvent(t, bob, "ERROR")
	send(t, bob, "SYNC_REQUEST", nil)
	expectEvent(t, bob, "SYNC_FULL_STATE")

	require.NoError(t, alice.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))
	left := expectEvent(t, bob, "USER_LEFT")
	assert.JSONEq(t, `{"userId":"alice","memberCount":1}`, string(left.Payload))
	hostChanged := expectEvent(t, bob, "HOST_CHANGED")
	assert.JSONEq(t, `{"newHostId":"bob"}`, string(hostChanged.Payload))

	resp, err := http.Get(a.server.URL + "/api/v1/rooms/" + roomId)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Data struct {
			HostId  string   `json:"hostId"`
			Members []string `json:"members"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "bob", out.Data.HostId)
	assert.Equal(t, []string{"bob"}, out.Data.Members)
}

func TestRestPlaybackUpdateReachesSockets(t *testing.T) {
	a := newTestApp(t)
	roomId := a.createRoom(t, "alice", "movie night")

	alice := a.dial(t, roomId, token(t, "alice"))
	expectEvent(t, alice, "SYNC_FULL_STATE")
	expectEvent(t, alice, "USER_JOINED")

	req, err := http.NewRequest(
		http.MethodPatch,
		a.server.URL+"/api/v1/rooms/"+roomId+"/playback",
		strings.NewReader(`{"currentTime":42.5}`),
	)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := expectEvent(t, alice, "PLAYBACK_UPDATED")
	var state struct {
		CurrentTime float64 `json:"currentTime"`
	}
	require.NoError(t, json.Unmarshal(updated.Payload, &state))
	assert.Equal(t, 42.5, state.CurrentTime)

	// outsiders may not steer playback
	req, err = http.NewRequest(
		http.MethodPatch,
		a.server.URL+"/api/v1/rooms/"+roomId+"/playback",
		strings.NewReader(`{"currentTime":1}`),
	)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, "mallory"))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func (a *testApp) members(t *testing.T, roomId string) []string {
	t.Helper()

	resp, err := http.Get(a.server.URL + "/api/v1/rooms/" + roomId)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Members []string `json:"members"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out.Data.Members
}

func TestRejectedConnections(t *testing.T) {
	a := newTestApp(t)
	roomId := a.createRoom(t, "alice", "movie night")

	fullRoomId := a.postRoom(t, "alice", map[string]any{"name": "small room", "maxParticipants": 2})
	for _, userId := range []string{"alice", "bob"} {
		conn := a.dial(t, fullRoomId, token(t, userId))
		expectEvent(t, conn, "SYNC_FULL_STATE")
	}

	tests := []struct {
		name   string
		roomId string
		token  string
	}{
		{name: "invalid token", roomId: roomId, token: "garbage"},
		{name: "unknown room", roomId: "missing", token: token(t, "alice")},
		{name: "room full", roomId: fullRoomId, token: token(t, "carol")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := a.dial(t, tt.roomId, tt.token)
			expectEvent(t, conn, "ERROR")

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, _, err := conn.ReadMessage()
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
		})
	}

	assert.Equal(t, []string{"alice", "bob"}, a.members(t, fullRoomId))
}

func TestStoreFailureDuringDisconnect(t *testing.T) {
	a := newTestApp(t)
	roomId := a.createRoom(t, "alice", "movie night")

	alice := a.dial(t, roomId, token(t, "alice"))
	expectEvent(t, alice, "SYNC_FULL_STATE")
	expectEvent(t, alice, "USER_JOINED")

	a.mr.SetError("ERR store down")
	require.NoError(t, alice.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))

	// waits for the session, including its disconnect handling, to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.closeSessions(ctx))
	a.mr.SetError("")

	resp, err := http.Get(a.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "watchparty_ws_active_connections 0")

	// the leave could not be stored, so the membership stays until the room expires
	assert.Equal(t, []string{"alice"}, a.members(t, roomId))
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	a := newTestApp(t)

	resp, err := http.Post(a.server.URL+"/api/v1/rooms", "application/json", strings.NewReader(`{"name":"movie night"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShutdownClosesSessions(t *testing.T) {
	a := newTestApp(t)
	roomId := a.createRoom(t, "alice", "movie night")

	alice := a.dial(t, roomId, token(t, "alice"))
	expectEvent(t, alice, "SYNC_FULL_STATE")
	expectEvent(t, alice, "USER_JOINED")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.closeSessions(ctx))

	alice.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := alice.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// the last member left, so the room is gone
	assert.False(t, a.mr.Exists("room:"+roomId+":metadata"))
	resp, err := http.Get(a.server.URL + "/api/v1/rooms/" + roomId)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)
	a.createRoom(t, "alice", "movie night")

	resp, err := http.Get(a.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "watchparty_rooms_created_total 1")
	assert.Contains(t, string(body), "watchparty_active_rooms 1")
	assert.Contains(t, string(body), `watchparty_http_requests_total{method="POST"`)
}

func TestAppConfigValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Secret:                 "secret",
			Host:                   "0.0.0.0",
			Port:                   8080,
			LogLevel:               "INFO",
			RedisHost:              "localhost",
			RedisPort:              6379,
			RoomTTL:                24 * time.Hour,
			DefaultMaxParticipants: 10,
			PingPeriod:             30 * time.Second,
			PongWait:               time.Minute,
			ReadLimit:              4096,
			ShutdownTimeout:        10 * time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{name: "missing secret", mutate: func(c *AppConfig) { c.Secret = "" }},
		{name: "bad port", mutate: func(c *AppConfig) { c.Port = 70000 }},
		{name: "bad log level", mutate: func(c *AppConfig) { c.LogLevel = "LOUD" }},
		{name: "pong before ping", mutate: func(c *AppConfig) { c.PongWait = c.PingPeriod }},
		{name: "tiny room", mutate: func(c *AppConfig) { c.DefaultMaxParticipants = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)
}
