package ws

import (
	"chatroom/repositories"
	"chatroom/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, repositories.IUserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewConnectionRegistry()
	router := runtime.NewRoomRouter()
	users := repositories.NewUserRepository(db)
	presence := runtime.NewPresenceCoordinator(log, registry, router, users)
	relay := runtime.NewEventRelay(log, router, repositories.NewMessageRepository(db, log, nil))

	server := httptest.NewServer(NewHandler(log, presence, relay, 16))
	t.Cleanup(server.Close)
	return server, users
}

func dial(ctx context.Context, t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?userId=" + userID
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "done") })
	return c
}

func send(ctx context.Context, t *testing.T, c *websocket.Conn, eventName string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, c, Inbound{Event: eventName, Data: data}))
}

func read(ctx context.Context, t *testing.T, c *websocket.Conn) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, wsjson.Read(ctx, c, &env))
	return env
}

// joinRoom waits for the room_joined acknowledgment, which also guarantees
// that the connection's registration on the server side has completed.
func joinRoom(ctx context.Context, t *testing.T, c *websocket.Conn, room string) {
	t.Helper()
	send(ctx, t, c, EventJoin, JoinPayload{RoomID: room})
	env := read(ctx, t, c)
	require.Equal(t, EventRoomJoined, env.Event)
	var ack RoomJoinedPayload
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	require.Equal(t, room, ack.RoomID)
}

func TestJoinIsAcknowledgedToTheRequesterOnly(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	requester := dial(ctx, t, server, "alice")
	bystander := dial(ctx, t, server, "bob")
	joinRoom(ctx, t, bystander, "warmup")

	joinRoom(ctx, t, requester, "lobby")

	// The bystander must stay silent.
	silentCtx, silentCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer silentCancel()
	var env envelope
	err := wsjson.Read(silentCtx, bystander, &env)
	req.Error(err)
}

func TestMessageIsDeliveredToTheReceiverInbox(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receiver := dial(ctx, t, server, "bob")
	joinRoom(ctx, t, receiver, "warmup")

	sender := dial(ctx, t, server, "alice")
	send(ctx, t, sender, EventSendMessage, SendMessagePayload{
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi bob",
	})

	env := read(ctx, t, receiver)
	req.Equal(EventReceiveMessage, env.Event)
	var payload ReceiveMessagePayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("alice", payload.Sender)
	req.Equal("hi bob", payload.Content)
}

func TestTypingIndicatorsReachRoomSubscribers(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watcher := dial(ctx, t, server, "bob")
	joinRoom(ctx, t, watcher, "lobby")
	typist := dial(ctx, t, server, "alice")
	joinRoom(ctx, t, typist, "lobby")

	send(ctx, t, typist, EventTyping, TypingPayload{To: "lobby"})
	send(ctx, t, typist, EventStopTyping, TypingPayload{To: "lobby"})

	env := read(ctx, t, watcher)
	req.Equal(EventTyping, env.Event)
	env = read(ctx, t, watcher)
	req.Equal(EventStopTyping, env.Event)
}

func TestMalformedPayloadDoesNotKillTheConnection(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dial(ctx, t, server, "alice")
	req.NoError(wsjson.Write(ctx, c, Inbound{
		Event: EventJoin,
		Data:  json.RawMessage(`"not-an-object"`),
	}))

	// The frame was dropped, the connection still serves joins.
	joinRoom(ctx, t, c, "lobby")
}

func TestLastSeenIsStampedWhenTheLastConnectionCloses(t *testing.T) {
	req := require.New(t)
	server, users := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := users.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)
	baseline := user.LastSeen

	c := dial(ctx, t, server, user.ID)
	joinRoom(ctx, t, c, "warmup")
	req.NoError(c.Close(websocket.StatusNormalClosure, "bye"))

	// The update is fired from a goroutine after the final disconnect.
	req.Eventually(func() bool {
		fetched, err := users.GetByID(user.ID)
		return err == nil && fetched.LastSeen.After(baseline)
	}, 3*time.Second, 50*time.Millisecond)
}
