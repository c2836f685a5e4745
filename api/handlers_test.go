package api

import (
	"bytes"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	relay := runtime.NewEventRelay(log, runtime.NewRoomRouter(), messages)

	mux := http.NewServeMux()
	NewServer(log,
		services.NewAuthService(users, time.Hour),
		services.NewFriendService(users, runtime.NewConnectionRegistry(), 20),
		services.NewMessageService(relay, messages),
	).Routes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	request, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&decoded))
	return response.StatusCode, decoded
}

func signup(t *testing.T, server *httptest.Server, username string) (id, token string) {
	t.Helper()
	status, body := call(t, http.MethodPost, server.URL+"/api/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "ComplexPass123!",
	})
	require.Equal(t, http.StatusCreated, status)
	return body["_id"].(string), body["token"].(string)
}

func TestAPI_SignupLoginAndProfile(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	aliceID, aliceToken := signup(t, server, "alice42")
	req.NotEmpty(aliceID)

	// Wrong password is rejected without leaking which part failed.
	status, _ := call(t, http.MethodPost, server.URL+"/api/login", "", map[string]string{
		"username": "alice42",
		"password": "WrongPass123!",
	})
	req.Equal(http.StatusBadRequest, status)

	status, body := call(t, http.MethodPost, server.URL+"/api/login", "", map[string]string{
		"username": "alice42",
		"password": "ComplexPass123!",
	})
	req.Equal(http.StatusOK, status)
	req.Equal(aliceID, body["_id"])

	// The profile endpoint requires a token...
	status, _ = call(t, http.MethodGet, server.URL+"/api/me", "", nil)
	req.Equal(http.StatusUnauthorized, status)

	// ...and resolves the caller from its claims.
	status, body = call(t, http.MethodGet, server.URL+"/api/me", aliceToken, nil)
	req.Equal(http.StatusOK, status)
	req.Equal("alice42", body["username"])
	req.Equal(false, body["isOnline"])
}

func TestAPI_FriendGraph(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	_, aliceToken := signup(t, server, "alice42")
	bobID, _ := signup(t, server, "bob42")

	status, _ := call(t, http.MethodPost, server.URL+"/api/friend/add", aliceToken,
		map[string]string{"usernameToAdd": "bob42"})
	req.Equal(http.StatusOK, status)

	// Adding twice is refused.
	status, _ = call(t, http.MethodPost, server.URL+"/api/friend/add", aliceToken,
		map[string]string{"usernameToAdd": "bob42"})
	req.Equal(http.StatusBadRequest, status)

	status, body := call(t, http.MethodGet, server.URL+"/api/friend/list", aliceToken, nil)
	req.Equal(http.StatusOK, status)
	friends := body["friends"].([]any)
	req.Len(friends, 1)

	status, body = call(t, http.MethodGet, server.URL+"/api/friend/search?query=bo", aliceToken, nil)
	req.Equal(http.StatusOK, status)
	results := body["results"].([]any)
	req.Len(results, 1)

	status, body = call(t, http.MethodGet, server.URL+"/api/friend/"+bobID, aliceToken, nil)
	req.Equal(http.StatusOK, status)
	friend := body["friend"].(map[string]any)
	req.Equal("bob42", friend["username"])

	status, _ = call(t, http.MethodPost, server.URL+"/api/friend/remove", aliceToken,
		map[string]string{"usernameToRemove": "bob42"})
	req.Equal(http.StatusOK, status)

	status, body = call(t, http.MethodGet, server.URL+"/api/friend/list", aliceToken, nil)
	req.Equal(http.StatusOK, status)
	req.Empty(body["friends"])
}

func TestAPI_MessageHistoryAndDeletion(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	_, aliceToken := signup(t, server, "alice42")
	bobID, bobToken := signup(t, server, "bob42")

	status, body := call(t, http.MethodPost, server.URL+"/api/message/send", aliceToken,
		map[string]string{"receiverId": bobID, "content": "hi bob"})
	req.Equal(http.StatusCreated, status)
	messageID := body["data"].(map[string]any)["_id"].(string)

	status, body = call(t, http.MethodGet, server.URL+"/api/message/history/"+bobID, aliceToken, nil)
	req.Equal(http.StatusOK, status)
	messages := body["messages"].([]any)
	req.Len(messages, 1)
	req.Equal("hi bob", messages[0].(map[string]any)["content"])

	// Only the sender may delete.
	status, _ = call(t, http.MethodDelete, server.URL+"/api/message/"+messageID, bobToken, nil)
	req.Equal(http.StatusForbidden, status)
	status, _ = call(t, http.MethodDelete, server.URL+"/api/message/"+messageID, aliceToken, nil)
	req.Equal(http.StatusOK, status)

	status, body = call(t, http.MethodGet, server.URL+"/api/message/history/"+bobID, aliceToken, nil)
	req.Equal(http.StatusOK, status)
	req.Empty(body["messages"])
}
