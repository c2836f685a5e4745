// Package api exposes the HTTP JSON surface around the realtime core:
// account creation and login, the friend graph, and message history.
package api

import (
	"chatroom/auth"
	"chatroom/domain"
	"chatroom/errors"
	"chatroom/services"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

type ctxKey int

const userIDKey ctxKey = iota

type Server struct {
	log      *slog.Logger
	auth     services.IAuthService
	friends  services.IFriendService
	messages services.IMessageService
}

func NewServer(log *slog.Logger, authService services.IAuthService,
	friends services.IFriendService, messages services.IMessageService) *Server {
	return &Server{log: log, auth: authService, friends: friends, messages: messages}
}

// Routes registers every API handler on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/me", s.authenticated(s.handleMe))
	mux.HandleFunc("POST /api/friend/add", s.authenticated(s.handleFriendAdd))
	mux.HandleFunc("POST /api/friend/remove", s.authenticated(s.handleFriendRemove))
	mux.HandleFunc("GET /api/friend/list", s.authenticated(s.handleFriendList))
	mux.HandleFunc("GET /api/friend/search", s.authenticated(s.handleFriendSearch))
	mux.HandleFunc("GET /api/friend/{id}", s.authenticated(s.handleFriendGet))
	mux.HandleFunc("POST /api/message/send", s.authenticated(s.handleMessageSend))
	mux.HandleFunc("GET /api/message/history/{peerId}", s.authenticated(s.handleMessageHistory))
	mux.HandleFunc("DELETE /api/message/{id}", s.authenticated(s.handleMessageDelete))
}

// authenticated validates the Bearer token and injects the caller's user
// id into the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{
		ID:       session.User.ID,
		Username: session.User.Username,
		Email:    session.User.Email,
		Token:    session.Token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{
		ID:       session.User.ID,
		Username: session.User.Username,
		Email:    session.User.Email,
		Token:    session.Token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.friends.Get(callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toFriendView(profile))
}

type friendMutationRequest struct {
	UsernameToAdd    string `json:"usernameToAdd"`
	UsernameToRemove string `json:"usernameToRemove"`
}

func (s *Server) handleFriendAdd(w http.ResponseWriter, r *http.Request) {
	var req friendMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UsernameToAdd == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	friend, err := s.friends.Add(callerID(r), req.UsernameToAdd)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "You are now friends with " + friend.Username,
	})
}

func (s *Server) handleFriendRemove(w http.ResponseWriter, r *http.Request) {
	var req friendMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UsernameToRemove == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := s.friends.Remove(callerID(r), req.UsernameToRemove); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "You removed " + req.UsernameToRemove + " from your friends",
	})
}

type friendView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleFriendList(w http.ResponseWriter, r *http.Request) {
	friends, err := s.friends.List(callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"friends": toFriendViews(friends)})
}

func (s *Server) handleFriendSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := s.friends.Search(callerID(r), query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": toFriendViews(results)})
}

type friendProfileView struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	LastSeen  time.Time `json:"lastSeen"`
	IsOnline  bool      `json:"isOnline"`
}

func (s *Server) handleFriendGet(w http.ResponseWriter, r *http.Request) {
	profile, err := s.friends.Get(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"friend": toFriendView(profile)})
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type messageView struct {
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.ReceiverID == "" || req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "receiver ID and content are required")
		return
	}

	message, err := s.messages.Send(r.Context(), callerID(r), req.ReceiverID, req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Message sent",
		"data": messageView{
			ID:        message.ID.String(),
			Sender:    message.SenderID,
			Receiver:  message.ReceiverID,
			Content:   message.Content,
			CreatedAt: message.CreatedAt,
		},
	})
}

func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.messages.History(callerID(r), r.PathValue("peerId"), cursor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	views := lo.Map(messages, func(m domain.Message, _ int) messageView {
		return messageView{
			ID:        m.ID.String(),
			Sender:    m.SenderID,
			Receiver:  m.ReceiverID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": views, "cursor": next})
}

func (s *Server) handleMessageDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.Delete(r.PathValue("id"), callerID(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Message deleted"})
}

func toFriendView(p services.FriendProfile) friendProfileView {
	return friendProfileView{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		LastSeen:  p.LastSeen,
		IsOnline:  p.IsOnline,
	}
}

func toFriendViews(friends []services.Friend) []friendView {
	return lo.Map(friends, func(f services.Friend, _ int) friendView {
		return friendView{ID: f.ID, Username: f.Username, Email: f.Email}
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps sentinel errors onto HTTP statuses. Anything
// unmapped is a 500 with a generic body.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case isOneOf(err, errors.ErrUserAlreadyExists, errors.ErrInvalidCredentials,
		errors.ErrInvalidPassword, errors.ErrSelfFriend, errors.ErrAlreadyFriends):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case isOneOf(err, errors.ErrUserNotFound, errors.ErrMessageNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case isOneOf(err, errors.ErrNotMessageSender):
		s.writeError(w, http.StatusForbidden, err.Error())
	default:
		s.log.Error("Unhandled service error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "server error")
	}
}

func isOneOf(err error, targets ...error) bool {
	return lo.SomeBy(targets, func(target error) bool {
		return stderrors.Is(err, target)
	})
}
