package chat

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conversations is the chat persistence the session drives.
type Conversations interface {
	ResolveConversation(ctx context.Context, actor utils.Principal, receiverID uuid.UUID, receiverType string) (*models.Conversation, services.Peer, error)
	PostMessage(ctx context.Context, conv *models.Conversation, sender utils.Principal, to services.Peer, in services.PostMessageInput) (*models.Message, error)
	History(ctx context.Context, conversationID uuid.UUID, limit, offset int) (*services.HistoryPage, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}

// Notifier records a notification for the receiver of a chat message.
type Notifier interface {
	ChatMessage(ctx context.Context, msg *models.Message) (*services.ChatNotification, error)
}

type Authenticator interface {
	Verify(token string) (utils.Principal, error)
}

// Server upgrades chat requests and runs one session per socket.
type Server struct {
	hub      *Hub
	auth     Authenticator
	chats    Conversations
	notifier Notifier
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, auth Authenticator, chats Conversations, notifier Notifier, allowedOrigins []string) *Server {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Server{
		hub:      hub,
		auth:     auth,
		chats:    chats,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

type session struct {
	srv    *Server
	client *Client
	conv   *models.Conversation
	peer   services.Peer
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ServeHTTP expects ?token&receiver_id&receiver_type. Rejections are sent as
// a policy violation close frame after the upgrade.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	q := r.URL.Query()
	reject := func(reason string) {
		closeWith(conn, websocket.ClosePolicyViolation, reason)
		conn.Close()
	}

	principal, err := s.auth.Verify(q.Get("token"))
	if err != nil {
		reject("invalid token")
		return
	}
	if !principal.Is(utils.RoleUser, utils.RoleEmployee) {
		reject("role not supported")
		return
	}
	receiverID, err := uuid.Parse(q.Get("receiver_id"))
	if err != nil {
		reject("invalid receiver_id")
		return
	}

	ctx := r.Context()
	conv, peer, err := s.chats.ResolveConversation(ctx, principal, receiverID, q.Get("receiver_type"))
	if err != nil {
		log.Info().Err(err).Str("user_id", principal.ID.String()).Msg("chat room rejected")
		reject("conversation not available")
		return
	}

	client := newClient(conn, conv.ID, principal)
	sess := &session{srv: s, client: client, conv: conv, peer: peer}
	s.hub.Join(client)
	go client.writePump()

	log.Info().
		Str("room_id", conv.ID.String()).
		Str("user_id", principal.ID.String()).
		Str("role", principal.Role).
		Msg("chat joined")

	s.hub.Broadcast(conv.ID, joinEvent{Event: EventJoin, RoomID: conv.ID, UserID: principal.ID, Role: principal.Role, Time: now()})
	sess.sendHistory(ctx, 0, 0)
	sess.readLoop(ctx)
}

func (s *session) readLoop(ctx context.Context) {
	conn := s.client.conn
	defer func() {
		s.srv.hub.Leave(s.client)
		log.Info().Str("room_id", s.conv.ID.String()).Str("user_id", s.client.principal.ID.String()).Msg("chat left")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("chat socket closed")
			}
			return
		}

		if !s.client.inbound.Allow() {
			log.Warn().Str("room_id", s.conv.ID.String()).Str("user_id", s.client.principal.ID.String()).Msg("chat frame dropped, sender flooding")
			continue
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}

		switch in.Event {
		case "", EventMessage:
			if !s.handleMessage(ctx, in) {
				closeWith(conn, websocket.CloseInternalServerErr, "failed to save message")
				return
			}
		case EventMarkRead:
			s.handleMarkRead(ctx)
		case EventHistory:
			s.sendHistory(ctx, in.Limit, in.Offset)
		default:
			log.Debug().Str("event", in.Event).Msg("unknown chat event")
		}
	}
}

// handleMessage persists and broadcasts a message. It returns false when the
// message could not be stored.
func (s *session) handleMessage(ctx context.Context, in inbound) bool {
	var (
		msg *models.Message
		err error
	)
	s.srv.hub.Sequence(s.conv.ID, func() {
		msg, err = s.srv.chats.PostMessage(ctx, s.conv, s.client.principal, s.peer, services.PostMessageInput{
			Text:    in.Text,
			Kind:    in.Type,
			FileURL: in.FileURL,
		})
		if err != nil {
			return
		}
		s.srv.hub.Broadcast(s.conv.ID, messageEvent{Event: EventMessage, RoomID: s.conv.ID, Message: services.NewMessageView(*msg)})
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindValidation) {
			log.Debug().Err(err).Msg("chat message rejected")
			return true
		}
		log.Error().Err(err).Str("room_id", s.conv.ID.String()).Msg("failed to persist chat message")
		return false
	}

	if s.srv.notifier == nil {
		return true
	}
	note, err := s.srv.notifier.ChatMessage(ctx, msg)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("failed to record chat notification")
		return true
	}
	if note != nil {
		s.srv.hub.Broadcast(s.conv.ID, notificationEvent{Event: EventNotification, RoomID: s.conv.ID, ChatNotification: note})
	}
	return true
}

func (s *session) handleMarkRead(ctx context.Context) {
	n, err := s.srv.chats.MarkRead(ctx, s.conv.ID, s.client.principal.ID)
	if err != nil {
		log.Error().Err(err).Str("room_id", s.conv.ID.String()).Msg("failed to mark messages read")
		return
	}
	s.srv.hub.Broadcast(s.conv.ID, readEvent{Event: EventRead, RoomID: s.conv.ID, ByUserID: s.client.principal.ID, Updated: n, Time: now()})
}

func (s *session) sendHistory(ctx context.Context, limit, offset int) {
	page, err := s.srv.chats.History(ctx, s.conv.ID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("room_id", s.conv.ID.String()).Msg("failed to load chat history")
		return
	}
	s.srv.hub.Send(s.client, historyEvent{Event: EventHistory, RoomID: s.conv.ID, HistoryPage: page})
}
