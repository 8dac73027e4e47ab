package chat

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]utils.Principal

func (a fakeAuth) Verify(token string) (utils.Principal, error) {
	p, ok := a[token]
	if !ok {
		return utils.Principal{}, apperrors.AuthInvalid("Invalid token")
	}
	return p, nil
}

type fakeConversations struct {
	mu       sync.Mutex
	conv     *models.Conversation
	user     utils.Principal
	employee utils.Principal
	messages []models.Message
	postErr  error
	read     int
}

func (f *fakeConversations) ResolveConversation(ctx context.Context, actor utils.Principal, receiverID uuid.UUID, receiverType string) (*models.Conversation, services.Peer, error) {
	switch {
	case actor.ID == f.user.ID && receiverID == f.employee.ID:
		return f.conv, services.Peer{ID: f.employee.ID, Role: models.RoleEmployee}, nil
	case actor.ID == f.employee.ID && receiverID == f.user.ID:
		return f.conv, services.Peer{ID: f.user.ID, Role: models.RoleUser}, nil
	}
	return nil, services.Peer{}, apperrors.PermissionDenied("Employees cannot start conversations")
}

func (f *fakeConversations) PostMessage(ctx context.Context, conv *models.Conversation, sender utils.Principal, to services.Peer, in services.PostMessageInput) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, apperrors.Validation("message is empty")
	}
	m := models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Seq:            int64(len(f.messages) + 1),
		SenderID:       sender.ID,
		SenderRole:     sender.Role,
		ReceiverID:     to.ID,
		ReceiverRole:   to.Role,
		Text:           in.Text,
		Kind:           models.MessageText,
		CreatedAt:      time.Now().UTC(),
	}
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f *fakeConversations) History(ctx context.Context, conversationID uuid.UUID, limit, offset int) (*services.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]services.MessageView, 0, len(f.messages))
	for _, m := range f.messages {
		items = append(items, services.NewMessageView(m))
	}
	return &services.HistoryPage{
		Items:      items,
		Pagination: services.HistoryPagination{Limit: 50, Offset: offset, Total: int64(len(f.messages))},
	}, nil
}

func (f *fakeConversations) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read++
	return 1, nil
}

type fakeNotifier struct{}

func (fakeNotifier) ChatMessage(ctx context.Context, msg *models.Message) (*services.ChatNotification, error) {
	if msg.ReceiverRole != models.RoleUser {
		return nil, nil
	}
	return &services.ChatNotification{ReceiverID: msg.ReceiverID, Message: msg.Text, UnreadCount: 1}, nil
}

type chatFixture struct {
	srv   *httptest.Server
	hub   *Hub
	convs *fakeConversations
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	convs := &fakeConversations{
		conv:     &models.Conversation{ID: uuid.New()},
		user:     utils.Principal{ID: uuid.New(), Role: utils.RoleUser},
		employee: utils.Principal{ID: uuid.New(), Role: utils.RoleEmployee},
	}
	auth := fakeAuth{
		"user-token":     convs.user,
		"employee-token": convs.employee,
		"admin-token":    {ID: uuid.New(), Role: utils.RoleAdmin},
	}
	hub := NewHub()
	srv := httptest.NewServer(NewServer(hub, auth, convs, fakeNotifier{}, nil))
	t.Cleanup(srv.Close)
	return &chatFixture{srv: srv, hub: hub, convs: convs}
}

func (f *chatFixture) dial(t *testing.T, token string, receiverID uuid.UUID) *websocket.Conn {
	t.Helper()
	q := url.Values{}
	q.Set("token", token)
	q.Set("receiver_id", receiverID.String())
	q.Set("receiver_type", "employee")
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/?" + q.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSONEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		require.True(t, errors.As(err, &ce), "got %v", err)
		assert.Equal(t, code, ce.Code)
		return
	}
}

func TestSessionRejects(t *testing.T) {
	f := newChatFixture(t)

	expectClose(t, f.dial(t, "bad-token", f.convs.employee.ID), websocket.ClosePolicyViolation)
	expectClose(t, f.dial(t, "admin-token", f.convs.employee.ID), websocket.ClosePolicyViolation)
	// employees cannot open a conversation with someone who never wrote to them
	expectClose(t, f.dial(t, "employee-token", uuid.New()), websocket.ClosePolicyViolation)
	assert.Zero(t, f.hub.RoomSize(f.convs.conv.ID))
}

func TestSessionConversation(t *testing.T) {
	f := newChatFixture(t)
	roomID := f.convs.conv.ID.String()

	user := f.dial(t, "user-token", f.convs.employee.ID)
	join := readJSONEvent(t, user)
	assert.Equal(t, EventJoin, join["event"])
	assert.Equal(t, roomID, join["room_id"])
	assert.Equal(t, f.convs.user.ID.String(), join["user_id"])
	history := readJSONEvent(t, user)
	assert.Equal(t, EventHistory, history["event"])
	assert.Empty(t, history["items"])

	employee := f.dial(t, "employee-token", f.convs.user.ID)
	assert.Equal(t, EventJoin, readJSONEvent(t, employee)["event"])
	assert.Equal(t, EventHistory, readJSONEvent(t, employee)["event"])
	peerJoin := readJSONEvent(t, user)
	assert.Equal(t, EventJoin, peerJoin["event"])
	assert.Equal(t, "employee", peerJoin["role"])

	require.NoError(t, user.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, user.WriteJSON(map[string]any{"event": "message", "text": "   "}))
	require.NoError(t, user.WriteJSON(map[string]any{"event": "message", "text": "Salom"}))

	for _, conn := range []*websocket.Conn{user, employee} {
		ev := readJSONEvent(t, conn)
		require.Equal(t, EventMessage, ev["event"])
		msg := ev["message"].(map[string]any)
		assert.Equal(t, "Salom", msg["text"])
		assert.EqualValues(t, 1, msg["seq"])
		assert.Contains(t, msg["created_at_local"], "+05:00")
	}

	require.NoError(t, employee.WriteJSON(map[string]any{"text": "Assalomu alaykum"}))
	for _, conn := range []*websocket.Conn{user, employee} {
		ev := readJSONEvent(t, conn)
		require.Equal(t, EventMessage, ev["event"])
		assert.EqualValues(t, 2, ev["message"].(map[string]any)["seq"])
		note := readJSONEvent(t, conn)
		require.Equal(t, EventNotification, note["event"])
		assert.Equal(t, f.convs.user.ID.String(), note["receiver_id"])
		assert.EqualValues(t, 1, note["unread_count"])
	}

	require.NoError(t, user.WriteJSON(map[string]any{"event": "mark_read"}))
	for _, conn := range []*websocket.Conn{user, employee} {
		ev := readJSONEvent(t, conn)
		assert.Equal(t, EventRead, ev["event"])
		assert.Equal(t, f.convs.user.ID.String(), ev["by_user_id"])
	}

	require.NoError(t, employee.WriteJSON(map[string]any{"event": "history", "limit": 10}))
	page := readJSONEvent(t, employee)
	require.Equal(t, EventHistory, page["event"])
	assert.Len(t, page["items"], 2)
	assert.EqualValues(t, 2, page["pagination"].(map[string]any)["total"])
}

func TestSessionClosesOnPersistenceFailure(t *testing.T) {
	f := newChatFixture(t)
	f.convs.postErr = errors.New("connection reset")

	user := f.dial(t, "user-token", f.convs.employee.ID)
	readJSONEvent(t, user)
	readJSONEvent(t, user)
	require.NoError(t, user.WriteJSON(map[string]any{"text": "hello"}))
	expectClose(t, user, websocket.CloseInternalServerErr)

	require.Eventually(t, func() bool { return f.hub.RoomSize(f.convs.conv.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
