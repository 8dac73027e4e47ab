package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/repository"
	"beautyhub-backend/utils"
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	previewRunes        = 200
)

type ChatDeps interface {
	TxRunner
	DirectoryStore
	ChatStore
}

type ChatService struct {
	store ChatDeps
	now   func() time.Time
}

func NewChatService(store ChatDeps) *ChatService {
	return &ChatService{store: store, now: time.Now}
}

// Peer is the other side of a conversation from the actor's point of view.
type Peer struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

type HistoryPagination struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// MessageView adds the +05:00 rendering of CreatedAt.
type MessageView struct {
	models.Message
	CreatedAtLocal string `json:"created_at_local"`
}

type HistoryPage struct {
	Items      []MessageView     `json:"items"`
	Pagination HistoryPagination `json:"pagination"`
}

type ConversationView struct {
	models.Conversation
	UnreadCount int64 `json:"unread_count"`
}

func NewMessageView(m models.Message) MessageView {
	return MessageView{Message: m, CreatedAtLocal: utils.FormatLocal(m.CreatedAt)}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ResolveConversation finds or creates the conversation between actor and
// receiver. Users may open conversations with active employees and salons;
// employees may only join conversations a user already started.
func (s *ChatService) ResolveConversation(ctx context.Context, actor utils.Principal, receiverID uuid.UUID, receiverType string) (*models.Conversation, Peer, error) {
	receiverType = strings.ToLower(strings.TrimSpace(receiverType))

	switch {
	case actor.Role == utils.RoleUser && receiverType == models.RoleEmployee:
		emp, err := s.store.GetEmployee(ctx, receiverID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !emp.IsActive) {
			return nil, Peer{}, apperrors.NotFound("Employee not found").WithCode(apperrors.CodeEmployeeNotFound)
		}
		if err != nil {
			return nil, Peer{}, apperrors.Internal("Failed to load employee").Wrap(err)
		}
		conv, err := s.findOrCreate(ctx, actor.ID, &emp.ID, nil)
		return conv, Peer{ID: emp.ID, Role: models.RoleEmployee}, err

	case actor.Role == utils.RoleUser && receiverType == models.RoleSalon:
		salon, err := s.store.GetSalon(ctx, receiverID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !salon.IsActive) {
			return nil, Peer{}, apperrors.NotFound("Salon not found").WithCode(apperrors.CodeSalonNotFound)
		}
		if err != nil {
			return nil, Peer{}, apperrors.Internal("Failed to load salon").Wrap(err)
		}
		conv, err := s.findOrCreate(ctx, actor.ID, nil, &salon.ID)
		return conv, Peer{ID: salon.ID, Role: models.RoleSalon}, err

	case actor.Role == utils.RoleEmployee && receiverType == models.RoleUser:
		conv, err := s.store.FindConversation(ctx, receiverID, &actor.ID, nil)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Peer{}, apperrors.PermissionDenied("Employees cannot start conversations")
		}
		if err != nil {
			return nil, Peer{}, apperrors.Internal("Failed to load conversation").Wrap(err)
		}
		return conv, Peer{ID: receiverID, Role: models.RoleUser}, nil
	}
	return nil, Peer{}, apperrors.PermissionDenied("Chat is not available for this role")
}

func (s *ChatService) findOrCreate(ctx context.Context, userID uuid.UUID, employeeID, salonID *uuid.UUID) (*models.Conversation, error) {
	conv, err := s.store.FindConversation(ctx, userID, employeeID, salonID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Failed to load conversation").Wrap(err)
	}

	conv = &models.Conversation{UserID: userID, EmployeeID: employeeID, SalonID: salonID}
	if employeeID != nil {
		conv.Type = models.ConversationUserEmployee
	} else {
		conv.Type = models.ConversationUserSalon
	}
	err = s.store.CreateConversation(ctx, conv)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost a creation race; the winner's row is the conversation
		conv, err = s.store.FindConversation(ctx, userID, employeeID, salonID)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to create conversation").Wrap(err)
	}
	return conv, nil
}

type PostMessageInput struct {
	Text    string
	Kind    string
	FileURL *string
}

// PostMessage persists a message and advances the conversation's counter and
// last-message fields in one transaction.
func (s *ChatService) PostMessage(ctx context.Context, conv *models.Conversation, sender utils.Principal, to Peer, in PostMessageInput) (*models.Message, error) {
	kind := in.Kind
	switch kind {
	case "":
		kind = models.MessageText
	case models.MessageText, models.MessageFile, models.MessageImage:
	default:
		return nil, apperrors.Validation("unknown message type")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && in.FileURL == nil {
		return nil, apperrors.Validation("message is empty")
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		SenderRole:     sender.Role,
		ReceiverID:     to.ID,
		ReceiverRole:   to.Role,
		Text:           text,
		Kind:           kind,
		FileURL:        in.FileURL,
		CreatedAt:      s.now().UTC(),
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.store.NextMessageSeq(ctx, conv.ID, preview(text, kind), msg.CreatedAt)
		if err != nil {
			return err
		}
		msg.Seq = seq
		return s.store.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to save message").Wrap(err)
	}
	return msg, nil
}

func preview(text, kind string) string {
	if text == "" {
		return "[" + kind + "]"
	}
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes])
}

// History returns a page of messages, newest page first, in chronological
// order within the page.
func (s *ChatService) History(ctx context.Context, conversationID uuid.UUID, limit, offset int) (*HistoryPage, error) {
	limit, offset = clampPage(limit, offset)
	msgs, total, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to load history").Wrap(err)
	}
	items := make([]MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		items = append(items, NewMessageView(msgs[i]))
	}
	return &HistoryPage{
		Items:      items,
		Pagination: HistoryPagination{Limit: limit, Offset: offset, Total: total},
	}, nil
}

// MarkRead flips every unread message addressed to readerID. It is
// idempotent.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	n, err := s.store.MarkMessagesRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, apperrors.Internal("Failed to mark messages read").Wrap(err)
	}
	return n, nil
}

func (s *ChatService) ListConversations(ctx context.Context, actor utils.Principal) ([]ConversationView, error) {
	convs, err := s.store.ListConversations(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to load conversations").Wrap(err)
	}
	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		unread, err := s.store.CountUnread(ctx, c.ID, actor.ID)
		if err != nil {
			return nil, apperrors.Internal("Failed to count unread messages").Wrap(err)
		}
		out = append(out, ConversationView{Conversation: c, UnreadCount: unread})
	}
	return out, nil
}

// Messages is the REST form of History, limited to participants.
func (s *ChatService) Messages(ctx context.Context, actor utils.Principal, conversationID uuid.UUID, limit, offset int) (*HistoryPage, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Conversation not found")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load conversation").Wrap(err)
	}
	if !conv.Participant(actor.ID, actor.Role) {
		return nil, apperrors.PermissionDenied("Not a participant of this conversation")
	}
	return s.History(ctx, conversationID, limit, offset)
}
