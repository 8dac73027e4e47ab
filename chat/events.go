package chat

import (
	"beautyhub-backend/services"

	"github.com/google/uuid"
)

const (
	EventJoin         = "join"
	EventMessage      = "message"
	EventMarkRead     = "mark_read"
	EventRead         = "read"
	EventHistory      = "history"
	EventNotification = "notification"
)

// inbound is a client frame. An empty event is a message.
type inbound struct {
	Event   string  `json:"event"`
	Text    string  `json:"text"`
	Type    string  `json:"type"`
	FileURL *string `json:"file_url"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

type joinEvent struct {
	Event  string    `json:"event"`
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	Time   string    `json:"time"`
}

type messageEvent struct {
	Event   string               `json:"event"`
	RoomID  uuid.UUID            `json:"room_id"`
	Message services.MessageView `json:"message"`
}

type readEvent struct {
	Event    string    `json:"event"`
	RoomID   uuid.UUID `json:"room_id"`
	ByUserID uuid.UUID `json:"by_user_id"`
	Updated  int64     `json:"updated"`
	Time     string    `json:"time"`
}

type historyEvent struct {
	Event  string    `json:"event"`
	RoomID uuid.UUID `json:"room_id"`
	*services.HistoryPage
}

type notificationEvent struct {
	Event  string    `json:"event"`
	RoomID uuid.UUID `json:"room_id"`
	*services.ChatNotification
}
