package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип события шлюза
type MessageType string

const (
	// Служебные
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// Клиент -> шлюз
	TypeJoinRoom    MessageType = "joinRoom"
	TypeLeaveRoom   MessageType = "leaveRoom"
	TypeSendMessage MessageType = "sendMessage"
	TypeTyping      MessageType = "typing"
	TypeStopTyping  MessageType = "stopTyping"
	TypeToggleMedia MessageType = "toggleMedia"

	// Шлюз -> клиент
	TypeUserJoined        MessageType = "userJoined"
	TypeUserLeft          MessageType = "userLeft"
	TypeNewMessage        MessageType = "newMessage"
	TypeUserTyping        MessageType = "userTyping"
	TypeUserStoppedTyping MessageType = "userStoppedTyping"
	TypeMediaToggled      MessageType = "mediaToggled"
	TypeRoomClosed        MessageType = "roomClosed"
)

// Message — конверт события; roomId дублируется на уровне конверта,
// чтобы клиент в нескольких комнатах мог маршрутизировать входящие
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    *uuid.UUID      `json:"roomId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type JoinRoomPayload struct {
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`
}

type UserJoinedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

type UserLeftPayload struct {
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

type AttachmentPayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

type SendMessagePayload struct {
	RoomID      uuid.UUID           `json:"roomId"`
	Message     string              `json:"message"`
	Sender      string              `json:"sender"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

type NewMessagePayload struct {
	MessageID   uuid.UUID           `json:"messageId"`
	Message     string              `json:"message"`
	Sender      string              `json:"sender"`
	SenderID    uuid.UUID           `json:"senderId"`
	Timestamp   time.Time           `json:"timestamp"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

type TypingPayload struct {
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName,omitempty"`
}

type UserTypingPayload struct {
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName,omitempty"`
}

type ToggleMediaPayload struct {
	RoomID    uuid.UUID `json:"roomId"`
	UserID    uuid.UUID `json:"userId"`
	MediaType string    `json:"mediaType"`
	IsEnabled bool      `json:"isEnabled"`
}

type MediaToggledPayload struct {
	UserID    uuid.UUID `json:"userId"`
	MediaType string    `json:"mediaType"`
	IsEnabled bool      `json:"isEnabled"`
}

type RoomClosedPayload struct {
	RoomID    uuid.UUID `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope собирает конверт события с сериализованным payload
func Envelope(msgType MessageType, roomID *uuid.UUID, payload interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}

	return json.Marshal(msg)
}
