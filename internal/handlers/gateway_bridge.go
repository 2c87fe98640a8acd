package handlers

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/services"
	"github.com/vongdev/E-learning--sub001/internal/websocket"
)

// GatewayBridge маршрутизирует события websocket клиентов: группы и
// трансляции идут в hub, запись сообщений и присутствие — в RoomService.
type GatewayBridge struct {
	db     *database.Database
	svc    *services.RoomService
	hub    *websocket.Hub
	logger zerolog.Logger
}

func NewGatewayBridge(db *database.Database, svc *services.RoomService, hub *websocket.Hub, logger zerolog.Logger) *GatewayBridge {
	return &GatewayBridge{db: db, svc: svc, hub: hub, logger: logger}
}

func (b *GatewayBridge) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeJoinRoom:
		return b.handleJoinRoom(client, msg)

	case websocket.TypeLeaveRoom:
		return b.handleLeaveRoom(client, msg)

	case websocket.TypeSendMessage:
		return b.handleSendMessage(client, msg)

	case websocket.TypeTyping:
		return b.relayTyping(client, msg, websocket.TypeUserTyping)

	case websocket.TypeStopTyping:
		return b.relayTyping(client, msg, websocket.TypeUserStoppedTyping)

	case websocket.TypeToggleMedia:
		return b.handleToggleMedia(client, msg)

	default:
		b.logger.Debug().Str("type", string(msg.Type)).Msg("unknown event type")
		return nil
	}
}

// HandleDisconnect помечает участника офлайн во всех комнатах соединения
func (b *GatewayBridge) HandleDisconnect(client *websocket.Client) {
	for _, roomID := range client.GetRooms() {
		if err := b.svc.SetParticipantOnline(roomID, client.UserID, false); err != nil {
			b.logger.Warn().Err(err).Str("room_id", roomID.String()).Msg("failed to mark participant offline")
		}
	}
}

func (b *GatewayBridge) handleJoinRoom(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.JoinRoomPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		return websocket.ErrInvalidPayload
	}

	b.hub.JoinRoom(client, payload.RoomID)

	// Присутствие: если пользователь — участник комнаты, он теперь онлайн
	if err := b.svc.SetParticipantOnline(payload.RoomID, client.UserID, true); err != nil {
		b.logger.Warn().Err(err).Str("room_id", payload.RoomID.String()).Msg("failed to mark participant online")
	}
	return nil
}

func (b *GatewayBridge) handleLeaveRoom(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.JoinRoomPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		return websocket.ErrInvalidPayload
	}

	b.hub.LeaveRoom(client, payload.RoomID)

	if err := b.svc.SetParticipantOnline(payload.RoomID, client.UserID, false); err != nil {
		b.logger.Warn().Err(err).Str("room_id", payload.RoomID.String()).Msg("failed to mark participant offline")
	}
	return nil
}

// handleSendMessage сохраняет сообщение через сервис; обратно оно придет
// всем в группе, включая отправителя, как newMessage
func (b *GatewayBridge) handleSendMessage(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.SendMessagePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		return websocket.ErrInvalidPayload
	}

	if !client.IsInRoom(payload.RoomID) {
		return websocket.ErrNotInRoomGroup
	}

	user, err := b.db.GetUser(client.UserID.String())
	if err != nil {
		return err
	}

	attachments := make([]services.AttachmentInput, len(payload.Attachments))
	for i, a := range payload.Attachments {
		attachments[i] = services.AttachmentInput{Name: a.Name, URL: a.URL, Type: a.Type}
	}

	if _, err := b.svc.PostMessage(payload.RoomID, user, payload.Message, attachments); err != nil {
		return err
	}

	go b.db.UpdateLastSeen(client.UserID.String())

	return nil
}

func (b *GatewayBridge) relayTyping(client *websocket.Client, msg *websocket.Message, out websocket.MessageType) error {
	var payload websocket.TypingPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		return websocket.ErrInvalidPayload
	}

	if !client.IsInRoom(payload.RoomID) {
		return websocket.ErrNotInRoomGroup
	}

	b.hub.RelayToRoomExcept(payload.RoomID, out, websocket.UserTypingPayload{
		UserID:   client.UserID,
		UserName: client.UserName,
	}, client)
	return nil
}

func (b *GatewayBridge) handleToggleMedia(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.ToggleMediaPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.RoomID == uuid.Nil {
		return websocket.ErrInvalidPayload
	}

	if !client.IsInRoom(payload.RoomID) {
		return websocket.ErrNotInRoomGroup
	}

	b.hub.RelayToRoomExcept(payload.RoomID, websocket.TypeMediaToggled, websocket.MediaToggledPayload{
		UserID:    client.UserID,
		MediaType: payload.MediaType,
		IsEnabled: payload.IsEnabled,
	}, client)
	return nil
}
