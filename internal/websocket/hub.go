package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vongdev/E-learning--sub001/internal/metrics"
	"github.com/vongdev/E-learning--sub001/internal/models"
)

// Hub держит активные соединения и широковещательные группы комнат.
// Группа — это транспортный срез: членство в ней не связано напрямую
// с записью Participant в базе.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Соединения по UserID (у пользователя может быть несколько вкладок)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Группы комнат
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger zerolog.Logger

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает цикл хаба и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register и Unregister не блокируются после Stop: цикл Run уже не
// читает каналы, поэтому отправка идет с оглядкой на контекст
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	metrics.WSConnectionsActive.Inc()
	h.logger.Debug().
		Str("client_id", client.ID.String()).
		Str("user_id", client.UserID.String()).
		Msg("client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for roomID := range client.Rooms {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	metrics.WSConnectionsActive.Dec()
	h.logger.Debug().
		Str("client_id", client.ID.String()).
		Str("user_id", client.UserID.String()).
		Msg("client unregistered")
}

// JoinRoom добавляет соединение в группу комнаты и рассылает userJoined остальным
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()

	h.emitToRoomExcept(roomID, TypeUserJoined, UserJoinedPayload{
		UserID:    client.UserID,
		UserName:  client.UserName,
		Timestamp: time.Now(),
	}, client.ID)
}

// LeaveRoom убирает соединение из группы и рассылает userLeft остальным
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
		return
	}

	h.emitToRoomExcept(roomID, TypeUserLeft, UserLeftPayload{
		UserID:    client.UserID,
		UserName:  client.UserName,
		Timestamp: time.Now(),
	}, uuid.Nil)
}

// RelayToRoomExcept транслирует событие группе без отправителя.
// Используется для typing/stopTyping/toggleMedia, которые не персистятся.
func (h *Hub) RelayToRoomExcept(roomID uuid.UUID, msgType MessageType, payload interface{}, exclude *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	excludeID := uuid.Nil
	if exclude != nil {
		excludeID = exclude.ID
	}
	h.emitToRoomExcept(roomID, msgType, payload, excludeID)
}

// MessageCreated реализует services.RoomEventPublisher: новое сообщение
// уходит всей группе, включая отправителя (эхо)
func (h *Hub) MessageCreated(room *models.Room, msg *models.Message) {
	payload := NewMessagePayload{
		MessageID: msg.ID,
		Message:   msg.Content,
		Sender:    msg.UserName,
		SenderID:  msg.UserID,
		Timestamp: msg.CreatedAt,
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, AttachmentPayload{
			Name: a.Name,
			URL:  a.URL,
			Type: a.Type,
		})
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.emitToRoomExcept(room.ID, TypeNewMessage, payload, uuid.Nil)
}

// RoomClosed реализует services.RoomEventPublisher
func (h *Hub) RoomClosed(room *models.Room) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.emitToRoomExcept(room.ID, TypeRoomClosed, RoomClosedPayload{
		RoomID:    room.ID,
		Timestamp: time.Now(),
	}, uuid.Nil)
}

// emitToRoomExcept — вызывающий обязан держать h.mu
func (h *Hub) emitToRoomExcept(roomID uuid.UUID, msgType MessageType, payload interface{}, excludeID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	data, err := Envelope(msgType, &roomID, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(msgType)).Msg("failed to marshal event")
		return
	}

	metrics.WSEventsTotal.WithLabelValues(string(msgType)).Inc()

	for _, client := range room {
		if client.ID == excludeID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID.String()).Msg("client send queue full, dropping event")
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := Envelope(TypePing, nil, nil)
	if err != nil {
		return
	}

	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// GetRoomUsers возвращает пользователей, подключенных к группе комнаты
func (h *Hub) GetRoomUsers(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}

// GetOnlineUsers возвращает всех подключенных пользователей
func (h *Hub) GetOnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}
