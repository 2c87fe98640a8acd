package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/handlers/dto"
	"github.com/vongdev/E-learning--sub001/internal/models"
	"github.com/vongdev/E-learning--sub001/internal/services"
	"github.com/vongdev/E-learning--sub001/internal/websocket"
)

// RoomHandler — REST фасад breakout-комнат поверх RoomService
type RoomHandler struct {
	db  *database.Database
	svc *services.RoomService
	hub *websocket.Hub
}

func NewRoomHandler(db *database.Database, svc *services.RoomService, hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{db: db, svc: svc, hub: hub}
}

// ListCourseRooms отдает комнаты курса, самые активные первыми
func (h *RoomHandler) ListCourseRooms(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid course id")
		return
	}

	rooms, err := h.svc.ListRoomsForCourse(courseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result := make([]gin.H, len(rooms))
	for i := range rooms {
		result[i] = h.formatRoom(&rooms[i])
	}

	respondData(c, http.StatusOK, result)
}

// CreateRoom создает комнату в курсе
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid course id")
		return
	}

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.svc.CreateRoom(courseID, user, req.Name, req.Topic, req.MaxCapacity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, h.formatRoom(room))
}

// GetRoom отдает комнату вместе с подключенными к шлюзу пользователями
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := h.svc.GetRoom(roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	data := h.formatRoom(room)
	data["online_users"] = h.hub.GetRoomUsers(room.ID)

	respondData(c, http.StatusOK, data)
}

// GetMessages отдает историю комнаты, старые сообщения первыми
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeID *uuid.UUID
	if before := c.Query("before"); before != "" {
		if id, err := uuid.Parse(before); err == nil {
			beforeID = &id
		}
	}

	messages, err := h.svc.GetMessages(roomID, limit, beforeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result := make([]gin.H, len(messages))
	for i := range messages {
		result[i] = formatMessage(&messages[i])
	}

	respondData(c, http.StatusOK, result)
}

// PostMessage сохраняет сообщение; подключенные клиенты получат его
// через шлюз — сервис публикует после записи
func (h *RoomHandler) PostMessage(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	attachments := make([]services.AttachmentInput, len(req.Attachments))
	for i, a := range req.Attachments {
		attachments[i] = services.AttachmentInput{Name: a.Name, URL: a.URL, Type: a.Type}
	}

	message, err := h.svc.PostMessage(roomID, user, req.Content, attachments)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusCreated, formatMessage(message))
}

// JoinRoom добавляет текущего пользователя в участники
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := h.svc.JoinRoom(roomID, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, h.formatRoom(room))
}

// LeaveRoom убирает текущего пользователя из участников
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := h.svc.LeaveRoom(roomID, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, h.formatRoom(room))
}

// CloseRoom закрывает комнату; доступно создателю и модераторам
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := h.svc.CloseRoom(roomID, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, h.formatRoom(room))
}

// AssignMembers назначает пользователей в комнату
func (h *RoomHandler) AssignMembers(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid room id")
		return
	}

	var req dto.AssignMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid user id: "+raw)
			return
		}
		userIDs = append(userIDs, id)
	}

	room, err := h.svc.AssignMembers(roomID, user, userIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, h.formatRoom(room))
}

// Presence отдает всех пользователей, подключенных к шлюзу
func (h *RoomHandler) Presence(c *gin.Context) {
	users := h.hub.GetOnlineUsers()
	respondData(c, http.StatusOK, gin.H{
		"online_users": users,
		"count":        len(users),
	})
}

// formatRoom форматирует ответ для комнаты
func (h *RoomHandler) formatRoom(room *models.Room) gin.H {
	participants := make([]gin.H, len(room.Participants))
	for i, p := range room.Participants {
		participants[i] = gin.H{
			"user_id":   p.UserID,
			"name":      p.Name,
			"is_online": p.IsOnline,
			"is_leader": p.IsLeader,
			"joined_at": p.JoinedAt,
		}
	}

	assigned := make([]uuid.UUID, len(room.AssignedMembers))
	for i, u := range room.AssignedMembers {
		assigned[i] = u.ID
	}

	return gin.H{
		"id":               room.ID,
		"name":             room.Name,
		"topic":            room.Topic,
		"course_id":        room.CourseID,
		"created_by":       room.CreatedBy,
		"status":           room.Status,
		"max_capacity":     room.MaxCapacity,
		"participants":     participants,
		"assigned_members": assigned,
		"last_activity":    room.LastActivity,
		"created_at":       room.CreatedAt,
		"online_count":     len(h.hub.GetRoomUsers(room.ID)),
	}
}

// formatMessage форматирует ответ для сообщения
func formatMessage(msg *models.Message) gin.H {
	attachments := make([]gin.H, len(msg.Attachments))
	for i, a := range msg.Attachments {
		attachments[i] = gin.H{"name": a.Name, "url": a.URL, "type": a.Type}
	}

	return gin.H{
		"id":          msg.ID,
		"room_id":     msg.RoomID,
		"user_id":     msg.UserID,
		"user_name":   msg.UserName,
		"content":     msg.Content,
		"timestamp":   msg.CreatedAt,
		"attachments": attachments,
	}
}
