package database

import (
	"github.com/google/uuid"
	"github.com/vongdev/E-learning--sub001/internal/models"
)

// GetRoomMessages получает историю комнаты с пагинацией, старые сообщения первыми
func (d *Database) GetRoomMessages(roomID string, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("room_id = ?", roomID)

	// Если указан beforeID, отдаем только сообщения до него
	if beforeID != nil {
		var beforeMsg models.Message
		if err := d.db.First(&beforeMsg, "id = ?", beforeID).Error; err == nil {
			query = query.Where("created_at < ?", beforeMsg.CreatedAt)
		}
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Preload("Attachments").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем, чтобы старые были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
