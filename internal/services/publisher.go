package services

import "github.com/vongdev/E-learning--sub001/internal/models"

// RoomEventPublisher доставляет события комнаты подключенным клиентам.
// Сервис не знает про транспорт: hub реализует интерфейс на стороне websocket.
type RoomEventPublisher interface {
	MessageCreated(room *models.Room, msg *models.Message)
	RoomClosed(room *models.Room)
}
