package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/vongdev/E-learning--sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) CreateRoom(room *models.Room) error {
	return d.db.Create(room).Error
}

func (d *Database) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	err := d.db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Preload("AssignedMembers").
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetCourseRooms возвращает комнаты курса, самые активные первыми
func (d *Database) GetCourseRooms(courseID string) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.
		Where("course_id = ?", courseID).
		Order("last_activity DESC").
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// WithRoom выполняет fn в транзакции, держа блокировку на строке комнаты.
// Участники загружены в порядке joined_at. Конкурентные join сериализуются здесь.
func (d *Database) WithRoom(roomID string, fn func(tx *gorm.DB, room *models.Room) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", roomID).Error
		if err != nil {
			return err
		}

		err = tx.
			Order("joined_at ASC").
			Find(&room.Participants, "room_id = ?", room.ID).Error
		if err != nil {
			return err
		}

		return fn(tx, &room)
	})
}

func (d *Database) SetParticipantOnline(roomID, userID uuid.UUID, online bool) error {
	return d.db.Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_online", online).Error
}

// AssignMembers заменяет набор назначенных пользователей комнаты
func (d *Database) AssignMembers(room *models.Room, users []models.User) error {
	return d.db.Model(room).Association("AssignedMembers").Replace(users)
}

// MarkIdleRooms переводит активные комнаты без активности с cutoff в статус waiting
func (d *Database) MarkIdleRooms(cutoff time.Time) (int64, error) {
	res := d.db.Model(&models.Room{}).
		Where("status = ? AND last_activity < ?", models.RoomStatusActive, cutoff).
		Update("status", models.RoomStatusWaiting)
	return res.RowsAffected, res.Error
}
