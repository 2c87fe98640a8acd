package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoomStatusActive  = "active"
	RoomStatusWaiting = "waiting"
	RoomStatusClosed  = "closed"
)

const DefaultMaxCapacity = 10

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	Topic       string
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	Status      string    `gorm:"default:'active';check:status IN ('active','waiting','closed')"`
	MaxCapacity int       `gorm:"default:10"`
	// LastActivity обновляется на join/leave/message, по нему сортируется список
	LastActivity time.Time `gorm:"index"`
	CreatedAt    time.Time

	// Связи
	Participants    []Participant `gorm:"foreignKey:RoomID"`
	Messages        []Message     `gorm:"foreignKey:RoomID"`
	AssignedMembers []User        `gorm:"many2many:room_assignments"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Participant — членство пользователя в комнате, не более одной записи на пользователя
type Participant struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_user"`
	Name     string    // денормализованное имя для отображения
	IsOnline bool      `gorm:"default:false"`
	IsLeader bool      `gorm:"default:false"`
	JoinedAt time.Time
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
