package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message — запись истории комнаты, append-only: не редактируется и не удаляется
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	UserName  string    // денормализованное имя отправителя
	Content   string
	CreatedAt time.Time `gorm:"index"`

	// Связи
	Attachments []Attachment `gorm:"foreignKey:MessageID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Attachment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string
	URL       string
	Type      string
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
