package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course — минимальная запись курса; управление курсами живет в другом сервисе
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"not null"`
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
