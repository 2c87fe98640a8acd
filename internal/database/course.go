package database

import (
	"github.com/vongdev/E-learning--sub001/internal/models"
)

func (d *Database) CreateCourse(course *models.Course) error {
	return d.db.Create(course).Error
}

func (d *Database) GetCourse(id string) (*models.Course, error) {
	var course models.Course
	if err := d.db.First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}
