package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/middleware"
	"github.com/vongdev/E-learning--sub001/internal/models"
	"github.com/vongdev/E-learning--sub001/internal/services"
)

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// respondServiceError переводит ошибки сервиса в HTTP статусы
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrRoomClosed):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrCapacity):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

// currentUser достает пользователя запроса из базы по userID из контекста
func currentUser(c *gin.Context, db *database.Database) (*models.User, bool) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	user, err := db.GetUser(userID.String())
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unknown user")
		return nil, false
	}
	return user, true
}
