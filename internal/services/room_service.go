package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/metrics"
	"github.com/vongdev/E-learning--sub001/internal/models"
	"gorm.io/gorm"
)

// LeaderPolicy определяет, что происходит с лидерством, когда лидер выходит
type LeaderPolicy int

const (
	// PromoteEarliest — лидером становится самый ранний из оставшихся
	PromoteEarliest LeaderPolicy = iota
	// LeaveVacant — комната остается без лидера
	LeaveVacant
)

// AttachmentInput — вложение сообщения от вызывающей стороны
type AttachmentInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// RoomService владеет всеми переходами состояния комнаты. REST и websocket
// ходят только через него: сообщение сначала сохраняется, потом публикуется.
type RoomService struct {
	db           *database.Database
	publisher    RoomEventPublisher
	cache        *CacheService
	leaderPolicy LeaderPolicy
	logger       zerolog.Logger
}

func NewRoomService(db *database.Database, pub RoomEventPublisher, cache *CacheService, logger zerolog.Logger) *RoomService {
	return &RoomService{
		db:           db,
		publisher:    pub,
		cache:        cache,
		leaderPolicy: PromoteEarliest,
		logger:       logger,
	}
}

func (s *RoomService) SetLeaderPolicy(p LeaderPolicy) {
	s.leaderPolicy = p
}

func (s *RoomService) CreateRoom(courseID uuid.UUID, creator *models.User, name, topic string, maxCapacity int) (*models.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if _, err := s.db.GetCourse(courseID.String()); err != nil {
		return nil, asNotFound(err)
	}

	if maxCapacity <= 0 {
		maxCapacity = models.DefaultMaxCapacity
	}

	room := &models.Room{
		Name:         strings.TrimSpace(name),
		Topic:        topic,
		CourseID:     courseID,
		CreatedBy:    creator.ID,
		Status:       models.RoomStatusActive,
		MaxCapacity:  maxCapacity,
		LastActivity: time.Now(),
	}

	if err := s.db.CreateRoom(room); err != nil {
		return nil, err
	}

	s.invalidateCourse(courseID)
	s.logger.Info().
		Str("room_id", room.ID.String()).
		Str("course_id", courseID.String()).
		Msg("room created")

	return room, nil
}

// JoinRoom добавляет участника. Повторный join того же пользователя — no-op.
// Проверка вместимости идет под блокировкой строки комнаты, поэтому два
// одновременных join не проскочат мимо лимита.
func (s *RoomService) JoinRoom(roomID uuid.UUID, user *models.User) (*models.Room, error) {
	err := s.db.WithRoom(roomID.String(), func(tx *gorm.DB, room *models.Room) error {
		if room.Status == models.RoomStatusClosed {
			return ErrRoomClosed
		}

		for _, p := range room.Participants {
			if p.UserID == user.ID {
				// Уже участник
				return nil
			}
		}

		if len(room.Participants) >= room.MaxCapacity {
			return ErrCapacity
		}

		participant := &models.Participant{
			RoomID:   room.ID,
			UserID:   user.ID,
			Name:     user.Username,
			IsLeader: len(room.Participants) == 0,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(participant).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"last_activity": time.Now()}
		if room.Status == models.RoomStatusWaiting {
			updates["status"] = models.RoomStatusActive
		}
		return tx.Model(room).Updates(updates).Error
	})
	if err != nil {
		return nil, asNotFound(err)
	}

	room, err := s.db.GetRoom(roomID.String())
	if err != nil {
		return nil, asNotFound(err)
	}

	s.invalidateRoom(room)
	return room, nil
}

// LeaveRoom убирает участника; отсутствующий пользователь — no-op
func (s *RoomService) LeaveRoom(roomID uuid.UUID, user *models.User) (*models.Room, error) {
	err := s.db.WithRoom(roomID.String(), func(tx *gorm.DB, room *models.Room) error {
		var leaving *models.Participant
		for i := range room.Participants {
			if room.Participants[i].UserID == user.ID {
				leaving = &room.Participants[i]
				break
			}
		}
		if leaving == nil {
			return nil
		}

		if err := tx.Delete(&models.Participant{}, "id = ?", leaving.ID).Error; err != nil {
			return err
		}

		// Передача лидерства по настроенной политике
		if leaving.IsLeader && s.leaderPolicy == PromoteEarliest {
			for i := range room.Participants {
				p := &room.Participants[i]
				if p.UserID != user.ID {
					if err := tx.Model(p).Update("is_leader", true).Error; err != nil {
						return err
					}
					break
				}
			}
		}

		return tx.Model(room).Update("last_activity", time.Now()).Error
	})
	if err != nil {
		return nil, asNotFound(err)
	}

	room, err := s.db.GetRoom(roomID.String())
	if err != nil {
		return nil, asNotFound(err)
	}

	s.invalidateRoom(room)
	return room, nil
}

// PostMessage сохраняет сообщение и затем публикует его в шлюз. Единственный
// путь записи для REST и websocket, истории не разъезжаются.
func (s *RoomService) PostMessage(roomID uuid.UUID, user *models.User, content string, attachments []AttachmentInput) (*models.Message, error) {
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}

	message := &models.Message{
		RoomID:    roomID,
		UserID:    user.ID,
		UserName:  user.Username,
		Content:   content,
		CreatedAt: time.Now(),
	}
	for _, a := range attachments {
		message.Attachments = append(message.Attachments, models.Attachment{
			Name: a.Name,
			URL:  a.URL,
			Type: a.Type,
		})
	}

	var room *models.Room
	err := s.db.WithRoom(roomID.String(), func(tx *gorm.DB, r *models.Room) error {
		if r.Status == models.RoomStatusClosed {
			return ErrRoomClosed
		}
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		room = r
		return tx.Model(r).Update("last_activity", message.CreatedAt).Error
	})
	if err != nil {
		return nil, asNotFound(err)
	}

	metrics.RoomMessagesTotal.Inc()
	s.invalidateRoom(room)

	if s.publisher != nil {
		s.publisher.MessageCreated(room, message)
	}

	return message, nil
}

func (s *RoomService) GetRoom(roomID uuid.UUID) (*models.Room, error) {
	room, err := s.db.GetRoom(roomID.String())
	if err != nil {
		return nil, asNotFound(err)
	}
	return room, nil
}

// GetMessages возвращает историю комнаты, старые сообщения первыми
func (s *RoomService) GetMessages(roomID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	if _, err := s.db.GetRoom(roomID.String()); err != nil {
		return nil, asNotFound(err)
	}
	return s.db.GetRoomMessages(roomID.String(), limit, beforeID)
}

// CloseRoom переводит комнату в closed и очищает участников.
// Доступно создателю комнаты и модераторам.
func (s *RoomService) CloseRoom(roomID uuid.UUID, actor *models.User) (*models.Room, error) {
	err := s.db.WithRoom(roomID.String(), func(tx *gorm.DB, room *models.Room) error {
		if room.CreatedBy != actor.ID && !actor.CanModerate() {
			return ErrForbidden
		}

		if err := tx.Delete(&models.Participant{}, "room_id = ?", room.ID).Error; err != nil {
			return err
		}

		return tx.Model(room).Updates(map[string]interface{}{
			"status":        models.RoomStatusClosed,
			"last_activity": time.Now(),
		}).Error
	})
	if err != nil {
		return nil, asNotFound(err)
	}

	room, err := s.db.GetRoom(roomID.String())
	if err != nil {
		return nil, asNotFound(err)
	}

	s.invalidateRoom(room)
	if s.publisher != nil {
		s.publisher.RoomClosed(room)
	}

	s.logger.Info().Str("room_id", room.ID.String()).Msg("room closed")
	return room, nil
}

// ListRoomsForCourse отдает комнаты курса по убыванию last_activity
func (s *RoomService) ListRoomsForCourse(courseID uuid.UUID) ([]models.Room, error) {
	if _, err := s.db.GetCourse(courseID.String()); err != nil {
		return nil, asNotFound(err)
	}
	return s.db.GetCourseRooms(courseID.String())
}

// AssignMembers назначает пользователей в комнату, не добавляя их в участники
func (s *RoomService) AssignMembers(roomID uuid.UUID, actor *models.User, userIDs []uuid.UUID) (*models.Room, error) {
	room, err := s.db.GetRoom(roomID.String())
	if err != nil {
		return nil, asNotFound(err)
	}

	if room.CreatedBy != actor.ID && !actor.CanModerate() {
		return nil, ErrForbidden
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}
	users, err := s.db.GetUsersByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(userIDs) {
		return nil, fmt.Errorf("%w: unknown user in assignment", ErrValidation)
	}

	if err := s.db.AssignMembers(room, users); err != nil {
		return nil, err
	}

	return s.db.GetRoom(roomID.String())
}

// SetParticipantOnline — синхронизация присутствия от шлюза
func (s *RoomService) SetParticipantOnline(roomID, userID uuid.UUID, online bool) error {
	return s.db.SetParticipantOnline(roomID, userID, online)
}

// SweepIdleRooms переводит простаивающие активные комнаты в waiting
func (s *RoomService) SweepIdleRooms(idleAfter time.Duration) (int64, error) {
	n, err := s.db.MarkIdleRooms(time.Now().Add(-idleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if s.cache != nil {
			s.cache.Flush()
		}
		s.logger.Info().Int64("rooms", n).Msg("idle rooms moved to waiting")
	}
	return n, nil
}

func (s *RoomService) invalidateRoom(room *models.Room) {
	if s.cache == nil || room == nil {
		return
	}
	s.cache.InvalidateBucket(BucketRoomMessages(room.ID.String()))
	s.cache.InvalidateBucket(BucketCourseRooms(room.CourseID.String()))
}

func (s *RoomService) invalidateCourse(courseID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateBucket(BucketCourseRooms(courseID.String()))
}

func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
