package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/models"
	"github.com/vongdev/E-learning--sub001/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePublisher struct {
	created []*models.Message
	closed  []uuid.UUID
}

func (f *fakePublisher) MessageCreated(room *models.Room, msg *models.Message) {
	f.created = append(f.created, msg)
}

func (f *fakePublisher) RoomClosed(room *models.Room) {
	f.closed = append(f.closed, room.ID)
}

func newTestDB(t *testing.T) (*gorm.DB, *database.Database) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db, database.NewDatabase(db)
}

func newTestService(t *testing.T) (*services.RoomService, *gorm.DB, *database.Database, *fakePublisher) {
	t.Helper()

	gdb, d := newTestDB(t)
	pub := &fakePublisher{}
	svc := services.NewRoomService(d, pub, services.NewCacheService(time.Minute, time.Minute), zerolog.Nop())
	return svc, gdb, d, pub
}

func seedCourse(t *testing.T, d *database.Database) *models.Course {
	t.Helper()

	course := &models.Course{Title: "Distributed Systems", CreatedBy: uuid.New()}
	require.NoError(t, d.CreateCourse(course))
	return course
}

func seedUser(t *testing.T, d *database.Database, name, role string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, d.SaveUser(user))
	return user
}

func TestCreateRoom(t *testing.T) {
	svc, _, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)

	t.Run("creates active room with defaults", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room A", "graphs", 0)
		require.NoError(t, err)

		assert.Equal(t, models.RoomStatusActive, room.Status)
		assert.Equal(t, models.DefaultMaxCapacity, room.MaxCapacity)
		assert.Equal(t, course.ID, room.CourseID)
		assert.Equal(t, creator.ID, room.CreatedBy)
		assert.Empty(t, room.Participants)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		_, err := svc.CreateRoom(course.ID, creator, "   ", "", 5)
		assert.ErrorIs(t, err, services.ErrValidation)
	})

	t.Run("rejects unknown course", func(t *testing.T) {
		_, err := svc.CreateRoom(uuid.New(), creator, "Room B", "", 5)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestJoinRoom(t *testing.T) {
	svc, _, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)
	user1 := seedUser(t, d, "bob", models.RoleStudent)
	user2 := seedUser(t, d, "carol", models.RoleStudent)
	user3 := seedUser(t, d, "dave", models.RoleStudent)

	t.Run("first joiner becomes leader", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
		require.NoError(t, err)

		updated, err := svc.JoinRoom(room.ID, user1)
		require.NoError(t, err)
		require.Len(t, updated.Participants, 1)
		assert.True(t, updated.Participants[0].IsLeader)

		updated, err = svc.JoinRoom(room.ID, user2)
		require.NoError(t, err)
		require.Len(t, updated.Participants, 2)
		assert.False(t, updated.Participants[1].IsLeader)
	})

	t.Run("join is idempotent", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room B", "", 5)
		require.NoError(t, err)

		_, err = svc.JoinRoom(room.ID, user1)
		require.NoError(t, err)
		updated, err := svc.JoinRoom(room.ID, user1)
		require.NoError(t, err)

		count := 0
		for _, p := range updated.Participants {
			if p.UserID == user1.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("rejects join over capacity", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room C", "", 2)
		require.NoError(t, err)

		_, err = svc.JoinRoom(room.ID, user1)
		require.NoError(t, err)
		_, err = svc.JoinRoom(room.ID, user2)
		require.NoError(t, err)

		_, err = svc.JoinRoom(room.ID, user3)
		assert.ErrorIs(t, err, services.ErrCapacity)

		current, err := svc.GetRoom(room.ID)
		require.NoError(t, err)
		assert.Len(t, current.Participants, 2)
	})

	t.Run("rejects unknown room", func(t *testing.T) {
		_, err := svc.JoinRoom(uuid.New(), user1)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("rejects closed room", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room D", "", 5)
		require.NoError(t, err)
		_, err = svc.CloseRoom(room.ID, creator)
		require.NoError(t, err)

		_, err = svc.JoinRoom(room.ID, user1)
		assert.ErrorIs(t, err, services.ErrRoomClosed)
	})

	t.Run("join reactivates waiting room", func(t *testing.T) {
		svc2, gdb, d2, _ := newTestService(t)
		course2 := seedCourse(t, d2)
		u := seedUser(t, d2, "erin", models.RoleStudent)

		room, err := svc2.CreateRoom(course2.ID, seedUser(t, d2, "frank", models.RoleTeacher), "Room E", "", 5)
		require.NoError(t, err)
		require.NoError(t, gdb.Model(&models.Room{}).Where("id = ?", room.ID).
			Update("status", models.RoomStatusWaiting).Error)

		updated, err := svc2.JoinRoom(room.ID, u)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusActive, updated.Status)
	})
}

func TestLeaveRoom(t *testing.T) {
	t.Run("promotes earliest remaining joiner", func(t *testing.T) {
		svc, _, d, _ := newTestService(t)
		course := seedCourse(t, d)
		creator := seedUser(t, d, "alice", models.RoleTeacher)
		u1 := seedUser(t, d, "bob", models.RoleStudent)
		u2 := seedUser(t, d, "carol", models.RoleStudent)
		u3 := seedUser(t, d, "dave", models.RoleStudent)

		room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
		require.NoError(t, err)
		for _, u := range []*models.User{u1, u2, u3} {
			_, err = svc.JoinRoom(room.ID, u)
			require.NoError(t, err)
		}

		updated, err := svc.LeaveRoom(room.ID, u1)
		require.NoError(t, err)
		require.Len(t, updated.Participants, 2)
		assert.Equal(t, u2.ID, updated.Participants[0].UserID)
		assert.True(t, updated.Participants[0].IsLeader)
		assert.False(t, updated.Participants[1].IsLeader)
	})

	t.Run("leave vacant policy keeps room leaderless", func(t *testing.T) {
		svc, _, d, _ := newTestService(t)
		svc.SetLeaderPolicy(services.LeaveVacant)
		course := seedCourse(t, d)
		creator := seedUser(t, d, "alice", models.RoleTeacher)
		u1 := seedUser(t, d, "bob", models.RoleStudent)
		u2 := seedUser(t, d, "carol", models.RoleStudent)

		room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
		require.NoError(t, err)
		_, err = svc.JoinRoom(room.ID, u1)
		require.NoError(t, err)
		_, err = svc.JoinRoom(room.ID, u2)
		require.NoError(t, err)

		updated, err := svc.LeaveRoom(room.ID, u1)
		require.NoError(t, err)
		require.Len(t, updated.Participants, 1)
		assert.False(t, updated.Participants[0].IsLeader)
	})

	t.Run("leave of non-member is a no-op", func(t *testing.T) {
		svc, _, d, _ := newTestService(t)
		course := seedCourse(t, d)
		creator := seedUser(t, d, "alice", models.RoleTeacher)
		u1 := seedUser(t, d, "bob", models.RoleStudent)
		stranger := seedUser(t, d, "mallory", models.RoleStudent)

		room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
		require.NoError(t, err)
		_, err = svc.JoinRoom(room.ID, u1)
		require.NoError(t, err)

		updated, err := svc.LeaveRoom(room.ID, stranger)
		require.NoError(t, err)
		assert.Len(t, updated.Participants, 1)
	})
}

func TestPostMessage(t *testing.T) {
	svc, _, d, pub := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)
	user1 := seedUser(t, d, "bob", models.RoleStudent)

	room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
	require.NoError(t, err)

	t.Run("persists and publishes", func(t *testing.T) {
		msg, err := svc.PostMessage(room.ID, user1, "hello", nil)
		require.NoError(t, err)

		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, user1.ID, msg.UserID)
		assert.Equal(t, "bob", msg.UserName)
		require.Len(t, pub.created, 1)
		assert.Equal(t, msg.ID, pub.created[0].ID)

		messages, err := svc.GetMessages(room.ID, 50, nil)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "hello", messages[0].Content)
		assert.Equal(t, user1.ID, messages[0].UserID)
	})

	t.Run("rejects empty message without attachments", func(t *testing.T) {
		_, err := svc.PostMessage(room.ID, user1, "   ", nil)
		assert.ErrorIs(t, err, services.ErrValidation)
	})

	t.Run("accepts attachment-only message", func(t *testing.T) {
		msg, err := svc.PostMessage(room.ID, user1, "", []services.AttachmentInput{
			{Name: "notes.pdf", URL: "https://cdn.example.com/notes.pdf", Type: "application/pdf"},
		})
		require.NoError(t, err)

		messages, err := svc.GetMessages(room.ID, 50, nil)
		require.NoError(t, err)
		last := messages[len(messages)-1]
		assert.Equal(t, msg.ID, last.ID)
		require.Len(t, last.Attachments, 1)
		assert.Equal(t, "notes.pdf", last.Attachments[0].Name)
	})

	t.Run("history is append-only", func(t *testing.T) {
		before, err := svc.GetMessages(room.ID, 100, nil)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := svc.PostMessage(room.ID, user1, fmt.Sprintf("msg-%d", i), nil)
			require.NoError(t, err)
		}

		after, err := svc.GetMessages(room.ID, 100, nil)
		require.NoError(t, err)
		require.Len(t, after, len(before)+3)

		// Ранее записанные сообщения не меняются
		for i, msg := range before {
			assert.Equal(t, msg.ID, after[i].ID)
			assert.Equal(t, msg.Content, after[i].Content)
			assert.WithinDuration(t, msg.CreatedAt, after[i].CreatedAt, time.Millisecond)
		}
	})

	t.Run("rejects unknown room", func(t *testing.T) {
		_, err := svc.PostMessage(uuid.New(), user1, "hello", nil)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestCloseRoom(t *testing.T) {
	svc, _, d, pub := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleStudent)
	member := seedUser(t, d, "bob", models.RoleStudent)
	moderator := seedUser(t, d, "prof", models.RoleTeacher)

	t.Run("creator closes and participants are cleared", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
		require.NoError(t, err)
		_, err = svc.JoinRoom(room.ID, member)
		require.NoError(t, err)

		closed, err := svc.CloseRoom(room.ID, creator)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusClosed, closed.Status)
		assert.Empty(t, closed.Participants)
		assert.Contains(t, pub.closed, room.ID)
	})

	t.Run("non-creator student is forbidden", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room B", "", 5)
		require.NoError(t, err)

		_, err = svc.CloseRoom(room.ID, member)
		assert.ErrorIs(t, err, services.ErrForbidden)
	})

	t.Run("moderator may close", func(t *testing.T) {
		room, err := svc.CreateRoom(course.ID, creator, "Room C", "", 5)
		require.NoError(t, err)

		closed, err := svc.CloseRoom(room.ID, moderator)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusClosed, closed.Status)
	})
}

func TestListRoomsForCourse(t *testing.T) {
	svc, gdb, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)

	roomOld, err := svc.CreateRoom(course.ID, creator, "Old", "", 5)
	require.NoError(t, err)
	roomNew, err := svc.CreateRoom(course.ID, creator, "New", "", 5)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, gdb.Model(&models.Room{}).Where("id = ?", roomOld.ID).
		Update("last_activity", now.Add(-time.Hour)).Error)
	require.NoError(t, gdb.Model(&models.Room{}).Where("id = ?", roomNew.ID).
		Update("last_activity", now).Error)

	rooms, err := svc.ListRoomsForCourse(course.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, roomNew.ID, rooms[0].ID)
	assert.Equal(t, roomOld.ID, rooms[1].ID)

	_, err = svc.ListRoomsForCourse(uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAssignMembers(t *testing.T) {
	svc, _, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)
	u1 := seedUser(t, d, "bob", models.RoleStudent)
	u2 := seedUser(t, d, "carol", models.RoleStudent)
	stranger := seedUser(t, d, "mallory", models.RoleStudent)

	room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
	require.NoError(t, err)

	t.Run("creator assigns users without joining them", func(t *testing.T) {
		updated, err := svc.AssignMembers(room.ID, creator, []uuid.UUID{u1.ID, u2.ID})
		require.NoError(t, err)
		assert.Len(t, updated.AssignedMembers, 2)
		assert.Empty(t, updated.Participants)
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		_, err := svc.AssignMembers(room.ID, creator, []uuid.UUID{uuid.New()})
		assert.ErrorIs(t, err, services.ErrValidation)
	})

	t.Run("non-creator student forbidden", func(t *testing.T) {
		_, err := svc.AssignMembers(room.ID, stranger, []uuid.UUID{u1.ID})
		assert.ErrorIs(t, err, services.ErrForbidden)
	})
}

func TestSetParticipantOnline(t *testing.T) {
	svc, _, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)
	u1 := seedUser(t, d, "bob", models.RoleStudent)

	room, err := svc.CreateRoom(course.ID, creator, "Room A", "", 5)
	require.NoError(t, err)
	_, err = svc.JoinRoom(room.ID, u1)
	require.NoError(t, err)

	require.NoError(t, svc.SetParticipantOnline(room.ID, u1.ID, true))
	current, err := svc.GetRoom(room.ID)
	require.NoError(t, err)
	assert.True(t, current.Participants[0].IsOnline)

	require.NoError(t, svc.SetParticipantOnline(room.ID, u1.ID, false))
	current, err = svc.GetRoom(room.ID)
	require.NoError(t, err)
	assert.False(t, current.Participants[0].IsOnline)
}

func TestSweepIdleRooms(t *testing.T) {
	svc, gdb, d, _ := newTestService(t)
	course := seedCourse(t, d)
	creator := seedUser(t, d, "alice", models.RoleTeacher)

	idle, err := svc.CreateRoom(course.ID, creator, "Idle", "", 5)
	require.NoError(t, err)
	active, err := svc.CreateRoom(course.ID, creator, "Active", "", 5)
	require.NoError(t, err)

	require.NoError(t, gdb.Model(&models.Room{}).Where("id = ?", idle.ID).
		Update("last_activity", time.Now().Add(-time.Hour)).Error)

	n, err := svc.SweepIdleRooms(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	idleNow, err := svc.GetRoom(idle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusWaiting, idleNow.Status)

	activeNow, err := svc.GetRoom(active.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, activeNow.Status)
}
