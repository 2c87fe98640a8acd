package cron

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/vongdev/E-learning--sub001/internal/services"
)

// StartRoomSweeper раз в минуту переводит простаивающие комнаты в waiting
func StartRoomSweeper(svc *services.RoomService, idleAfter time.Duration, logger zerolog.Logger) *gocron.Scheduler {
	s := gocron.NewScheduler(time.Local)

	s.Every(1).Minute().Do(func() {
		if _, err := svc.SweepIdleRooms(idleAfter); err != nil {
			logger.Error().Err(err).Msg("idle room sweep failed")
		}
	})

	s.StartAsync()
	return s
}
