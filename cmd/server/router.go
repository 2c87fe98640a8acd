package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vongdev/E-learning--sub001/internal/handlers"
	"github.com/vongdev/E-learning--sub001/internal/metrics"
	"github.com/vongdev/E-learning--sub001/internal/middleware"
	"github.com/vongdev/E-learning--sub001/internal/services"
	"github.com/vongdev/E-learning--sub001/pkg/auth"
)

type Deps struct {
	Logger   zerolog.Logger
	Redis    *redis.Client
	JWT      *auth.JWTManager
	Cache    *services.CacheService
	AuthH    *handlers.AuthHandler
	UserH    *handlers.UserHandler
	RoomH    *handlers.RoomHandler
	WSH      *handlers.WebSocketHandler
	CacheTTL time.Duration
}

func APIEndpoints(r *gin.Engine, d *Deps) {
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", d.AuthH.Register)
		authGroup.POST("/login", d.AuthH.Login)
		authGroup.POST("/logout", d.AuthH.Logout)
	}

	// WebSocket шлюз
	r.GET("/ws", middleware.WSAuthMiddleware(d.JWT, d.Redis), d.WSH.HandleWebSocket)

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(d.JWT, d.Redis))
	{
		api.GET("/users/me", d.UserH.GetMe)
		api.PUT("/users/me", d.UserH.UpdateMe)

		api.GET("/presence", d.RoomH.Presence)

		api.GET("/courses/:courseId/breakout-rooms",
			middleware.CachePage(d.Cache, d.CacheTTL, func(c *gin.Context) string {
				return services.BucketCourseRooms(c.Param("courseId"))
			}),
			d.RoomH.ListCourseRooms)
		api.POST("/courses/:courseId/breakout-rooms", d.RoomH.CreateRoom)

		rooms := api.Group("/breakout-rooms")
		{
			rooms.GET("/:id", d.RoomH.GetRoom)
			rooms.GET("/:id/messages",
				middleware.CachePage(d.Cache, d.CacheTTL, func(c *gin.Context) string {
					return services.BucketRoomMessages(c.Param("id"))
				}),
				d.RoomH.GetMessages)
			rooms.POST("/:id/messages", d.RoomH.PostMessage)
			rooms.PUT("/:id/join", d.RoomH.JoinRoom)
			rooms.PUT("/:id/leave", d.RoomH.LeaveRoom)
			rooms.PUT("/:id/close", d.RoomH.CloseRoom)
			rooms.PUT("/:id/assign", d.RoomH.AssignMembers)
		}
	}
}
