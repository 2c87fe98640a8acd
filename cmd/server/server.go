package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vongdev/E-learning--sub001/internal/cron"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/handlers"
	"github.com/vongdev/E-learning--sub001/internal/services"
	"github.com/vongdev/E-learning--sub001/internal/websocket"
	"github.com/vongdev/E-learning--sub001/pkg/auth"
)

const (
	defaultCacheTTL    = 30 * time.Second
	defaultIdleTimeout = 30 * time.Minute
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *websocket.Hub
	JWTManager *auth.JWTManager
	Sweeper    *gocron.Scheduler
	Logger     zerolog.Logger
}

func NewServer() *Server {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			logger.Info().Msg(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	hub := websocket.NewHub(logger)
	go hub.Run()

	cacheSvc := services.NewCacheService(defaultCacheTTL, time.Minute)
	roomSvc := services.NewRoomService(dbConn, hub, cacheSvc, logger)

	idleTimeout := defaultIdleTimeout
	if raw := os.Getenv("ROOM_IDLE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			idleTimeout = d
		}
	}
	sweeper := cron.StartRoomSweeper(roomSvc, idleTimeout, logger)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	userH := handlers.NewUserHandler(dbConn)
	roomH := handlers.NewRoomHandler(dbConn, roomSvc, hub)
	bridge := handlers.NewGatewayBridge(dbConn, roomSvc, hub, logger)
	wsH := handlers.NewWebSocketHandler(dbConn, hub, bridge)

	router := gin.New()
	router.Use(gin.Recovery())
	APIEndpoints(router, &Deps{
		Logger:   logger,
		Redis:    rdb,
		JWT:      jwtMgr,
		Cache:    cacheSvc,
		AuthH:    authH,
		UserH:    userH,
		RoomH:    roomH,
		WSH:      wsH,
		CacheTTL: defaultCacheTTL,
	})

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
		Sweeper:    sweeper,
		Logger:     logger,
	}
}

// Run поднимает HTTP сервер и по SIGINT/SIGTERM гасит его вместе
// с хабом, планировщиком и Redis
func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: s.Router}

	go func() {
		s.Logger.Info().Str("port", port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal().Err(err).Msg("server run error")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	s.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error().Err(err).Msg("http shutdown failed")
	}

	s.Sweeper.Stop()
	s.Hub.Stop()
	if err := s.Redis.Close(); err != nil {
		s.Logger.Error().Err(err).Msg("redis close failed")
	}

	s.Logger.Info().Msg("server stopped")
}
