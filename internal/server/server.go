package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"nova/internal/ai"
	"nova/internal/config"
	"nova/internal/handler"
	authHandler "nova/internal/handler/auth"
	"nova/internal/pkg/jwt"
	"nova/internal/pkg/kvstore"
	"nova/internal/pkg/storage"
	"nova/internal/pkg/storagefactory"
	authRepo "nova/internal/repository/auth"
	"nova/internal/server/middleware"
	"nova/internal/service"
	"nova/internal/store"
)

// Server HTTP 服务器
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	kv       *kvstore.Store
	aiClient *ai.Client
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// 本地键值存储：会话状态、用户数据都在这里
	kv, err := kvstore.Open(&cfg.Store)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.Store.Path).Msg("kv store opened")

	// 媒体落地的存储后端（本地或OSS）
	blobStorage, err := storagefactory.NewStorage(context.Background(), &cfg.Storage)
	if err != nil {
		kv.Close()
		return nil, err
	}
	log.Info().Str("type", blobStorage.GetStorageType()).Msg("blob storage ready")

	// AI 能力层
	aiClient, err := ai.NewClient(context.Background(), &cfg.AI)
	if err != nil {
		kv.Close()
		return nil, err
	}
	log.Info().Str("provider", aiClient.Provider()).Str("model", cfg.AI.ChatModel).Msg("ai client ready")

	srv := &Server{
		cfg:      cfg,
		engine:   engine,
		kv:       kv,
		aiClient: aiClient,
	}

	srv.setupRoutes(blobStorage)
	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(blobStorage storage.Storage) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 从配置读取JWT参数，没有配置则使用默认值
	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}
	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}
	refreshTokenExpiry := s.cfg.Auth.RefreshTokenExpiry
	if refreshTokenExpiry == 0 {
		refreshTokenExpiry = 7 * 24 * time.Hour
	}

	// 数据访问层
	userRepo := authRepo.NewUserRepo(s.kv)
	refreshTokenRepo := authRepo.NewRefreshTokenRepo(s.kv)
	persister := store.NewPersister(s.kv)

	// 业务逻辑层
	authSvc := service.NewAuthService(userRepo, refreshTokenRepo, jwtSecret, accessTokenExpiry, refreshTokenExpiry)
	gate := service.NewSessionService(persister)
	chatSvc := service.NewChatService(s.aiClient)
	mediaSvc := service.NewMediaService(s.aiClient, s.aiClient, blobStorage, &s.cfg.Video)

	// Handler 层
	sessions := handler.NewSessions(gate, authSvc)
	authHdl := authHandler.NewHandler(authSvc, gate)
	convHdl := handler.NewConversationHandler(sessions, gate)
	chatHdl := handler.NewChatHandler(sessions, chatSvc)
	modeHdl := handler.NewModeHandler(sessions, gate)
	imageHdl := handler.NewImageHandler(sessions, mediaSvc)
	videoHdl := handler.NewVideoHandler(sessions, mediaSvc)
	mediaHdl := handler.NewMediaHandler(sessions)
	prefsHdl := handler.NewPreferencesHandler(sessions, gate)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 认证接口（公开）
		v1.POST("/auth/register", authHdl.Register)
		v1.POST("/auth/login", authHdl.Login)
		v1.POST("/auth/refresh", authHdl.Refresh)
		v1.POST("/auth/logout", authHdl.Logout)

		// 需要认证的接口
		authed := v1.Group("")
		authed.Use(middleware.Auth(jwt.NewJWT(jwtSecret, accessTokenExpiry)))
		{
			authed.GET("/auth/me", authHdl.GetMe)

			authed.GET("/conversations", convHdl.List)
			authed.POST("/conversations", convHdl.Create)
			authed.GET("/conversations/:id", convHdl.Get)
			authed.DELETE("/conversations/:id", convHdl.Delete)
			authed.POST("/conversations/:id/select", convHdl.Select)

			authed.POST("/chat/messages", chatHdl.SendMessage)

			authed.GET("/session/mode", modeHdl.GetMode)
			authed.PUT("/session/mode", modeHdl.ChangeMode)
			authed.GET("/session/preferences", prefsHdl.Get)
			authed.PUT("/session/preferences", prefsHdl.Update)

			authed.POST("/images/generations", imageHdl.Generate)
			authed.POST("/images/edits", imageHdl.Edit)
			authed.POST("/videos/generations", videoHdl.Generate)

			authed.GET("/media", mediaHdl.List)
			authed.DELETE("/media/:id", mediaHdl.Delete)
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownErr := srv.Shutdown(context.Background())

		if err := s.aiClient.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close ai client")
		}
		if err := s.kv.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kv store")
		}
		return shutdownErr
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
