// Package main 是应用程序的入口点。
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pai-photo-go/internal/config"
	"pai-photo-go/internal/handler"
	"pai-photo-go/internal/middleware"
	"pai-photo-go/internal/repository"
	"pai-photo-go/internal/service"
	"pai-photo-go/internal/tagging"
	"pai-photo-go/pkg/database"
	"pai-photo-go/pkg/log"
	"pai-photo-go/pkg/storage"
	"pai-photo-go/pkg/token"
	"pai-photo-go/pkg/vision"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.Migrate()
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化本地图片存储
	localStorage, err := storage.NewLocalStorage(cfg.Storage.WebRoot)
	if err != nil {
		log.Fatalf("初始化本地存储失败: %v", err)
	}

	// 5. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	photoRepository := repository.NewPhotoRepository(database.DB)
	tagRepository := repository.NewTagRepository(database.DB)
	settingRepository := repository.NewAiSettingRepository(database.DB)
	suggestionRepository := repository.NewSuggestionRepository(database.DB)
	taggingStore := repository.NewTaggingStore(database.DB, tagRepository)

	// 6. 初始化打标管道
	queue := tagging.NewQueue()
	vocabularyBuilder := tagging.NewVocabularyBuilder(
		taggingStore,
		database.RDB,
		time.Duration(cfg.AI.VocabularyCacheMinutes)*time.Minute,
	)
	generator := tagging.NewGenerator(vision.NewClient())
	worker := tagging.NewWorker(
		queue,
		taggingStore,
		vocabularyBuilder,
		generator,
		cfg.AI.MaxTags,
		cfg.AI.SuggestionLimit,
		time.Duration(cfg.AI.RequestTimeoutSeconds)*time.Second,
	)

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepository, jwtManager)
	photoService := service.NewPhotoService(photoRepository, tagRepository, localStorage, queue)
	settingService := service.NewAiSettingService(settingRepository, cfg.AI.DefaultModel)
	suggestionService := service.NewSuggestionService(suggestionRepository)

	// 8. 启动后台打标消费者
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 静态托管原图与缩略图
	r.Static("/uploads", localStorage.AbsolutePath("/uploads"))

	// 10. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewUserHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).Profile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
			}
		}

		// Photo 路由组，需要认证
		photos := apiV1.Group("/photos")
		photos.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			photoHandler := handler.NewPhotoHandler(photoService)
			photos.POST("", photoHandler.Upload)
			photos.GET("", photoHandler.List)
			photos.GET("/:id", photoHandler.Detail)
			photos.PUT("/:id", photoHandler.Edit)
			photos.PUT("/:id/file", photoHandler.ReplaceFile)
			photos.DELETE("/:id", photoHandler.Delete)
			photos.POST("/:id/retag", photoHandler.Retag)
		}

		// AI 配置路由组，需要认证
		aiSettings := apiV1.Group("/ai-settings")
		aiSettings.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			settingHandler := handler.NewAiSettingHandler(settingService)
			aiSettings.GET("", settingHandler.Get)
			aiSettings.PUT("", settingHandler.Save)
		}

		// AI 候选标签路由组，需要认证
		suggestions := apiV1.Group("/suggestions")
		suggestions.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			suggestionHandler := handler.NewSuggestionHandler(suggestionService)
			suggestions.GET("", suggestionHandler.List)
			suggestions.POST("/:id/adopt", suggestionHandler.Adopt)
			suggestions.DELETE("/:id", suggestionHandler.Dismiss)
		}
	}

	// 11. 启动 HTTP 服务并实现优雅停机
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("服务器启动，监听端口 %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到停机信号，开始优雅关闭")

	// 先停止接收新请求，再停掉打标消费者
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务关闭异常: %v", err)
	}

	queue.Close()
	stopWorker()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warnf("打标消费者未在限时内退出")
	}

	log.Info("服务已退出")
}
