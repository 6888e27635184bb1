package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/config"
	"github.com/spotsapp/spots-api/internal/domain/repository"
	"github.com/spotsapp/spots-api/internal/handler"
	"github.com/spotsapp/spots-api/internal/middleware"
	pgRepo "github.com/spotsapp/spots-api/internal/repository/postgres"
	redisRepo "github.com/spotsapp/spots-api/internal/repository/redis"
	s3Repo "github.com/spotsapp/spots-api/internal/repository/s3"
	"github.com/spotsapp/spots-api/internal/service"
	"github.com/spotsapp/spots-api/pkg/auth"
	"github.com/spotsapp/spots-api/pkg/database"
	"github.com/spotsapp/spots-api/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()
	appLog := logger.WithModule("main")

	if err := run(cfg, appLog); err != nil {
		appLog.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLog *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		return err
	}
	sqlDB, err := database.GetSQLDB(db)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, logger.WithModule("migrate")); err != nil {
		return err
	}

	// Redis only backs the popular-spots cache, so the service runs without it.
	var (
		cache       repository.CacheRepository
		redisClient redis.UniversalClient
	)
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
		if err != nil {
			return err
		}
		cache = cacheRepo
		appLog.Info("connected to redis", zap.String("mode", cfg.Redis.Mode))
	} else {
		appLog.Warn("redis is not configured, popular spots will not be cached")
	}

	s3Client, err := s3Repo.NewClient(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	objectStore, err := s3Repo.NewObjectStore(s3Client, cfg.Storage)
	if err != nil {
		return err
	}

	accountRepo := pgRepo.NewAccountRepo(db)
	spotRepo := pgRepo.NewSpotRepo(db)

	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TokenTTL())
	if err != nil {
		return err
	}

	var mailer service.Mailer
	if cfg.Mail.Enabled() {
		resendMailer, err := service.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From, cfg.Mail.ProductName)
		if err != nil {
			return err
		}
		mailer = resendMailer
	} else {
		appLog.Warn("mail is not configured, verification and reset codes will only be logged")
		mailer = service.NewNoopMailer(logger.WithModule("mail"))
	}
	notifier, err := service.NewEmailNotifier(mailer, time.Duration(cfg.Auth.MailTimeoutSec)*time.Second, logger.WithModule("notifier"))
	if err != nil {
		return err
	}

	accountService, err := service.NewAccountService(
		accountRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		auth.NewCodeGenerator(time.Now),
		notifier,
		cfg.Auth.CodeWindowMinutes,
		logger.WithModule("account"),
	)
	if err != nil {
		return err
	}
	credentialService, err := service.NewCredentialService(accountRepo, tokens, logger.WithModule("credentials"))
	if err != nil {
		return err
	}
	fileService, err := service.NewFileService(objectStore, tokens, time.Now, logger.WithModule("files"))
	if err != nil {
		return err
	}
	spotService, err := service.NewSpotService(spotRepo, fileService, tokens, cache, service.DefaultPopularSpotsTTL, logger.WithModule("spots"))
	if err != nil {
		return err
	}

	sweeper, err := service.NewCodeSweeper(accountRepo, logger.WithModule("sweeper"),
		service.WithSweepSchedule(cfg.Auth.CodeCleanupSchedule))
	if err != nil {
		return err
	}
	if err := sweeper.Start(); err != nil {
		return err
	}

	resolver, err := handler.NewResolver(accountService, credentialService, spotService, fileService)
	if err != nil {
		return err
	}
	graphqlHandler, err := handler.NewGraphQLHandler(resolver)
	if err != nil {
		return err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := newRouter(graphqlHandler, sqlDB.PingContext, cfg.Server.AllowedOrigins)
	if gin.Mode() == gin.ReleaseMode {
		if err := router.SetTrustedProxies(nil); err != nil {
			appLog.Warn("failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLog.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		appLog.Error("server failed", zap.Error(err))
	}

	cancel()
	<-sweeper.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	notifier.Wait()

	appLog.Info("server exited properly")
	return nil
}

// newRouter mounts the GraphQL endpoint (POST only, JSON body), metrics and
// the health check.
func newRouter(graphqlHandler http.Handler, ping func(context.Context) error, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())
	router.Use(cors.New(corsConfig(origins)))

	router.POST("/graphql", middleware.CaptureToken(), gin.WrapH(graphqlHandler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
