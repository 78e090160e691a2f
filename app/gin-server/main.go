package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/aicruiter/config"
	"github.com/yoockh/aicruiter/internal/api/handlers"
	"github.com/yoockh/aicruiter/internal/api/middleware"
	"github.com/yoockh/aicruiter/internal/api/routes"
	"github.com/yoockh/aicruiter/internal/cache"
	"github.com/yoockh/aicruiter/internal/call"
	"github.com/yoockh/aicruiter/internal/logger"
	"github.com/yoockh/aicruiter/internal/providers/assistant"
	"github.com/yoockh/aicruiter/internal/providers/llm"
	mongorepo "github.com/yoockh/aicruiter/internal/repositories/mongo"
	pgrepo "github.com/yoockh/aicruiter/internal/repositories/postgres"
	"github.com/yoockh/aicruiter/internal/services"
	"github.com/yoockh/aicruiter/internal/storage"
	"github.com/yoockh/aicruiter/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	app := config.LoadApp()

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Warn("MongoDB index setup failed")
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if err := config.MigratePostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL migration error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var gen llm.Provider
	if app.Vertex.ProjectID != "" {
		v, err := llm.NewVertexGemini(ctx, app.Vertex.ProjectID, app.Vertex.Location, app.Vertex.Model)
		if err != nil {
			log.WithError(err).Warn("Vertex AI unavailable, question generation disabled")
		} else {
			gen = v
			defer v.Close()
		}
	} else {
		log.Warn("GCP_PROJECT_ID not set, question generation disabled")
	}

	var archive storage.Uploader
	if app.GCSBucket != "" {
		u, err := storage.NewGCSUploader(ctx, app.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("GCS unavailable, call archiving disabled")
		} else {
			archive = u
			defer u.Close()
		}
	}

	if app.Assistant.URL == "" {
		log.Warn("ASSISTANT_WS_URL not set, interview calls will fail to connect")
	}

	// repositories
	users := pgrepo.NewUserRepo(config.PostgresDB)
	interviewRepo := pgrepo.NewInterviewRepo(config.PostgresDB)
	callRepo := mongorepo.NewCallRepo(config.MongoDatabase())

	// services
	userSvc := services.NewUserService(users)
	interviewSvc := services.NewInterviewService(interviewRepo, cache.NewRedisCache(config.RedisClient, app.CachePrefix), app.CacheTTL, gen)
	callSvc := services.NewCallService(callRepo)

	pool := &workers.LifecyclePool{
		Redis:         config.RedisClient,
		Calls:         callSvc,
		Archive:       archive,
		NumWorkers:    app.Workers,
		Logger:        log,
		Group:         app.LifecycleGroup,
		RetryAfter:    app.RetryAfter,
		MaxDeliveries: int64(app.MaxDeliveries),
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("lifecycle workers")
	}

	newAssistant := func() assistant.Provider {
		return assistant.NewWSClient(app.Assistant.URL, app.Assistant.APIKey, log)
	}
	model := call.ModelSettings{
		AssistantName: app.Assistant.Name,
		Provider:      app.Assistant.Provider,
		Model:         app.Assistant.Model,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		JWT: middleware.JWTConfig{
			Secret:   app.JWT.Secret,
			Issuer:   app.JWT.Issuer,
			Audience: app.JWT.Audience,
		},
		Auth:      handlers.NewAuthHandler(),
		Profile:   handlers.NewProfileHandler(userSvc),
		Interview: handlers.NewInterviewHandler(interviewSvc, callSvc),
		WS:        handlers.NewWSHandler(interviewSvc, newAssistant, workers.NewRedisPublisher(config.RedisClient, ""), model, log),
	})

	srv := &http.Server{
		Addr:    ":" + app.Port,
		Handler: r,
	}

	go func() {
		log.WithField("port", app.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	_ = config.RedisClient.Close()
	_ = config.MongoClient.Disconnect(shutdownCtx)
	log.WithFields(logrus.Fields{"port": app.Port}).Info("server stopped")
}
