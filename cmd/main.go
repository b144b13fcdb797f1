package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucidcrew/account-service/internal/config"
	"github.com/lucidcrew/account-service/internal/events"
	"github.com/lucidcrew/account-service/internal/handler"
	"github.com/lucidcrew/account-service/internal/middleware"
	"github.com/lucidcrew/account-service/internal/notifier"
	"github.com/lucidcrew/account-service/internal/query"
	redisclient "github.com/lucidcrew/account-service/internal/redis"
	"github.com/lucidcrew/account-service/internal/repository"
	"github.com/lucidcrew/account-service/internal/service"
)

func main() {
	middleware.MustInitJWTSecret()
	cfg := config.Load()

	// MongoDB connection (account store)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = mongoClient.Ping(pingCtx, nil)
	cancel()
	if err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}

	store := repository.NewMongoAccountStore(mongoClient.Database(cfg.MongoDB))
	idxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureIndexes(idxCtx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Redis connection (event streaming + view cache)
	redis, err := redisclient.NewClient(cfg.RedisAddr, cfg.RedisPass, 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	publisher := events.NewPublisher(redis.Client)
	accountSvc := service.NewAccountService(store, publisher)
	querySvc := query.NewAccountQueryService(accountSvc, redis.Client)

	accountHandler := handler.NewAccountHandler(accountSvc, querySvc)

	// Setup router
	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	v1 := router.Group("/v1/accounts")
	{
		v1.POST("", accountHandler.Register)
		v1.POST("/validate-credentials", accountHandler.ValidateCredentials)
		v1.GET("", middleware.AuthMiddleware(), middleware.RequireRole("ADMIN"), accountHandler.ListAccounts)
		v1.GET("/:accountId", middleware.AuthMiddleware(), accountHandler.GetAccount)
		v1.PATCH("/:accountId", middleware.AuthMiddleware(), accountHandler.UpdateAccount)
		v1.DELETE("/:accountId", middleware.AuthMiddleware(), accountHandler.DeactivateAccount)
		v1.PUT("/:accountId/refresh-token", middleware.AuthMiddleware(), accountHandler.UpdateRefreshToken)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Start the notification consumer on the user events stream
	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "account-service-group",
			Consumer: cfg.ConsumerID,
			Stream:   events.UserEventsStream,
			Handler:  notifier.New(redis.Client).HandleUserEvent,
		})
		if err := subscriber.Start(subCtx); err != nil {
			log.Printf("Subscriber stopped: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancelSub()
	}()

	log.Printf("Account service starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
