package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"teamchat-service/internal/auth"
	"teamchat-service/internal/config"
	"teamchat-service/internal/db"
	"teamchat-service/internal/handlers"
	"teamchat-service/internal/middleware"
	"teamchat-service/internal/observability"
	"teamchat-service/internal/presence"
	"teamchat-service/internal/rabbitmq"
	"teamchat-service/internal/repositories"
	"teamchat-service/internal/telemetry"
	"teamchat-service/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.teamchat", "teamchat-service", cfg.Environment)

	presenceStore := presence.NewStore(cfg.RedisAddr)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, tokens, hub, audit)
	directoryHandler := handlers.NewDirectoryHandler(userRepo, presenceStore)
	messageHandler := handlers.NewMessageHandler(messageRepo, hub)
	sessionWS := ws.NewSessionHandler(hub, messageRepo, presenceStore, tokens)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("teamchat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	router.GET("/users", authMiddleware, directoryHandler.ListUsers)
	router.GET("/messages", authMiddleware, messageHandler.ListAllMessages)
	router.GET("/chats/:chat_id/messages", authMiddleware, messageHandler.ListChatMessages)
	router.PUT("/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)
	router.POST("/messages/:message_id/read", authMiddleware, messageHandler.MarkMessageRead)

	router.GET("/ws", sessionWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
