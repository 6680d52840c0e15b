package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/config"
	"github.com/fruithappens/Coffeecue-sub003/internal/database"
	"github.com/fruithappens/Coffeecue-sub003/internal/handler"
	"github.com/fruithappens/Coffeecue-sub003/internal/kvstore"
	"github.com/fruithappens/Coffeecue-sub003/internal/middleware"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	// Shared medium
	var store kvstore.Store
	var pool *pgxpool.Pool
	switch cfg.KVBackend {
	case "memory":
		store = kvstore.NewMedium().Attach()
		log.Println("Using in-memory medium (single-process)")
	default:
		var err error
		pool, err = database.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		if err := database.Bootstrap(context.Background(), pool); err != nil {
			log.Fatalf("Failed to bootstrap schema: %v", err)
		}

		pgStore := kvstore.NewPostgres(pool)
		if err := pgStore.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start change listener: %v", err)
		}
		store = pgStore
	}
	defer store.Close()

	// Core services
	b := bus.New(store)
	stockSvc := service.NewStockService(b)
	defer stockSvc.Close()
	engine := service.NewDepletionEngine(stockSvc)
	profileSvc := service.NewProfileService(b)
	chatMgr := service.NewChatManager(b, profileSvc, time.Duration(cfg.ChatPollSeconds)*time.Second)
	defer chatMgr.Close()

	// Dashboard push
	wsHub := service.NewWSHub()
	stockSvc.AddListener(func(u service.StockUpdate) {
		data, err := json.Marshal(model.StockUpdatedEvent{StationID: u.StationID, Catalog: u.Catalog})
		if err != nil {
			return
		}
		wsHub.BroadcastToStation(u.StationID, &model.Event{Type: model.EventStockUpdated, Data: data})
	})
	chatMgr.OnUpdate(func(msgs []model.ChatMessage) {
		data, err := json.Marshal(model.ChatUpdatedEvent{Messages: msgs})
		if err != nil {
			return
		}
		wsHub.Broadcast(&model.Event{Type: model.EventChatUpdated, Data: data})
	})

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	// Health
	healthH := handler.NewHealthHandler(pool)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// API v1
	v1 := app.Group("/api/v1")

	// Order completion callback (external scheduler)
	orderH := handler.NewOrderHandler(engine)
	v1.Post("/server/orders/complete", orderH.CompleteOrder)

	// Stations
	stations := v1.Group("/stations/:id")

	stockH := handler.NewStockHandler(stockSvc)
	stations.Get("/stock", stockH.GetCatalog)
	stations.Get("/stock/available", stockH.GetAvailable)
	stations.Post("/stock/reset", stockH.Reset)
	stations.Put("/stock/:category/:itemId/amount", stockH.UpdateAmount)
	stations.Post("/stock/:category/:itemId/restock", stockH.Restock)
	stations.Post("/stock/:category/items", stockH.AddItem)
	stations.Delete("/stock/:category/items/:itemId", stockH.DeleteItem)

	chatH := handler.NewChatHandler(chatMgr)
	stations.Get("/chat/messages", chatH.GetMessages)
	stations.Post("/chat/messages", middleware.RateLimit(30, time.Minute), chatH.PostMessage)
	stations.Delete("/chat/messages/:msgId", chatH.DeleteMessage)
	stations.Post("/chat/reset", chatH.Reset)

	profileH := handler.NewProfileHandler(profileSvc, chatMgr)
	stations.Get("/profile", profileH.GetProfile)
	stations.Put("/profile", profileH.PutProfile)

	// WebSocket
	wsH := handler.NewWSHandler(wsHub)
	app.Get("/ws", wsH.Upgrade)

	// Start hub
	go wsHub.Run()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Coffeecue station backend running on :%s (%s, kv=%s)", cfg.Port, cfg.Env, cfg.KVBackend)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	wsHub.Shutdown()
	log.Println("Server stopped")
}
