package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/piyushm89/realtime-workspace/config"
	"github.com/piyushm89/realtime-workspace/database"
	"github.com/piyushm89/realtime-workspace/handlers"
	"github.com/piyushm89/realtime-workspace/history"
	"github.com/piyushm89/realtime-workspace/middleware"
	"github.com/piyushm89/realtime-workspace/websocket"

	"github.com/gorilla/mux"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/cors" // 引入 CORS 庫
)

func main() {
	cfg := config.LoadConfig()

	mongo, err := database.Connect(cfg.MongoDBURI, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Disconnect()

	// Redis 為選配，未設定時停用 REST 速率限制
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		log.Println("REDIS_ADDR not set, rate limiting disabled.")
	}

	store := history.NewStore(mongo, history.Limits{
		DrawRetain: cfg.DrawHistoryLimit,
		ChatRetain: cfg.ChatHistoryLimit,
		DrawReplay: cfg.ReplayDrawLimit,
		ChatReplay: cfg.ReplayChatLimit,
	})

	hub := websocket.NewHub(cfg, store)
	go hub.Run()
	defer hub.Stop()

	workspace := handlers.NewWorkspaceHandler(store)

	router := mux.NewRouter()

	// 健康檢查路由
	router.HandleFunc("/api/health", workspace.Health).Methods("GET")

	// 工作區 API 路由
	api := router.PathPrefix("/api/workspace").Subrouter()
	api.Use(middleware.RateLimit(redisClient, cfg.RateLimitPerSecond))
	api.HandleFunc("", workspace.CreateWorkspace).Methods("POST")
	api.HandleFunc("/{roomId}", workspace.GetWorkspace).Methods("GET")
	api.HandleFunc("/{roomId}/name", workspace.UpdateName).Methods("PUT")
	api.HandleFunc("/{roomId}/settings", workspace.UpdateSettings).Methods("PUT")
	api.HandleFunc("/{roomId}/analytics", workspace.GetAnalytics).Methods("GET")

	// WebSocket 即時通道
	router.HandleFunc("/ws", websocket.ServeWS(hub))

	// 設置 CORS 中介軟體
	// 實際生產環境中，你應該將 AllowedOrigins 限制為你的前端網域
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	handler := c.Handler(router)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉，避免資料損壞，請求中斷
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully.")
}
