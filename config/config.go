package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv" // 引入這個庫來讀取 .env 檔案
)

// Config 結構體用於儲存應用程式的配置
type Config struct {
	MongoDBURI    string
	DBName        string
	Port          string
	RedisAddr     string // 選填，留空則停用 REST 速率限制
	RedisPassword string

	// 歷史記錄的保留上限（持久化層保留的數量）
	DrawHistoryLimit int
	ChatHistoryLimit int

	// 回放上限（新加入的客戶端初始化時取得的數量，比保留上限小）
	ReplayDrawLimit int
	ReplayChatLimit int

	// 閒置連線的逾時與回收週期
	IdleTimeout  time.Duration
	ReapInterval time.Duration

	// REST API 每秒允許的請求數（每個 IP）
	RateLimitPerSecond int
}

// LoadConfig 載入配置，優先從環境變數讀取，其次從 .env 檔案讀取
func LoadConfig() *Config {
	// 嘗試載入 .env 檔案，如果不存在也不會報錯
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		MongoDBURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("DB_NAME", "workspace_db"),
		Port:          getEnv("PORT", "5000"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DrawHistoryLimit: getEnvInt("DRAW_HISTORY_LIMIT", 1000),
		ChatHistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", 200),
		ReplayDrawLimit:  getEnvInt("REPLAY_DRAW_LIMIT", 100),
		ReplayChatLimit:  getEnvInt("REPLAY_CHAT_LIMIT", 50),

		IdleTimeout:  getEnvDuration("IDLE_TIMEOUT", 5*time.Minute),
		ReapInterval: getEnvDuration("REAP_INTERVAL", 5*time.Minute),

		RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 20),
	}
	return cfg
}

// getEnv 輔助函數，用於從環境變數獲取值，如果不存在則使用預設值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt 讀取整數型環境變數，解析失敗時退回預設值
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration 讀取時間型環境變數（如 "5m"、"30s"），解析失敗時退回預設值
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
