package websocket

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 設定true:允許所有來源的連線
		return true
	},
}

// ServeWS 處理 WebSocket 連線請求：升級連線、產生連線 ID、
// 交給 Hub 管理並啟動讀寫迴圈。加入房間由 join-room 事件完成。
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := NewClient(uuid.NewString(), hub, conn)
		hub.Register(client)

		go client.writePump()
		client.readPump() // readPump 會在連線關閉時自動註銷
	}
}
