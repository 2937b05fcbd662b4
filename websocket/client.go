package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/piyushm89/realtime-workspace/models"

	"github.com/gorilla/websocket"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

// transportConn 抽象出 Client 對底層連線的依賴，便於在測試中替換
// *websocket.Conn 直接滿足此介面
type transportConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client 代表一個 WebSocket 客戶端連線
type Client struct {
	ID   string
	hub  *Hub
	conn transportConn
	send chan []byte // 待發送給客戶端的已編碼訊息
}

// NewClient 創建並返回一個新的 Client 實例
func NewClient(id string, hub *Hub, conn transportConn) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// 讀取客戶端傳來的訊息，解析事件信封後丟給 Hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Client %s disconnected gracefully.", c.ID)
			}
			break
		}

		// 解析收到的訊息為事件信封
		var env models.Envelope
		if err := json.Unmarshal(p, &env); err != nil {
			log.Printf("Error unmarshalling message from %s: %v", c.ID, err)
			continue
		}
		if env.Event == "" {
			continue
		}

		c.hub.Inbound(c, env.Event, env.Data)
	}
}

// 接收 Hub 廣播來的訊息，寫給客戶端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// channel 被關閉，送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		// 定時發送 ping 以保持連線活躍並檢測客戶端是否仍在線。
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
