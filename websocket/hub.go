package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/piyushm89/realtime-workspace/config"
	"github.com/piyushm89/realtime-workspace/history"
	"github.com/piyushm89/realtime-workspace/models"
	"github.com/piyushm89/realtime-workspace/utils"
)

// 定期輸出房間統計的週期
const statsInterval = 10 * time.Minute

// inboundEvent 是從某條連線收到的一個已命名事件
type inboundEvent struct {
	client *Client
	event  string
	data   json.RawMessage
}

// Hub 維護所有活躍的連線、房間註冊表、在線記錄與輸入中集合，
// 並處理事件的分發。所有狀態只在 Run 的單一 goroutine 中讀寫，
// 因此不需要鎖；持久化呼叫以 goroutine 發出，不阻塞調度迴圈。
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	tasks      chan func()
	stop       chan struct{}

	clients map[string]*Client        // 連線 ID → 連線
	members map[string]*models.Member // 連線 ID → 在線記錄
	rooms   map[string]*models.Room   // 房間 ID → 即時狀態
	typing  map[string]map[string]bool // 房間 ID → 輸入中的成員集合

	store *history.Store
	cfg   *config.Config
}

// NewHub 創建並返回一個新的 Hub 實例
func NewHub(cfg *config.Config, store *history.Store) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		tasks:      make(chan func()),
		stop:       make(chan struct{}),
		clients:    make(map[string]*Client),
		members:    make(map[string]*models.Member),
		rooms:      make(map[string]*models.Room),
		typing:     make(map[string]map[string]bool),
		store:      store,
		cfg:        cfg,
	}
}

// Register 將連線交給 Hub 管理
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stop:
	}
}

// Unregister 通知 Hub 某條連線已結束（底層 transport 的斷線回調）
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Inbound 將一個入站事件交給調度迴圈
func (h *Hub) Inbound(c *Client, event string, data json.RawMessage) {
	select {
	case h.inbound <- inboundEvent{client: c, event: event, data: data}:
	case <-h.stop:
	}
}

// Stop 結束調度迴圈
func (h *Hub) Stop() {
	close(h.stop)
}

// do 將一個函數排入調度迴圈執行，保持單執行緒狀態變更的不變量
func (h *Hub) do(fn func()) bool {
	select {
	case h.tasks <- fn:
		return true
	case <-h.stop:
		return false
	}
}

// Snapshot 回傳房間的即時名稱與成員 ID 列表；房間不存在時 ok 為 false
func (h *Hub) Snapshot(roomID string) (name string, memberIDs []string, ok bool) {
	type result struct {
		name string
		ids  []string
		ok   bool
	}
	ch := make(chan result, 1)
	if !h.do(func() {
		room, exists := h.rooms[roomID]
		if !exists {
			ch <- result{}
			return
		}
		ids := make([]string, 0, len(room.Members))
		for id := range room.Members {
			ids = append(ids, id)
		}
		ch <- result{name: room.Name, ids: ids, ok: true}
	}) {
		return "", nil, false
	}
	r := <-ch
	return r.name, r.ids, r.ok
}

// Run 啟動 Hub 的調度迴圈：連線註冊/註銷、事件分發、
// 定期任務（閒置回收與統計輸出）都在這裡串行執行
func (h *Hub) Run() {
	reap := time.NewTicker(h.cfg.ReapInterval)
	stats := time.NewTicker(statsInterval)
	defer func() {
		reap.Stop()
		stats.Stop()
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c.ID] = c
			log.Printf("Client %s connected. Total clients: %d", c.ID, len(h.clients))

		case c := <-h.unregister:
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				delete(h.clients, c.ID)
				h.retireMember(c.ID, true)
				close(c.send)
				log.Printf("Client %s disconnected. Total clients: %d", c.ID, len(h.clients))
			}

		case ev := <-h.inbound:
			h.dispatch(ev)

		case fn := <-h.tasks:
			fn()

		case <-reap.C:
			h.sweepIdle()

		case <-stats.C:
			log.Printf("Active rooms: %d, Active users: %d", len(h.rooms), len(h.members))

		case <-h.stop:
			return
		}
	}
}

// dispatch 是事件分發的中樞：先更新發送者的活動時間，再依事件類型
// 決定受眾與負載形狀。來自未註冊連線的事件（信令除外）會被靜默丟棄。
func (h *Hub) dispatch(ev inboundEvent) {
	if m, ok := h.members[ev.client.ID]; ok {
		m.LastActivity = time.Now()
	}

	switch ev.event {
	case models.EventJoinRoom:
		h.handleJoin(ev.client, ev.data)
	case models.EventLeaveRoom:
		h.handleLeave(ev.client)
	case models.EventDraw:
		h.handleDraw(ev.client, ev.data)
	case models.EventChatMessage:
		h.handleChat(ev.client, ev.data)
	case models.EventUserTyping:
		h.handleTyping(ev.client, ev.data)
	case models.EventGetChatHistory:
		h.handleChatHistory(ev.client, ev.data)
	case models.EventCursorMove:
		h.handleCursor(ev.client, ev.data)
	case models.EventCanvasUpdate:
		h.handleCanvasUpdate(ev.client, ev.data)
	case models.EventUpdateWorkspaceName:
		h.handleRename(ev.client, ev.data)
	case models.EventWebRTCOffer, models.EventWebRTCAnswer, models.EventWebRTCICECandidate:
		h.handleSignal(ev.client, ev.event, ev.data)
	case models.EventJoinVideoCall:
		h.handleVideoPresence(ev.client, models.EventUserJoinedVideo)
	case models.EventLeaveVideoCall:
		h.handleVideoPresence(ev.client, models.EventUserLeftVideo)
	case models.EventUserActivity:
		h.handleActivity(ev.client, ev.data)
	default:
		// 未知事件靜默丟棄
	}
}

// handleJoin 處理 join-room：註冊在線記錄、更新房間註冊表、
// 向其他成員廣播 user-joined，並回覆 room-state 給加入者
func (h *Hub) handleJoin(c *Client, data json.RawMessage) {
	var p models.JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		return
	}

	// 一條連線同時只屬於一個房間，重新加入會取代原本的關聯
	if _, ok := h.members[c.ID]; ok {
		h.retireMember(c.ID, true)
	}

	username := p.Username
	if username == "" {
		username = "Anonymous"
	}

	now := time.Now()
	m := &models.Member{
		ID:           c.ID,
		Username:     username,
		RoomID:       p.RoomID,
		JoinedAt:     now,
		LastActivity: now,
		CursorColor:  p.CursorColor,
		Extra:        p.Extra,
	}
	h.members[c.ID] = m

	room, ok := h.rooms[p.RoomID]
	if !ok {
		room = &models.Room{
			ID:        p.RoomID,
			Name:      utils.DefaultWorkspaceName(p.RoomID),
			CreatedAt: now,
			Members:   make(map[string]bool),
		}
		h.rooms[p.RoomID] = room
		// 持久化層可能保存了這個房間的名稱，非同步補上
		h.hydrateRoomName(p.RoomID)
	}
	room.Members[c.ID] = true
	room.LastActivity = now

	h.broadcastRoom(p.RoomID, c.ID, models.EventUserJoined, models.PresencePayload{UserID: c.ID, Username: username})
	h.sendTo(c, models.EventRoomState, models.RoomStatePayload{
		RoomID:        p.RoomID,
		Users:         h.membersOf(p.RoomID),
		WorkspaceName: room.Name,
	})

	log.Printf("User %s joined room %s", username, p.RoomID)
}

// hydrateRoomName 非同步查詢持久化層中的工作區名稱，
// 查到後在調度迴圈中更新記憶體名稱並通知房間內成員
func (h *Hub) hydrateRoomName(roomID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		name, err := h.store.WorkspaceName(ctx, roomID)
		if err != nil {
			log.Printf("Error fetching workspace name for room %s: %v", roomID, err)
			return
		}
		if name == "" {
			return
		}
		h.do(func() {
			room, ok := h.rooms[roomID]
			if !ok || room.Name == name {
				return
			}
			room.Name = name
			h.broadcastRoom(roomID, "", models.EventWorkspaceNameUpdate, models.NameUpdatedPayload{Name: name})
		})
	}()
}

// handleLeave 處理 leave-room：退場廣播並更新註冊表，連線本身保持開啟
func (h *Hub) handleLeave(c *Client) {
	h.retireMember(c.ID, true)
}

// handleDraw 處理繪圖事件：蓋上伺服器欄位後廣播給房間內其他成員、
// 更新繪圖旗標、非同步寫入歷史，最後重播成員列表
func (h *Hub) handleDraw(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var action models.DrawingAction
	if err := json.Unmarshal(data, &action); err != nil {
		return
	}

	m.IsDrawing = action.Type == models.DrawStart || action.Type == models.DrawMove
	action.UserID = c.ID
	action.Username = m.Username
	action.Timestamp = time.Now()

	if room, ok := h.rooms[m.RoomID]; ok {
		room.LastActivity = action.Timestamp
	}

	h.broadcastRoom(m.RoomID, c.ID, models.EventDraw, action)

	// 持久化是 fire-and-forget，失敗由 Store 記錄
	go h.store.AppendDrawing(m.RoomID, action)

	h.broadcastRoom(m.RoomID, c.ID, models.EventUserListUpdate, h.membersOf(m.RoomID))
}

// handleChat 處理聊天訊息：廣播給整個房間（含發送者），並寫入歷史
func (h *Hub) handleChat(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	msg.UserID = c.ID
	msg.Username = m.Username
	msg.Timestamp = time.Now()

	h.broadcastRoom(m.RoomID, "", models.EventChatMessage, msg)

	go h.store.AppendChat(m.RoomID, msg)
}

// handleTyping 處理輸入指示：只變更暫態的輸入中集合，不持久化
func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var p models.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	set, ok := h.typing[m.RoomID]
	if !ok {
		set = make(map[string]bool)
		h.typing[m.RoomID] = set
	}
	if p.IsTyping {
		set[c.ID] = true
	} else {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.typing, m.RoomID)
		}
	}

	h.broadcastRoom(m.RoomID, c.ID, models.EventUserTyping, models.TypingPayload{
		Username: m.Username,
		IsTyping: p.IsTyping,
	})
}

// handleChatHistory 非同步讀取聊天歷史後回覆給請求者
func (h *Hub) handleChatHistory(c *Client, data json.RawMessage) {
	var p models.ChatHistoryRequest
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	roomID := p.RoomID
	if roomID == "" {
		if m, ok := h.members[c.ID]; ok {
			roomID = m.RoomID
		}
	}
	if roomID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		msgs, err := h.store.ChatReplay(ctx, roomID)
		if err != nil {
			log.Printf("Error fetching chat history for room %s: %v", roomID, err)
			return
		}
		h.do(func() {
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				h.sendTo(c, models.EventChatHistory, msgs)
			}
		})
	}()
}

// handleCursor 處理游標移動：補上使用者資訊後廣播，不持久化
func (h *Hub) handleCursor(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var p models.CursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	p.UserID = c.ID
	p.Username = m.Username
	p.Color = m.CursorColor
	if p.Color == "" {
		p.Color = "#000000"
	}

	h.broadcastRoom(m.RoomID, c.ID, models.EventCursorMove, p)
}

// handleCanvasUpdate 處理畫布完整狀態：廣播給其他成員，
// 非空的元素陣列會以 canvas-state 寫入繪圖歷史
func (h *Hub) handleCanvasUpdate(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var p models.CanvasUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	p.UserID = c.ID

	h.broadcastRoom(m.RoomID, c.ID, models.EventCanvasUpdate, p)

	if len(p.Elements) > 0 && string(p.Elements) != "null" && string(p.Elements) != "[]" {
		action := models.DrawingAction{
			Type:      models.DrawCanvasState,
			Elements:  p.Elements,
			UserID:    c.ID,
			Username:  m.Username,
			Timestamp: time.Now(),
		}
		go h.store.AppendDrawing(m.RoomID, action)
	}
}

// handleRename 處理工作區改名：記憶體採 last-writer-wins，
// 廣播給整個房間（含發送者），並非同步寫入持久化層
func (h *Hub) handleRename(c *Client, data json.RawMessage) {
	if _, ok := h.members[c.ID]; !ok {
		return
	}

	var p models.RenamePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Name == "" {
		return
	}

	if room, ok := h.rooms[p.RoomID]; ok {
		room.Name = p.Name
	}

	go h.store.PersistName(p.RoomID, p.Name)

	h.broadcastRoom(p.RoomID, "", models.EventWorkspaceNameUpdate, models.NameUpdatedPayload{Name: p.Name})
	log.Printf("Workspace %s renamed to: %s", p.RoomID, p.Name)
}

// handleSignal 處理 WebRTC 信令：點對點轉發給目標連線，
// 不廣播、不持久化；目標不存在時靜默無操作
func (h *Hub) handleSignal(c *Client, event string, data json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		return
	}

	target, ok := h.clients[p.TargetID]
	if !ok {
		return
	}

	out := models.SignalPayload{
		Offer:     p.Offer,
		Answer:    p.Answer,
		Candidate: p.Candidate,
		SenderID:  c.ID,
	}
	// candidate 轉發不帶名稱，offer/answer 附上發送者名稱（若有）
	if event != models.EventWebRTCICECandidate {
		if m, ok := h.members[c.ID]; ok {
			out.SenderName = m.Username
		}
	}

	h.sendTo(target, event, out)
}

// handleVideoPresence 處理視訊通話的加入/離開通知
func (h *Hub) handleVideoPresence(c *Client, event string) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}
	h.broadcastRoom(m.RoomID, c.ID, event, models.PresencePayload{UserID: c.ID, Username: m.Username})
}

// handleActivity 處理活動心跳：活動時間已在 dispatch 中更新，這裡轉播狀態
func (h *Hub) handleActivity(c *Client, data json.RawMessage) {
	m, ok := h.members[c.ID]
	if !ok {
		return
	}

	var p models.ActivityPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	p.UserID = c.ID

	h.broadcastRoom(m.RoomID, c.ID, models.EventUserActivityUpdate, p)
}

// retireMember 註銷一條連線的在線記錄：移出房間與輸入中集合，
// 廣播退場與成員列表，房間清空時從註冊表移除（持久化歷史不受影響）
func (h *Hub) retireMember(connID string, announce bool) {
	m, ok := h.members[connID]
	if !ok {
		return
	}
	delete(h.members, connID)

	if set, ok := h.typing[m.RoomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.typing, m.RoomID)
		}
	}

	room, ok := h.rooms[m.RoomID]
	if !ok {
		return
	}
	delete(room.Members, connID)

	if announce {
		h.broadcastRoom(m.RoomID, connID, models.EventUserLeft, models.PresencePayload{UserID: connID, Username: m.Username})
		h.broadcastRoom(m.RoomID, connID, models.EventUserListUpdate, h.membersOf(m.RoomID))
	}

	if len(room.Members) == 0 {
		delete(h.rooms, m.RoomID)
		delete(h.typing, m.RoomID)
		log.Printf("Room %s cleaned up (empty)", m.RoomID)
	}
}

// sweepIdle 回收活動時間超過閒置門檻的連線：關閉底層連線，
// 讓清理走一般的斷線路徑（transport 斷線回調從未觸發時的唯一回收機制）
func (h *Hub) sweepIdle() {
	now := time.Now()
	for id, m := range h.members {
		if now.Sub(m.LastActivity) <= h.cfg.IdleTimeout {
			continue
		}
		log.Printf("Cleaning up inactive user: %s", id)
		if c, ok := h.clients[id]; ok {
			c.conn.Close()
		} else {
			h.retireMember(id, true)
		}
	}
}

// membersOf 將房間的成員 ID 集合解析為完整的在線記錄列表
func (h *Hub) membersOf(roomID string) []*models.Member {
	room, ok := h.rooms[roomID]
	if !ok {
		return []*models.Member{}
	}
	members := make([]*models.Member, 0, len(room.Members))
	for id := range room.Members {
		if m, ok := h.members[id]; ok {
			members = append(members, m)
		}
	}
	return members
}

// broadcastRoom 將事件廣播給房間內的成員；excludeID 非空時跳過該連線
func (h *Hub) broadcastRoom(roomID, excludeID, event string, payload interface{}) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	msg, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("Error marshalling %s event: %v", event, err)
		return
	}

	for id := range room.Members {
		if id == excludeID {
			continue
		}
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		h.deliver(c, msg)
	}
}

// sendTo 將事件發送給單一連線
func (h *Hub) sendTo(c *Client, event string, payload interface{}) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("Error marshalling %s event: %v", event, err)
		return
	}
	h.deliver(c, msg)
}

// deliver 將已編碼的訊息放入連線的發送緩衝；
// 緩衝已滿視為失聯連線，立即強制回收
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		log.Printf("Client channel is full, evicting client %s", c.ID)
		h.evict(c)
	}
}

// evict 強制回收一條連線（發送緩衝滿或其他不可恢復狀況）
func (h *Hub) evict(c *Client) {
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return
	}
	delete(h.clients, c.ID)
	h.retireMember(c.ID, true)
	close(c.send)
	c.conn.Close()
}

// encodeEvent 將事件名稱與負載編碼為信封格式
func encodeEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: data})
}
