package history

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/piyushm89/realtime-workspace/models"
	"github.com/piyushm89/realtime-workspace/utils"

	"github.com/google/uuid"
)

//go:generate mockgen -source=store.go -destination=../mocks/mock_durable.go -package=mocks

// ErrNotFound 表示持久化層中不存在該工作區
var ErrNotFound = errors.New("workspace not found")

// Durable 是持久化協作者的介面，以房間 ID 為鍵做 upsert 式讀寫
// 截斷參數 keep 由 Store 決定，由協作者執行（MongoDB 以 $slice 實作）
type Durable interface {
	// Fetch 讀取工作區文件，不存在時回傳 (nil, nil)
	Fetch(ctx context.Context, roomID string) (*models.Workspace, error)
	Create(ctx context.Context, ws *models.Workspace) error
	PushDrawing(ctx context.Context, roomID string, action models.DrawingAction, keep int) error
	PushChat(ctx context.Context, roomID string, msg models.ChatMessage, keep int) error
	SetName(ctx context.Context, roomID, name string) error
	SetSettings(ctx context.Context, roomID string, settings models.Settings) error
}

// Limits 是歷史記錄的截斷策略常數，全部可由配置覆寫
type Limits struct {
	DrawRetain int // 持久化保留的繪圖操作數
	ChatRetain int // 持久化保留的聊天訊息數
	DrawReplay int // 回放給新加入客戶端的繪圖操作數
	ChatReplay int // 回放給新加入客戶端的聊天訊息數
}

// 每次持久化操作的逾時時間
const opTimeout = 5 * time.Second

// Store 負責歷史記錄的截斷策略與讀寫形狀，儲存引擎本身委託給 Durable
// Append 類操作的失敗只記錄日誌、不向上傳播——持久化相對於即時廣播是
// fire-and-forget，儲存故障只影響之後的回放，不影響協作本身
type Store struct {
	db     Durable
	limits Limits
}

// NewStore 創建一個 Store
func NewStore(db Durable, limits Limits) *Store {
	return &Store{db: db, limits: limits}
}

// Get 讀取工作區，不存在時以預設值建立；歷史記錄套用回放上限後回傳
func (s *Store) Get(ctx context.Context, roomID string) (*models.Workspace, error) {
	ws, err := s.db.Fetch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws = newWorkspace(roomID, utils.DefaultWorkspaceName(roomID), "anonymous")
		if err := s.db.Create(ctx, ws); err != nil {
			return nil, err
		}
	}
	ws.DrawingHistory = tailDrawing(ws.DrawingHistory, s.limits.DrawReplay)
	ws.ChatHistory = tailChat(ws.ChatHistory, s.limits.ChatReplay)
	return ws, nil
}

// Create 以新生成的房間 ID 建立工作區
func (s *Store) Create(ctx context.Context, name, owner string) (*models.Workspace, error) {
	roomID := uuid.NewString()
	if name == "" {
		name = utils.DefaultWorkspaceName(roomID)
	}
	if owner == "" {
		owner = "anonymous"
	}
	ws := newWorkspace(roomID, name, owner)
	if err := s.db.Create(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// AppendDrawing 追加一筆繪圖操作並截斷到保留上限；失敗只記錄日誌
func (s *Store) AppendDrawing(roomID string, action models.DrawingAction) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.db.PushDrawing(ctx, roomID, action, s.limits.DrawRetain); err != nil {
		log.Printf("Error saving drawing action for room %s: %v", roomID, err)
	}
}

// AppendChat 追加一則聊天訊息並截斷到保留上限；失敗只記錄日誌
func (s *Store) AppendChat(roomID string, msg models.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.db.PushChat(ctx, roomID, msg, s.limits.ChatRetain); err != nil {
		log.Printf("Error saving chat message for room %s: %v", roomID, err)
	}
}

// PersistName 將房間改名寫入持久化層；失敗只記錄日誌
func (s *Store) PersistName(roomID, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.db.SetName(ctx, roomID, name); err != nil {
		log.Printf("Error updating workspace name for room %s: %v", roomID, err)
	}
}

// Rename 將房間改名寫入持久化層（REST 路徑，錯誤向上傳播）
func (s *Store) Rename(ctx context.Context, roomID, name string) error {
	return s.db.SetName(ctx, roomID, name)
}

// UpdateSettings 更新工作區的功能開關
func (s *Store) UpdateSettings(ctx context.Context, roomID string, settings models.Settings) error {
	return s.db.SetSettings(ctx, roomID, settings)
}

// WorkspaceName 查詢持久化層中的工作區名稱，不存在時回傳空字串
func (s *Store) WorkspaceName(ctx context.Context, roomID string) (string, error) {
	ws, err := s.db.Fetch(ctx, roomID)
	if err != nil {
		return "", err
	}
	if ws == nil {
		return "", nil
	}
	return ws.Name, nil
}

// ChatReplay 回傳套用回放上限後的聊天歷史，不存在的房間回傳空列表
func (s *Store) ChatReplay(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	ws, err := s.db.Fetch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return []models.ChatMessage{}, nil
	}
	return tailChat(ws.ChatHistory, s.limits.ChatReplay), nil
}

// Analytics 回傳工作區的統計資訊，不存在時回傳 ErrNotFound
func (s *Store) Analytics(ctx context.Context, roomID string) (*models.Analytics, error) {
	ws, err := s.db.Fetch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrNotFound
	}
	return &models.Analytics{
		TotalDrawingActions: len(ws.DrawingHistory),
		TotalChatMessages:   len(ws.ChatHistory),
		CreatedAt:           ws.CreatedAt,
		LastActivity:        ws.UpdatedAt,
	}, nil
}

func newWorkspace(roomID, name, owner string) *models.Workspace {
	now := time.Now()
	return &models.Workspace{
		RoomID:         roomID,
		Name:           name,
		Owner:          owner,
		Collaborators:  []models.Collaborator{},
		DrawingHistory: []models.DrawingAction{},
		ChatHistory:    []models.ChatMessage{},
		IsPublic:       true,
		Settings:       models.DefaultSettings(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// tailDrawing 取切片中最近的 n 筆
func tailDrawing(actions []models.DrawingAction, n int) []models.DrawingAction {
	if len(actions) > n {
		return actions[len(actions)-n:]
	}
	return actions
}

// tailChat 取切片中最近的 n 筆
func tailChat(msgs []models.ChatMessage, n int) []models.ChatMessage {
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
