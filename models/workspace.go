package models

import (
	"encoding/json"
	"time"
)

// Settings 代表工作區的功能開關
type Settings struct {
	AllowDrawing   bool `bson:"allowDrawing" json:"allowDrawing"`
	AllowChat      bool `bson:"allowChat" json:"allowChat"`
	AllowVideoCall bool `bson:"allowVideoCall" json:"allowVideoCall"`
}

// DefaultSettings 回傳工作區的預設功能開關（全部開啟）
func DefaultSettings() Settings {
	return Settings{
		AllowDrawing:   true,
		AllowChat:      true,
		AllowVideoCall: true,
	}
}

// DrawingActionType 定義繪圖操作類型
type DrawingActionType string

const (
	DrawStart       DrawingActionType = "start"        // 開始一筆
	DrawMove        DrawingActionType = "draw"         // 繪製中
	DrawEnd         DrawingActionType = "end"          // 結束一筆
	DrawClear       DrawingActionType = "clear"        // 清空畫布
	DrawShape       DrawingActionType = "shape"        // 幾何圖形
	DrawText        DrawingActionType = "text"         // 文字
	DrawCanvasState DrawingActionType = "canvas-state" // 畫布完整狀態快照
)

// DrawingAction 代表一個繪圖操作，欄位依類型而異（聯合型別）
// start/draw/end 使用 X/Y/Tool/Color/BrushSize；shape 使用起迄座標；
// text 使用文字相關欄位；canvas-state 攜帶元素陣列。
// 一旦寫入歷史即不再變動，順序為插入順序。
type DrawingAction struct {
	Type       DrawingActionType `bson:"type" json:"type"`
	X          float64           `bson:"x,omitempty" json:"x,omitempty"`
	Y          float64           `bson:"y,omitempty" json:"y,omitempty"`
	Tool       string            `bson:"tool,omitempty" json:"tool,omitempty"`
	Color      string            `bson:"color,omitempty" json:"color,omitempty"`
	BrushSize  float64           `bson:"brushSize,omitempty" json:"brushSize,omitempty"`
	StartX     float64           `bson:"startX,omitempty" json:"startX,omitempty"`
	StartY     float64           `bson:"startY,omitempty" json:"startY,omitempty"`
	EndX       float64           `bson:"endX,omitempty" json:"endX,omitempty"`
	EndY       float64           `bson:"endY,omitempty" json:"endY,omitempty"`
	Shape      string            `bson:"shape,omitempty" json:"shape,omitempty"`
	Text       string            `bson:"text,omitempty" json:"text,omitempty"`
	FontSize   float64           `bson:"fontSize,omitempty" json:"fontSize,omitempty"`
	FontFamily string            `bson:"fontFamily,omitempty" json:"fontFamily,omitempty"`
	Opacity    float64           `bson:"opacity,omitempty" json:"opacity,omitempty"`
	Elements   json.RawMessage   `bson:"elements,omitempty" json:"elements,omitempty"`

	// 以下欄位由伺服器填入，客戶端傳來的值會被覆蓋
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	Username  string    `bson:"username,omitempty" json:"username,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ChatMessage 代表一則聊天訊息
type ChatMessage struct {
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	Username  string    `bson:"username" json:"username"`
	Message   string    `bson:"message" json:"message"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Collaborator 記錄曾加入工作區的使用者
type Collaborator struct {
	Username string    `bson:"username" json:"username"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Workspace 代表持久化層中的一個工作區文件，以 roomId 為鍵
type Workspace struct {
	RoomID         string          `bson:"roomId" json:"roomId"`
	Name           string          `bson:"name" json:"name"`
	Owner          string          `bson:"owner" json:"owner"`
	Collaborators  []Collaborator  `bson:"collaborators" json:"collaborators"`
	CanvasData     string          `bson:"canvasData" json:"canvasData"` // Base64 編碼的畫布資料
	DrawingHistory []DrawingAction `bson:"drawingHistory" json:"drawingHistory"`
	ChatHistory    []ChatMessage   `bson:"chatHistory" json:"chatHistory"`
	IsPublic       bool            `bson:"isPublic" json:"isPublic"`
	Settings       Settings        `bson:"settings" json:"settings"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Analytics 代表工作區的統計資訊
type Analytics struct {
	TotalDrawingActions int       `json:"totalDrawingActions"`
	TotalChatMessages   int       `json:"totalChatMessages"`
	CreatedAt           time.Time `json:"createdAt"`
	LastActivity        time.Time `json:"lastActivity"`
}
