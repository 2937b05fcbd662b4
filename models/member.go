package models

import (
	"encoding/json"
	"time"
)

// Member 代表一條連線在房間內的在線記錄，以連線 ID 為鍵
// 由 Hub 的調度迴圈獨佔持有，連線中斷或閒置回收時銷毀
type Member struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	RoomID       string    `json:"roomId"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActivity time.Time `json:"lastActivity"`
	IsDrawing    bool      `json:"isDrawing"`
	CursorColor  string    `json:"cursorColor,omitempty"`

	// Extra 保存客戶端加入時附帶的其他屬性（如 guest 旗標），原樣透傳
	Extra map[string]interface{} `json:"-"`
}

// MarshalJSON 將 Extra 中的屬性攤平到輸出物件中，核心欄位優先
func (m *Member) MarshalJSON() ([]byte, error) {
	type alias Member // 避免遞迴呼叫 MarshalJSON
	core, err := json.Marshal((*alias)(m))
	if err != nil {
		return nil, err
	}

	if len(m.Extra) == 0 {
		return core, nil
	}

	merged := make(map[string]interface{}, len(m.Extra)+8)
	for k, v := range m.Extra {
		merged[k] = v
	}
	// 核心欄位覆蓋同名的透傳屬性
	var coreMap map[string]interface{}
	if err := json.Unmarshal(core, &coreMap); err != nil {
		return nil, err
	}
	for k, v := range coreMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Room 代表房間在記憶體中的即時狀態：名稱、成員集合與活動時間
// 第一次加入時建立，最後一名成員離開時從註冊表移除（持久化歷史不受影響）
type Room struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastActivity time.Time
	Members      map[string]bool // 成員的連線 ID 集合
}
