package models

import "encoding/json"

// 即時通道上的事件名稱（雙向）
const (
	EventJoinRoom            = "join-room"
	EventLeaveRoom           = "leave-room"
	EventDraw                = "draw-event"
	EventChatMessage         = "chat-message"
	EventUserTyping          = "user-typing"
	EventGetChatHistory      = "get-chat-history"
	EventChatHistory         = "chat-history"
	EventCursorMove          = "cursor-move"
	EventCanvasUpdate        = "canvas-update"
	EventUpdateWorkspaceName = "update-workspace-name"
	EventWorkspaceNameUpdate = "workspace-name-updated"
	EventWebRTCOffer         = "webrtc-offer"
	EventWebRTCAnswer        = "webrtc-answer"
	EventWebRTCICECandidate  = "webrtc-ice-candidate"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventRoomState           = "room-state"
	EventUserListUpdate      = "user-list-update"
	EventJoinVideoCall       = "join-video-call"
	EventLeaveVideoCall      = "leave-video-call"
	EventUserJoinedVideo     = "user-joined-video"
	EventUserLeftVideo       = "user-left-video"
	EventUserActivity        = "user-activity"
	EventUserActivityUpdate  = "user-activity-update"
)

// Envelope 是即時通道上每個訊息的外層結構：事件名稱加任意 JSON 負載
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomPayload 是 join-room 事件的負載，Extra 收集未列出的透傳屬性
type JoinRoomPayload struct {
	RoomID      string                 `json:"roomId"`
	Username    string                 `json:"username"`
	CursorColor string                 `json:"cursorColor,omitempty"`
	Extra       map[string]interface{} `json:"-"`
}

// 已知欄位之外的屬性原樣保留在 Extra 中
func (p *JoinRoomPayload) UnmarshalJSON(data []byte) error {
	type alias JoinRoomPayload
	if err := json.Unmarshal(data, (*alias)(p)); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "roomId")
	delete(raw, "username")
	delete(raw, "cursorColor")
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// LeaveRoomPayload 是 leave-room 事件的負載
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// TypingPayload 是 user-typing 事件的負載（雙向共用）
type TypingPayload struct {
	RoomID   string `json:"roomId,omitempty"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// CursorPayload 是 cursor-move 事件的負載，出站時由伺服器補上使用者資訊
type CursorPayload struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	UserID   string  `json:"userId,omitempty"`
	Username string  `json:"username,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// CanvasUpdatePayload 是 canvas-update 事件的負載
type CanvasUpdatePayload struct {
	Elements json.RawMessage `json:"elements,omitempty"`
	UserID   string          `json:"userId,omitempty"`
}

// RenamePayload 是 update-workspace-name 事件的負載
type RenamePayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// NameUpdatedPayload 是 workspace-name-updated 事件的負載
type NameUpdatedPayload struct {
	Name string `json:"name"`
}

// ChatHistoryRequest 是 get-chat-history 事件的負載
type ChatHistoryRequest struct {
	RoomID string `json:"roomId"`
}

// SignalPayload 是 WebRTC 信令事件（offer/answer/candidate）的負載
// 入站時讀取 TargetID，出站時由伺服器補上 SenderID/SenderName
type SignalPayload struct {
	TargetID   string          `json:"targetId,omitempty"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
	SenderID   string          `json:"senderId,omitempty"`
	SenderName string          `json:"senderName,omitempty"`
}

// PresencePayload 是 user-joined / user-left / user-joined-video / user-left-video 的負載
type PresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// RoomStatePayload 是 room-state 事件的負載，回覆給剛加入的客戶端
type RoomStatePayload struct {
	RoomID        string    `json:"roomId"`
	Users         []*Member `json:"users"`
	WorkspaceName string    `json:"workspaceName"`
}

// ActivityPayload 是 user-activity / user-activity-update 的負載
type ActivityPayload struct {
	UserID   string `json:"userId,omitempty"`
	Activity string `json:"activity"`
}
