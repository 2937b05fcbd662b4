package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/piyushm89/realtime-workspace/history"
	"github.com/piyushm89/realtime-workspace/models"

	"github.com/gorilla/mux"
)

// WorkspaceHandler 提供工作區的 REST API
type WorkspaceHandler struct {
	store *history.Store
}

// NewWorkspaceHandler 創建一個 WorkspaceHandler
func NewWorkspaceHandler(store *history.Store) *WorkspaceHandler {
	return &WorkspaceHandler{store: store}
}

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	}); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

func sendJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// Health 健康檢查
func (h *WorkspaceHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{
		"status":    "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetWorkspace 處理獲取工作區的請求，第一次存取時自動建立
// 歷史記錄已由 Store 套用回放上限
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	ws, err := h.store.Get(r.Context(), roomID)
	if err != nil {
		log.Printf("Error getting workspace %s: %v", roomID, err)
		sendJSONError(w, "Server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"workspace": map[string]interface{}{
			"roomId":         ws.RoomID,
			"name":           ws.Name,
			"settings":       ws.Settings,
			"canvasData":     ws.CanvasData,
			"drawingHistory": ws.DrawingHistory,
			"chatHistory":    ws.ChatHistory,
		},
	})
}

// CreateWorkspaceRequest 定義創建工作區的請求體
type CreateWorkspaceRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// CreateWorkspace 處理創建工作區的請求，房間 ID 由伺服器產生
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ws, err := h.store.Create(r.Context(), req.Name, req.Owner)
	if err != nil {
		log.Printf("Error creating workspace: %v", err)
		sendJSONError(w, "Server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"workspace": map[string]interface{}{
			"roomId":   ws.RoomID,
			"name":     ws.Name,
			"settings": ws.Settings,
		},
	})
}

// UpdateNameRequest 定義更新工作區名稱的請求體
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// UpdateName 處理更新工作區名稱的請求，空白名稱回傳 400
func (h *WorkspaceHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req UpdateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		sendJSONError(w, "Workspace name is required", http.StatusBadRequest)
		return
	}

	if err := h.store.Rename(r.Context(), roomID, name); err != nil {
		log.Printf("Error updating workspace name for %s: %v", roomID, err)
		sendJSONError(w, "Failed to update workspace name", http.StatusInternalServerError)
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Workspace name updated successfully",
	})
}

// UpdateSettingsRequest 定義更新工作區設定的請求體
type UpdateSettingsRequest struct {
	Settings models.Settings `json:"settings"`
}

// UpdateSettings 處理更新工作區設定的請求
func (h *WorkspaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateSettings(r.Context(), roomID, req.Settings); err != nil {
		log.Printf("Error updating workspace settings for %s: %v", roomID, err)
		sendJSONError(w, "Failed to update workspace settings", http.StatusInternalServerError)
		return
	}

	sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Workspace settings updated successfully",
	})
}

// GetAnalytics 處理獲取工作區統計的請求，工作區不存在時回傳 404
func (h *WorkspaceHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	analytics, err := h.store.Analytics(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			sendJSONError(w, "Workspace not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting workspace analytics for %s: %v", roomID, err)
		sendJSONError(w, "Server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, map[string]interface{}{
		"success":   true,
		"analytics": analytics,
	})
}
