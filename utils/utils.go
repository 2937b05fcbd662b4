package utils

import "strings"

// DefaultWorkspaceName 依房間 ID 推導預設的工作區名稱
// 例如 "a1b2c3d4-..." 會得到 "Workspace a1b2c3d4"
func DefaultWorkspaceName(roomID string) string {
	id := strings.TrimSpace(roomID)
	if id == "" {
		return "Untitled Workspace"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "Workspace " + id
}
