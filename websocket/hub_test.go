package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/piyushm89/realtime-workspace/config"
	"github.com/piyushm89/realtime-workspace/history"
	"github.com/piyushm89/realtime-workspace/mocks"
	"github.com/piyushm89/realtime-workspace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stubConn 是測試用的假連線，只記錄是否被關閉
type stubConn struct {
	mu     sync.Mutex
	closed bool
}

func (s *stubConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("stub") }
func (s *stubConn) WriteMessage(int, []byte) error    { return nil }
func (s *stubConn) SetReadLimit(int64)                {}
func (s *stubConn) SetReadDeadline(time.Time) error   { return nil }
func (s *stubConn) SetWriteDeadline(time.Time) error  { return nil }
func (s *stubConn) SetPongHandler(func(string) error) {}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type drawRecord struct {
	roomID string
	action models.DrawingAction
	keep   int
}

type chatRecord struct {
	roomID string
	msg    models.ChatMessage
	keep   int
}

type nameRecord struct {
	roomID string
	name   string
}

// hubFixture 組裝一個跑在背景的 Hub，持久化協作者以 gomock 替身注入，
// 寫入呼叫透過 channel 讓測試觀察
type hubFixture struct {
	hub   *Hub
	draws chan drawRecord
	chats chan chatRecord
	names chan nameRecord

	mu      sync.Mutex
	fetchWS *models.Workspace
}

func newHubFixture(t *testing.T, idleTimeout time.Duration) *hubFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	db := mocks.NewMockDurable(ctrl)

	f := &hubFixture{
		draws: make(chan drawRecord, 32),
		chats: make(chan chatRecord, 32),
		names: make(chan nameRecord, 32),
	}

	db.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string) (*models.Workspace, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.fetchWS, nil
		}).AnyTimes()
	db.EXPECT().PushDrawing(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, roomID string, action models.DrawingAction, keep int) error {
			f.draws <- drawRecord{roomID: roomID, action: action, keep: keep}
			return nil
		}).AnyTimes()
	db.EXPECT().PushChat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, roomID string, msg models.ChatMessage, keep int) error {
			f.chats <- chatRecord{roomID: roomID, msg: msg, keep: keep}
			return nil
		}).AnyTimes()
	db.EXPECT().SetName(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, roomID, name string) error {
			f.names <- nameRecord{roomID: roomID, name: name}
			return nil
		}).AnyTimes()
	db.EXPECT().SetSettings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{
		IdleTimeout:  idleTimeout,
		ReapInterval: time.Hour, // 測試中手動觸發回收
	}
	store := history.NewStore(db, history.Limits{
		DrawRetain: 1000,
		ChatRetain: 200,
		DrawReplay: 100,
		ChatReplay: 50,
	})

	f.hub = NewHub(cfg, store)
	go f.hub.Run()
	t.Cleanup(f.hub.Stop)
	return f
}

// setFetch 設定之後 Fetch 回傳的工作區文件
func (f *hubFixture) setFetch(ws *models.Workspace) {
	f.mu.Lock()
	f.fetchWS = ws
	f.mu.Unlock()
}

// connect 建立一條假連線並註冊到 Hub
func (f *hubFixture) connect(id string) (*Client, *stubConn) {
	conn := &stubConn{}
	c := &Client{ID: id, hub: f.hub, conn: conn, send: make(chan []byte, 64)}
	f.hub.Register(c)
	return c, conn
}

// join 讓連線加入房間並吃掉回覆的 room-state
func (f *hubFixture) join(t *testing.T, c *Client, roomID, username string) models.RoomStatePayload {
	t.Helper()
	f.hub.Inbound(c, models.EventJoinRoom, mustJSON(t, map[string]interface{}{
		"roomId":   roomID,
		"username": username,
	}))
	env := recvEvent(t, c)
	require.Equal(t, models.EventRoomState, env.Event, "加入房間後應該先收到 room-state")
	var state models.RoomStatePayload
	require.NoError(t, json.Unmarshal(env.Data, &state))
	return state
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// recvEvent 從連線的發送緩衝讀出下一個事件，逾時視為測試失敗
func recvEvent(t *testing.T, c *Client) models.Envelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env models.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		return env
	case <-time.After(time.Second):
		t.Fatalf("client %s 在一秒內沒有收到任何事件", c.ID)
		return models.Envelope{}
	}
}

// expectNoEvent 確認連線在短時間內沒有收到任何事件
func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("client %s 不應該收到事件，卻收到了: %s", c.ID, msg)
	case <-time.After(75 * time.Millisecond):
	}
}

func usernames(members []*models.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}

func TestJoinBroadcastAndRoomState(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	state := f.join(t, a, "abc", "Alice")
	assert.Equal(t, "abc", state.RoomID)
	assert.Equal(t, "Workspace abc", state.WorkspaceName, "新房間應該使用推導的預設名稱")
	assert.ElementsMatch(t, []string{"Alice"}, usernames(state.Users))

	b, _ := f.connect("conn-b")
	state = f.join(t, b, "abc", "Bob")
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, usernames(state.Users),
		"room-state 應該列出包含自己在內的所有成員")

	// 既有成員收到新成員的 user-joined 通知
	env := recvEvent(t, a)
	require.Equal(t, models.EventUserJoined, env.Event)
	var joined models.PresencePayload
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "conn-b", joined.UserID)
	assert.Equal(t, "Bob", joined.Username)

	// 註冊表的即時成員集合與實際加入者一致
	name, ids, ok := f.hub.Snapshot("abc")
	require.True(t, ok)
	assert.Equal(t, "Workspace abc", name)
	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, ids)
}

func TestDrawFanoutExcludesSender(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // 吃掉 Bob 的 user-joined

	f.hub.Inbound(a, models.EventDraw, mustJSON(t, map[string]interface{}{
		"type":  "start",
		"x":     10,
		"y":     20,
		"color": "#FF0000",
	}))

	// 同房間的其他成員收到蓋上伺服器欄位的繪圖事件
	env := recvEvent(t, b)
	require.Equal(t, models.EventDraw, env.Event)
	var action models.DrawingAction
	require.NoError(t, json.Unmarshal(env.Data, &action))
	assert.Equal(t, models.DrawStart, action.Type)
	assert.Equal(t, float64(10), action.X)
	assert.Equal(t, float64(20), action.Y)
	assert.Equal(t, "#FF0000", action.Color)
	assert.Equal(t, "conn-a", action.UserID)
	assert.Equal(t, "Alice", action.Username)
	assert.False(t, action.Timestamp.IsZero(), "時間戳必須由伺服器填入")

	// 接著是更新後的成員列表
	env = recvEvent(t, b)
	assert.Equal(t, models.EventUserListUpdate, env.Event)

	// 發送者自己不會收到回音
	expectNoEvent(t, a)

	// 操作進入持久化層，帶著保留上限
	select {
	case rec := <-f.draws:
		assert.Equal(t, "abc", rec.roomID)
		assert.Equal(t, float64(10), rec.action.X)
		assert.Equal(t, 1000, rec.keep)
	case <-time.After(time.Second):
		t.Fatal("繪圖操作沒有寫入持久化層")
	}
}

func TestChatEchoesToSender(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(a, models.EventChatMessage, mustJSON(t, map[string]interface{}{
		"message": "hello",
	}))

	// 聊天訊息廣播給整個房間，包含發送者自己
	for _, c := range []*Client{a, b} {
		env := recvEvent(t, c)
		require.Equal(t, models.EventChatMessage, env.Event)
		var msg models.ChatMessage
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "hello", msg.Message)
		assert.Equal(t, "Alice", msg.Username)
		assert.Equal(t, "conn-a", msg.UserID)
		assert.False(t, msg.Timestamp.IsZero())
	}

	select {
	case rec := <-f.chats:
		assert.Equal(t, "abc", rec.roomID)
		assert.Equal(t, "hello", rec.msg.Message)
		assert.Equal(t, 200, rec.keep)
	case <-time.After(time.Second):
		t.Fatal("聊天訊息沒有寫入持久化層")
	}
}

func TestTypingIndicatorIsEphemeral(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(a, models.EventUserTyping, mustJSON(t, map[string]interface{}{
		"isTyping": true,
	}))

	env := recvEvent(t, b)
	require.Equal(t, models.EventUserTyping, env.Event)
	var typing models.TypingPayload
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	assert.Equal(t, "Alice", typing.Username, "使用者名稱應該由伺服器填入")
	assert.True(t, typing.IsTyping)

	// 發送者不會收到回音，輸入狀態也不會持久化
	expectNoEvent(t, a)
	assert.Empty(t, f.chats)
	assert.Empty(t, f.draws)
}

func TestCursorMoveStampsUserInfo(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(a, models.EventCursorMove, mustJSON(t, map[string]interface{}{
		"x": 5, "y": 6,
	}))

	env := recvEvent(t, b)
	require.Equal(t, models.EventCursorMove, env.Event)
	var cursor models.CursorPayload
	require.NoError(t, json.Unmarshal(env.Data, &cursor))
	assert.Equal(t, float64(5), cursor.X)
	assert.Equal(t, "conn-a", cursor.UserID)
	assert.Equal(t, "Alice", cursor.Username)
	assert.Equal(t, "#000000", cursor.Color, "沒有指定游標顏色時使用預設值")

	expectNoEvent(t, a)
	assert.Empty(t, f.draws, "游標移動不應該持久化")
}

func TestCanvasUpdatePersistsNonEmptyState(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(a, models.EventCanvasUpdate, mustJSON(t, map[string]interface{}{
		"elements": []map[string]interface{}{{"id": "el-1", "type": "rectangle"}},
	}))

	env := recvEvent(t, b)
	require.Equal(t, models.EventCanvasUpdate, env.Event)

	select {
	case rec := <-f.draws:
		assert.Equal(t, models.DrawCanvasState, rec.action.Type, "非空的畫布狀態以 canvas-state 寫入歷史")
		assert.NotEmpty(t, rec.action.Elements)
	case <-time.After(time.Second):
		t.Fatal("畫布狀態沒有寫入持久化層")
	}

	// 空的元素陣列只廣播、不持久化
	f.hub.Inbound(a, models.EventCanvasUpdate, mustJSON(t, map[string]interface{}{
		"elements": []interface{}{},
	}))
	env = recvEvent(t, b)
	require.Equal(t, models.EventCanvasUpdate, env.Event)
	assert.Empty(t, f.draws)
}

func TestSignalingIsPointToPoint(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // Bob 的 user-joined
	c, _ := f.connect("conn-c")
	f.join(t, c, "abc", "Carol")
	recvEvent(t, a) // Carol 的 user-joined
	recvEvent(t, b)

	f.hub.Inbound(a, models.EventWebRTCOffer, mustJSON(t, map[string]interface{}{
		"targetId": "conn-c",
		"offer":    map[string]interface{}{"type": "offer", "sdp": "v=0"},
	}))

	// 只有目標連線收到，不會廣播到房間
	env := recvEvent(t, c)
	require.Equal(t, models.EventWebRTCOffer, env.Event)
	var signal models.SignalPayload
	require.NoError(t, json.Unmarshal(env.Data, &signal))
	assert.Equal(t, "conn-a", signal.SenderID)
	assert.Equal(t, "Alice", signal.SenderName)
	assert.NotEmpty(t, signal.Offer)
	expectNoEvent(t, b)

	// candidate 轉發只帶發送者 ID，payload 上完全沒有 senderName 欄位
	f.hub.Inbound(c, models.EventWebRTCICECandidate, mustJSON(t, map[string]interface{}{
		"targetId":  "conn-a",
		"candidate": map[string]interface{}{"candidate": "candidate:0"},
	}))
	env = recvEvent(t, a)
	require.Equal(t, models.EventWebRTCICECandidate, env.Event)
	assert.NotContains(t, string(env.Data), "senderName", "candidate 的線上格式不應該出現發送者名稱")
	var candidate models.SignalPayload
	require.NoError(t, json.Unmarshal(env.Data, &candidate))
	assert.Equal(t, "conn-c", candidate.SenderID)
	assert.Empty(t, candidate.SenderName)

	// 目標不存在或缺少目標時是靜默無操作
	f.hub.Inbound(a, models.EventWebRTCAnswer, mustJSON(t, map[string]interface{}{
		"targetId": "conn-ghost",
		"answer":   map[string]interface{}{"type": "answer"},
	}))
	f.hub.Inbound(a, models.EventWebRTCAnswer, mustJSON(t, map[string]interface{}{
		"answer": map[string]interface{}{"type": "answer"},
	}))
	expectNoEvent(t, b)
	expectNoEvent(t, c)
}

func TestUnknownSenderIsDropped(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")

	// 未加入房間的連線送來的事件被靜默丟棄
	ghost, _ := f.connect("conn-ghost")
	f.hub.Inbound(ghost, models.EventDraw, mustJSON(t, map[string]interface{}{
		"type": "start", "x": 1, "y": 2,
	}))
	f.hub.Inbound(ghost, models.EventChatMessage, mustJSON(t, map[string]interface{}{
		"message": "hi",
	}))

	expectNoEvent(t, a)
	expectNoEvent(t, ghost)
	assert.Empty(t, f.draws)
	assert.Empty(t, f.chats)

	// 之後正常加入仍然可用
	f.join(t, ghost, "abc", "Ghost")
	env := recvEvent(t, a)
	assert.Equal(t, models.EventUserJoined, env.Event)
}

func TestLeaveRoomEvictsEmptyRoom(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(b, models.EventLeaveRoom, mustJSON(t, map[string]interface{}{
		"roomId": "abc",
	}))

	env := recvEvent(t, a)
	require.Equal(t, models.EventUserLeft, env.Event)
	var left models.PresencePayload
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "conn-b", left.UserID)
	assert.Equal(t, "Bob", left.Username)

	env = recvEvent(t, a)
	require.Equal(t, models.EventUserListUpdate, env.Event)
	var list []*models.Member
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.ElementsMatch(t, []string{"Alice"}, usernames(list))

	_, ids, ok := f.hub.Snapshot("abc")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"conn-a"}, ids)

	// 最後一名成員離開後，房間從即時註冊表消失
	f.hub.Inbound(a, models.EventLeaveRoom, mustJSON(t, map[string]interface{}{
		"roomId": "abc",
	}))
	require.Eventually(t, func() bool {
		_, _, ok := f.hub.Snapshot("abc")
		return !ok
	}, time.Second, 10*time.Millisecond, "空房間應該從註冊表移除")

	// 重新加入會以預設名稱重建房間
	state := f.join(t, a, "abc", "Alice")
	assert.Equal(t, "Workspace abc", state.WorkspaceName)
}

func TestDisconnectCleanup(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	// transport 的斷線回調走 Unregister
	f.hub.Unregister(b)

	env := recvEvent(t, a)
	assert.Equal(t, models.EventUserLeft, env.Event)
	env = recvEvent(t, a)
	assert.Equal(t, models.EventUserListUpdate, env.Event)

	_, ids, ok := f.hub.Snapshot("abc")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"conn-a"}, ids)
}

func TestIdleReaperEvictsInactiveConnections(t *testing.T) {
	f := newHubFixture(t, 50*time.Millisecond)

	a, connA := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, connB := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	time.Sleep(120 * time.Millisecond)

	// Bob 在掃描前送出活動心跳，Alice 保持沉默
	f.hub.Inbound(b, models.EventUserActivity, mustJSON(t, map[string]interface{}{
		"activity": "viewing",
	}))
	recvEvent(t, a) // user-activity-update

	f.hub.do(func() { f.hub.sweepIdle() })

	require.Eventually(t, connA.isClosed, time.Second, 10*time.Millisecond,
		"閒置超過門檻的連線應該被強制關閉")
	assert.False(t, connB.isClosed(), "仍有活動的連線不應該被回收")

	// 連線關閉後 transport 觸發斷線回調，清理走一般路徑
	f.hub.Unregister(a)
	env := recvEvent(t, b)
	require.Equal(t, models.EventUserLeft, env.Event)
	var left models.PresencePayload
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "conn-a", left.UserID)
}

func TestRenameBroadcastsToWholeRoom(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")
	b, _ := f.connect("conn-b")
	f.join(t, b, "abc", "Bob")
	recvEvent(t, a) // user-joined

	f.hub.Inbound(a, models.EventUpdateWorkspaceName, mustJSON(t, map[string]interface{}{
		"roomId": "abc",
		"name":   "Design Sync",
	}))

	// 改名通知整個房間，包含發送者
	for _, c := range []*Client{a, b} {
		env := recvEvent(t, c)
		require.Equal(t, models.EventWorkspaceNameUpdate, env.Event)
		var updated models.NameUpdatedPayload
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		assert.Equal(t, "Design Sync", updated.Name)
	}

	select {
	case rec := <-f.names:
		assert.Equal(t, "abc", rec.roomID)
		assert.Equal(t, "Design Sync", rec.name)
	case <-time.After(time.Second):
		t.Fatal("新名稱沒有寫入持久化層")
	}

	name, _, ok := f.hub.Snapshot("abc")
	require.True(t, ok)
	assert.Equal(t, "Design Sync", name)
}

func TestChatHistoryReplayIsCapped(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	msgs := make([]models.ChatMessage, 60)
	for i := range msgs {
		msgs[i] = models.ChatMessage{Username: "u", Message: fmt.Sprintf("msg-%d", i)}
	}
	f.setFetch(&models.Workspace{RoomID: "abc", ChatHistory: msgs})

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")

	f.hub.Inbound(a, models.EventGetChatHistory, mustJSON(t, map[string]interface{}{
		"roomId": "abc",
	}))

	env := recvEvent(t, a)
	require.Equal(t, models.EventChatHistory, env.Event)
	var replay []models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.Len(t, replay, 50, "聊天回放不應該超過回放上限")
	assert.Equal(t, "msg-59", replay[49].Message, "回放保留的是最近的訊息")
}

func TestRoomNameHydratesFromDurableStore(t *testing.T) {
	f := newHubFixture(t, time.Hour)

	f.setFetch(&models.Workspace{RoomID: "abc", Name: "Saved Board"})

	a, _ := f.connect("conn-a")
	f.join(t, a, "abc", "Alice")

	// 持久化層保存的名稱非同步補進即時狀態並通知房間
	env := recvEvent(t, a)
	require.Equal(t, models.EventWorkspaceNameUpdate, env.Event)
	var updated models.NameUpdatedPayload
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Saved Board", updated.Name)

	require.Eventually(t, func() bool {
		name, _, ok := f.hub.Snapshot("abc")
		return ok && name == "Saved Board"
	}, time.Second, 10*time.Millisecond)
}
