package database

import (
	"context"
	"log"
	"time"

	"github.com/piyushm89/realtime-workspace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const workspacesCollection = "workspaces"

// Mongo 封裝 MongoDB 連線，實作 history.Durable 介面
// 工作區文件以 roomId 為鍵，歷史陣列的截斷以 $push + $slice 在寫入時完成
type Mongo struct {
	client *mongo.Client
	dbName string
}

// Connect 建立並初始化 MongoDB 連線，同時確保 roomId 的唯一索引
func Connect(uri, name string) (*Mongo, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB successfully!")
	m := &Mongo{client: client, dbName: name}

	// 為 roomId 建立唯一索引
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.collection().Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, err
	}

	return m, nil
}

// Disconnect 關閉 MongoDB 連線
func (m *Mongo) Disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	} else {
		log.Println("Disconnected from MongoDB.")
	}
}

func (m *Mongo) collection() *mongo.Collection {
	return m.client.Database(m.dbName).Collection(workspacesCollection)
}

// Fetch 依 roomId 讀取工作區文件，不存在時回傳 (nil, nil)
func (m *Mongo) Fetch(ctx context.Context, roomID string) (*models.Workspace, error) {
	var ws models.Workspace
	err := m.collection().FindOne(ctx, bson.M{"roomId": roomID}).Decode(&ws)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Create 插入新的工作區文件
func (m *Mongo) Create(ctx context.Context, ws *models.Workspace) error {
	_, err := m.collection().InsertOne(ctx, ws)
	return err
}

// PushDrawing 追加一筆繪圖操作，$slice 只保留最近的 keep 筆
// 不做 upsert：工作區文件不存在時寫入是無操作
func (m *Mongo) PushDrawing(ctx context.Context, roomID string, action models.DrawingAction, keep int) error {
	update := bson.M{
		"$push": bson.M{
			"drawingHistory": bson.M{
				"$each":  bson.A{action},
				"$slice": -keep,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	_, err := m.collection().UpdateOne(ctx, bson.M{"roomId": roomID}, update)
	return err
}

// PushChat 追加一則聊天訊息，$slice 只保留最近的 keep 筆
func (m *Mongo) PushChat(ctx context.Context, roomID string, msg models.ChatMessage, keep int) error {
	update := bson.M{
		"$push": bson.M{
			"chatHistory": bson.M{
				"$each":  bson.A{msg},
				"$slice": -keep,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	_, err := m.collection().UpdateOne(ctx, bson.M{"roomId": roomID}, update)
	return err
}

// SetName 更新工作區名稱，文件不存在時以最小欄位 upsert
func (m *Mongo) SetName(ctx context.Context, roomID, name string) error {
	update := bson.M{
		"$set": bson.M{"name": name, "updatedAt": time.Now()},
		"$setOnInsert": bson.M{
			"owner":          "anonymous",
			"collaborators":  bson.A{},
			"canvasData":     "",
			"drawingHistory": bson.A{},
			"chatHistory":    bson.A{},
			"isPublic":       true,
			"settings":       models.DefaultSettings(),
			"createdAt":      time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.collection().UpdateOne(ctx, bson.M{"roomId": roomID}, update, opts)
	return err
}

// SetSettings 更新工作區的功能開關，文件不存在時以最小欄位 upsert
func (m *Mongo) SetSettings(ctx context.Context, roomID string, settings models.Settings) error {
	update := bson.M{
		"$set": bson.M{"settings": settings, "updatedAt": time.Now()},
		"$setOnInsert": bson.M{
			"name":           "Untitled Workspace",
			"owner":          "anonymous",
			"collaborators":  bson.A{},
			"canvasData":     "",
			"drawingHistory": bson.A{},
			"chatHistory":    bson.A{},
			"isPublic":       true,
			"createdAt":      time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.collection().UpdateOne(ctx, bson.M{"roomId": roomID}, update, opts)
	return err
}
