package mongo

import (
	"Stagelink/internal/model"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// 远端查询字段：不假设远端支持 OR 查询，发收两路各订阅一条
const (
	FieldSender    = "sender"
	FieldRecipient = "recipient"
)

type MessageRepo interface {
	Append(ctx context.Context, msg *model.Message) (string, error)
	Watch(ctx context.Context, field string, identity string, onBatch func(batch []*model.Message)) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("messages"),
	}
}

// Append 写入出站消息并返回远端 ID
// 乐观发送已携带本地生成的 ID 时原样保留，回声依赖该 ID 去重
func (s *messageRepoImpl) Append(ctx context.Context, msg *model.Message) (string, error) {
	doc := &Message{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Text:      msg.Text,
		SentAt:    time.UnixMilli(msg.Timestamp),
		Profile:   msg.Profile,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Watch 订阅新增消息文档，按 field=identity 过滤
// 阻塞直到 ctx 取消（取消即退订），流中断时返回错误交由上层重试
func (s *messageRepoImpl) Watch(ctx context.Context, field string, identity string, onBatch func(batch []*model.Message)) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
			{Key: "fullDocument." + field, Value: identity},
		}}},
	}

	stream, err := s.col.Watch(ctx, pipeline)
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close(context.Background())
	}()

	for stream.Next(ctx) {
		batch := s.decodeBatch(stream)

		// 排干当前已缓冲的事件，合并为一批交付
		for stream.RemainingBatchLength() > 0 && stream.TryNext(ctx) {
			batch = append(batch, s.decodeBatch(stream)...)
		}

		if len(batch) > 0 {
			onBatch(batch)
		}
	}
	return stream.Err()
}

func (s *messageRepoImpl) decodeBatch(stream *mongo.ChangeStream) []*model.Message {
	var evt struct {
		FullDocument Message `bson:"fullDocument"`
	}
	if err := stream.Decode(&evt); err != nil {
		log.Error("decode change event error", "err", err)
		return nil
	}
	return []*model.Message{evt.FullDocument.ToModel()}
}
