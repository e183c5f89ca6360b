package mongo

import (
	"Chatify/internal/pkg/consts"
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByPair(ctx context.Context, userID, peerID uint64) ([]*Message, error)
	ListUndelivered(ctx context.Context, receiverID uint64) ([]*Message, error)
	MarkDelivered(ctx context.Context, receiverID uint64, ids []string, at time.Time) (int64, error)
	MarkViewed(ctx context.Context, receiverID uint64, ids []string, at time.Time) (int64, error)
	OpenOnce(ctx context.Context, id string, receiverID uint64, at time.Time) (*Message, error)
	SetSaved(ctx context.Context, id string, saved bool) (bool, error)
	SaveOnClose(ctx context.Context, id string, receiverID uint64) (bool, error)
	SetReaction(ctx context.Context, id string, userID uint64, emoji string) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteIfUnsaved(ctx context.Context, id string) (bool, error)
	DeleteIfSaved(ctx context.Context, id string) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int64) ([]*Message, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// Insert 将消息存入 MongoDB
func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetByID 精确查询
func (s *messageRepoImpl) GetByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByPair 拉取两人之间的全部消息，按发送时间升序
func (s *messageRepoImpl) ListByPair(ctx context.Context, userID, peerID uint64) ([]*Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userID, "receiver_id": peerID},
		bson.M{"sender_id": peerID, "receiver_id": userID},
	}}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// ListUndelivered 获取接收者所有未送达消息 (接收者上线时批量补投)
func (s *messageRepoImpl) ListUndelivered(ctx context.Context, receiverID uint64) ([]*Message, error) {
	cursor, err := s.col.Find(ctx, bson.M{"receiver_id": receiverID, "is_delivered": false})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkDelivered 批量标记送达，重复标记是无操作
func (s *messageRepoImpl) MarkDelivered(ctx context.Context, receiverID uint64, ids []string, at time.Time) (int64, error) {
	filter := bson.M{
		"_id":          bson.M{"$in": ids},
		"receiver_id":  receiverID,
		"is_delivered": false,
	}
	update := bson.M{
		"$set": bson.M{"is_delivered": true, "delivered_at": at},
		"$inc": bson.M{"revision": 1},
	}
	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkViewed 批量标记普通消息已读。阅后即焚消息不走这里，由 OpenOnce 处理
func (s *messageRepoImpl) MarkViewed(ctx context.Context, receiverID uint64, ids []string, at time.Time) (int64, error) {
	filter := bson.M{
		"_id":          bson.M{"$in": ids},
		"receiver_id":  receiverID,
		"is_viewed":    false,
		"is_view_once": false,
	}
	update := bson.M{
		"$set": bson.M{"is_viewed": true, "viewed_at": at},
		"$inc": bson.M{"revision": 1},
	}
	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// OpenOnce 接收方打开阅后即焚消息的原子计数
// 过滤条件挡住已达上限且未保存的消息；单文档更新保证并发打开不会双双越过上限。
// 命中后 view_count 自增，达到上限的那次同时置为已读。未命中返回 ErrNoDocuments，
// 由上层区分“消息不存在”与“次数耗尽”。
func (s *messageRepoImpl) OpenOnce(ctx context.Context, id string, receiverID uint64, at time.Time) (*Message, error) {
	filter := bson.M{
		"_id":          id,
		"receiver_id":  receiverID,
		"is_view_once": true,
		"$or": bson.A{
			bson.M{"is_saved": true},
			bson.M{"view_count": bson.M{"$lt": consts.SnapshotViewLimit}},
		},
	}

	newCount := bson.D{{Key: "$add", Value: bson.A{"$view_count", 1}}}
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "view_count", Value: newCount},
			{Key: "viewed_at", Value: at},
			{Key: "is_viewed", Value: bson.D{{Key: "$or", Value: bson.A{
				"$is_viewed",
				bson.D{{Key: "$gte", Value: bson.A{newCount, consts.SnapshotViewLimit}}},
			}}}},
			{Key: "revision", Value: bson.D{{Key: "$add", Value: bson.A{"$revision", 1}}}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetSaved 带状态前提的保存标记翻转，防止与清理任务双写
func (s *messageRepoImpl) SetSaved(ctx context.Context, id string, saved bool) (bool, error) {
	filter := bson.M{"_id": id, "is_saved": !saved}
	update := bson.M{
		"$set": bson.M{"is_saved": saved},
		"$inc": bson.M{"revision": 1},
	}
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SaveOnClose 接收方关闭快照时的隐式保存，只对阅后即焚消息生效
func (s *messageRepoImpl) SaveOnClose(ctx context.Context, id string, receiverID uint64) (bool, error) {
	filter := bson.M{"_id": id, "receiver_id": receiverID, "is_view_once": true, "is_saved": false}
	update := bson.M{
		"$set": bson.M{"is_saved": true, "is_viewed": true},
		"$inc": bson.M{"revision": 1},
	}
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetReaction 单用户单表情，后写覆盖
func (s *messageRepoImpl) SetReaction(ctx context.Context, id string, userID uint64, emoji string) error {
	field := "reactions." + strconv.FormatUint(userID, 10)
	update := bson.M{
		"$set": bson.M{field: emoji},
		"$inc": bson.M{"revision": 1},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete 无条件删除 (用户主动清除)
func (s *messageRepoImpl) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteIfUnsaved 清理任务专用：删除瞬间消息仍未保存才生效
func (s *messageRepoImpl) DeleteIfUnsaved(ctx context.Context, id string) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "is_saved": false})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteIfSaved 取消保存触发的硬删除：以当前保存态为前提
func (s *messageRepoImpl) DeleteIfSaved(ctx context.Context, id string) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "is_saved": true})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// FindExpired 扫描过期清理候选
func (s *messageRepoImpl) FindExpired(ctx context.Context, now time.Time, limit int64) ([]*Message, error) {
	filter := bson.M{
		"is_saved": false,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$lte": now}},
			bson.M{"is_view_once": true, "is_viewed": true},
		},
	}

	cursor, err := s.col.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
