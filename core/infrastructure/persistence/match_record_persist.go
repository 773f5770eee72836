package persistence

import (
	"context"
	"errors"

	"github.com/Arterning/national-chess/common/database"
	"github.com/Arterning/national-chess/common/log"
	"github.com/Arterning/national-chess/common/utils"
	"github.com/Arterning/national-chess/core/domain/entity"
	"github.com/Arterning/national-chess/core/domain/repository"
	"github.com/Arterning/national-chess/core/infrastructure/message/transfer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const matchRecordCollection = "match_records"

type MatchRecordRepository struct {
	mongo *database.MongoManager
}

func NewMatchRecordRepository(mongo *database.MongoManager) repository.MatchRecordRepository {
	return &MatchRecordRepository{mongo: mongo}
}

// SaveMatchRecord 保存对局存档
func (r *MatchRecordRepository) SaveMatchRecord(ctx context.Context, record *entity.MatchRecord) error {
	collection := r.mongo.Db.Collection(matchRecordCollection)

	_, err := collection.InsertOne(ctx, matchRecordToBson(record))
	if err != nil {
		log.Error("保存对局存档失败: %v", err)
		return transfer.ErrMongodb
	}
	return nil
}

// FindMatchRecord 根据ID查找对局存档
func (r *MatchRecordRepository) FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error) {
	collection := r.mongo.Db.Collection(matchRecordCollection)

	var doc bson.M
	err := collection.FindOne(ctx, bson.M{"_id": recordID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrMatchRecordNotFound
		}
		log.Error("查询对局存档失败: %v", err)
		return nil, transfer.ErrMongodb
	}
	return docToMatchRecord(doc), nil
}

// FindMatchRecordsByUser 查找用户参与的对局（分页）
func (r *MatchRecordRepository) FindMatchRecordsByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.MatchRecord, error) {
	collection := r.mongo.Db.Collection(matchRecordCollection)

	filter := bson.M{"players.user_id": userID}
	opts := options.Find().
		SetSort(bson.M{"start_time": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		log.Error("查询用户对局存档失败: %v", err)
		return nil, transfer.ErrMongodb
	}
	defer cursor.Close(ctx)

	result := make([]*entity.MatchRecord, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		result = append(result, docToMatchRecord(doc))
	}
	return result, cursor.Err()
}

// ==================== 转换辅助方法 ====================

func matchRecordToBson(record *entity.MatchRecord) bson.M {
	players := make([]bson.M, len(record.Players))
	for i, p := range record.Players {
		players[i] = bson.M{
			"user_id":    p.UserID,
			"seat_index": p.SeatIndex,
			"team":       p.Team,
			"nickname":   p.Nickname,
			"survived":   p.Survived,
		}
	}
	seats := record.WinnerSeats
	if seats == nil {
		seats = []int{}
	}
	return bson.M{
		"_id":          record.ID,
		"room_id":      record.RoomID,
		"variant":      record.Variant,
		"players":      players,
		"winner_team":  record.WinnerTeam,
		"winner_seats": seats,
		"move_count":   record.MoveCount,
		"start_time":   record.StartTime,
		"end_time":     record.EndTime,
		"duration":     record.Duration,
		"status":       record.Status,
		"created_at":   record.CreatedAt,
	}
}

func docToMatchRecord(doc bson.M) *entity.MatchRecord {
	var players []entity.PlayerInfo
	if playersDoc, ok := doc["players"].(bson.A); ok {
		players = make([]entity.PlayerInfo, 0, len(playersDoc))
		for _, p := range playersDoc {
			pMap, ok := p.(bson.M)
			if !ok {
				continue
			}
			survived, _ := pMap["survived"].(bool)
			players = append(players, entity.PlayerInfo{
				UserID:    utils.ToString(pMap["user_id"]),
				SeatIndex: utils.ToInt(pMap["seat_index"]),
				Team:      utils.ToInt(pMap["team"]),
				Nickname:  utils.ToString(pMap["nickname"]),
				Survived:  survived,
			})
		}
	}

	id, _ := doc["_id"].(primitive.ObjectID)
	return &entity.MatchRecord{
		ID:          id,
		RoomID:      utils.ToString(doc["room_id"]),
		Variant:     utils.ToString(doc["variant"]),
		Players:     players,
		WinnerTeam:  utils.ToInt(doc["winner_team"]),
		WinnerSeats: utils.ToIntSlice(doc["winner_seats"]),
		MoveCount:   utils.ToInt(doc["move_count"]),
		StartTime:   utils.ToTime(doc["start_time"]),
		EndTime:     utils.ToTime(doc["end_time"]),
		Duration:    utils.ToInt(doc["duration"]),
		Status:      utils.ToString(doc["status"]),
		CreatedAt:   utils.ToTime(doc["created_at"]),
	}
}
