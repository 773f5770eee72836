package repository

import (
	"context"

	"github.com/Arterning/national-chess/core/domain/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRecordRepository 对局存档仓储接口
type MatchRecordRepository interface {
	// SaveMatchRecord 保存对局存档
	SaveMatchRecord(ctx context.Context, record *entity.MatchRecord) error

	// FindMatchRecord 根据ID查找
	FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error)

	// FindMatchRecordsByUser 查找用户参与的对局（按开始时间倒序分页）
	FindMatchRecordsByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.MatchRecord, error)
}
