package repository

import (
	"context"
	"encoding/json"
	"time"

	"archetype-go/internal/model"
	"archetype-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShortResultRepository 定义了 ShortResult 的持久化操作。
// 每个 Run 至多一条，只插入不更新。
type ShortResultRepository interface {
	Create(ctx context.Context, result *model.ShortResult) error
	FindByRunID(ctx context.Context, runID uuid.UUID) (*model.ShortResult, error)
}

// shortResultRepository 是 GORM 实现，可选地以 Redis 作为读缓存。
// ShortResult 不可变，所以缓存无需失效；缓存只保存已经落库的行。
type shortResultRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	ttl         time.Duration
}

// NewShortResultRepository 创建一个新的 ShortResultRepository 实例。
// redisClient 为 nil 时直接读数据库。
func NewShortResultRepository(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) ShortResultRepository {
	return &shortResultRepository{db: db, redisClient: redisClient, ttl: ttl}
}

func shortResultCacheKey(runID uuid.UUID) string {
	return "short_result:" + runID.String()
}

// Create 插入一条 ShortResult。同一个 run_id 的第二次插入会被主键约束拒绝。
func (r *shortResultRepository) Create(ctx context.Context, result *model.ShortResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return err
	}
	r.cache(ctx, result)
	return nil
}

// FindByRunID 先查缓存，未命中或 Redis 出错时回退到数据库。
// 缓存命中时仍确认数据库中行存在；行已被删除时清掉缓存并返回 gorm.ErrRecordNotFound。
func (r *shortResultRepository) FindByRunID(ctx context.Context, runID uuid.UUID) (*model.ShortResult, error) {
	if cached := r.cached(ctx, runID); cached != nil {
		exists, err := r.exists(ctx, runID)
		if err != nil {
			return nil, err
		}
		if exists {
			return cached, nil
		}
		r.evict(ctx, runID)
		return nil, gorm.ErrRecordNotFound
	}

	var result model.ShortResult
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&result).Error; err != nil {
		return nil, err
	}
	r.cache(ctx, &result)
	return &result, nil
}

func (r *shortResultRepository) cached(ctx context.Context, runID uuid.UUID) *model.ShortResult {
	if r.redisClient == nil {
		return nil
	}
	data, err := r.redisClient.Get(ctx, shortResultCacheKey(runID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("读取 short_result 缓存失败: run_id=%s, err=%v", runID, err)
		}
		return nil
	}
	var result model.ShortResult
	if err := json.Unmarshal(data, &result); err != nil || result.RunID != runID {
		return nil
	}
	return &result
}

func (r *shortResultRepository) cache(ctx context.Context, result *model.ShortResult) {
	if r.redisClient == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, shortResultCacheKey(result.RunID), data, r.ttl).Err(); err != nil {
		// 缓存写失败不影响主流程
		log.Warnf("写入 short_result 缓存失败: run_id=%s, err=%v", result.RunID, err)
	}
}

func (r *shortResultRepository) exists(ctx context.Context, runID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ShortResult{}).Where("run_id = ?", runID).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *shortResultRepository) evict(ctx context.Context, runID uuid.UUID) {
	if err := r.redisClient.Del(ctx, shortResultCacheKey(runID)).Err(); err != nil {
		log.Warnf("删除 short_result 缓存失败: run_id=%s, err=%v", runID, err)
	}
}
