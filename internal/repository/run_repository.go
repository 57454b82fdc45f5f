// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"archetype-go/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunRepository 接口定义了 Run 及其回答的持久化操作。
// Run 与回答只写一次，之后不再修改或删除。
type RunRepository interface {
	CreateWithAnswers(ctx context.Context, run *model.Run, answers []model.RunAnswer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Run, error)
	ListAnswers(ctx context.Context, runID uuid.UUID) ([]model.RunAnswer, error)
}

// runRepository 是 RunRepository 接口的 GORM 实现。
type runRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建一个新的 RunRepository 实例。
func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

// CreateWithAnswers 在同一个事务中写入 Run 和它的全部回答。
func (r *runRepository) CreateWithAnswers(ctx context.Context, run *model.Run, answers []model.RunAnswer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(run).Error; err != nil {
			return err
		}
		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].RunID = run.ID
		}
		return tx.Create(&answers).Error
	})
}

// FindByID 根据 ID 查找 Run，不存在时返回 gorm.ErrRecordNotFound。
func (r *runRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	var run model.Run
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListAnswers 按 question_id 升序返回某个 Run 的回答。
func (r *runRepository) ListAnswers(ctx context.Context, runID uuid.UUID) ([]model.RunAnswer, error) {
	var answers []model.RunAnswer
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("question_id asc").Find(&answers).Error
	return answers, err
}
