// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"time"

	"github.com/google/uuid"
)

// Run 对应 runs 表，记录一次问卷提交。
// ID 同时作为对外暴露的 result_id。创建后不再修改。
type Run struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(80);not null" json:"name"`
	Lang      string    `gorm:"type:varchar(5);not null" json:"lang"`
	Gender    string    `gorm:"type:varchar(20);not null;default:'unspecified'" json:"gender"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Run) TableName() string {
	return "runs"
}

// RunAnswer 对应 run_answers 表，与 Run 随同一事务写入，之后不再修改。
type RunAnswer struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      uuid.UUID `gorm:"type:char(36);not null;index" json:"runId"`
	QuestionID int       `gorm:"not null" json:"questionId"`
	AnswerText string    `gorm:"type:text;not null" json:"answer"`

	Run *Run `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (RunAnswer) TableName() string {
	return "run_answers"
}

// ShortResult 对应 short_results 表。run_id 即主键，保证与 Run 一对一。
type ShortResult struct {
	RunID      uuid.UUID `gorm:"type:char(36);primaryKey" json:"runId"`
	Animal     string    `gorm:"type:varchar(30);not null" json:"animal"`
	Element    string    `gorm:"type:varchar(20);not null" json:"element"`
	GenderForm string    `gorm:"type:varchar(20);not null" json:"genderForm"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Run *Run `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ShortResult) TableName() string {
	return "short_results"
}

// FullResult 是由 ShortResult 派生的完整解读，不落库。
type FullResult struct {
	Animal     string `json:"animal"`
	Element    string `json:"element"`
	GenderForm string `json:"genderForm"`
	Text       string `json:"text"`
}
