// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 流水线错误分类。调用方用 errors.Is 区分，handler 据此映射 HTTP 状态码。
var (
	// ErrValidation 输入不合法，不会触达存储层。
	ErrValidation = errors.New("validation error")
	// ErrNotFound 引用的 Run 不存在。
	ErrNotFound = errors.New("not found")
	// ErrIntegrity Run 存在但 ShortResult 缺失，说明此前 short 生成部分失败。
	ErrIntegrity = errors.New("integrity error")
	// ErrGeneration 外部文本生成失败。
	ErrGeneration = errors.New("generation error")
	// ErrPersistence 存储不可用或写入失败。
	ErrPersistence = errors.New("persistence error")
)
