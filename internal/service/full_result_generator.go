package service

import (
	"context"
	"fmt"
	"strings"

	"archetype-go/internal/model"
	"archetype-go/pkg/llm"
)

// FullResultGenerator 由已持久化的 ShortResult 派生 FullResult。
// 它是无状态的：不读取原始回答，也不保存或缓存完整文本。
type FullResultGenerator interface {
	Generate(ctx context.Context, short *model.ShortResult) (model.FullResult, error)
}

type fullResultGenerator struct {
	generator llm.ArchetypeGenerator
}

// NewFullResultGenerator 创建一个新的 FullResultGenerator 实例。
func NewFullResultGenerator(generator llm.ArchetypeGenerator) FullResultGenerator {
	return &fullResultGenerator{generator: generator}
}

// Generate 只把 animal、element、gender_form、text 四个字段交给 Expand。
func (g *fullResultGenerator) Generate(ctx context.Context, short *model.ShortResult) (model.FullResult, error) {
	text, err := g.generator.Expand(ctx, llm.ShortFields{
		Animal:     short.Animal,
		Element:    short.Element,
		GenderForm: short.GenderForm,
		Text:       short.Text,
	})
	if err != nil {
		return model.FullResult{}, fmt.Errorf("%w: expand: %v", ErrGeneration, err)
	}
	if strings.TrimSpace(text) == "" {
		return model.FullResult{}, fmt.Errorf("%w: expand: empty text", ErrGeneration)
	}

	return model.FullResult{
		Animal:     short.Animal,
		Element:    short.Element,
		GenderForm: short.GenderForm,
		Text:       text,
	}, nil
}
