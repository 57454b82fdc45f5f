package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"archetype-go/internal/config"
	"archetype-go/pkg/archetype"

	openai "github.com/sashabaranov/go-openai"
)

// Answer 是送给模型的一条问卷回答。
type Answer struct {
	QuestionID int
	Text       string
}

// LockedCodes 为客户端锁定的原型，设置后跳过分类。
type LockedCodes struct {
	Animal     string
	Element    string
	GenderForm string
}

// SummaryRequest 是 ClassifyAndSummarize 的输入。
type SummaryRequest struct {
	Name    string
	Lang    string
	Gender  string
	Answers []Answer
	Locked  *LockedCodes
}

// ShortFields 是 short 阶段的产物，也是 full 阶段唯一的输入。
type ShortFields struct {
	Animal     string
	Element    string
	GenderForm string
	Text       string
}

// ArchetypeGenerator 是流水线依赖的外部文本生成能力。
// 两个方法的失败都包装 ErrGenerationFailed，不会返回空结果。
type ArchetypeGenerator interface {
	ClassifyAndSummarize(ctx context.Context, req SummaryRequest) (ShortFields, error)
	Expand(ctx context.Context, short ShortFields) (string, error)
}

type archetypeGenerator struct {
	client Client
	cfg    config.LLMConfig
}

// NewArchetypeGenerator 基于 Client 创建 ArchetypeGenerator。
func NewArchetypeGenerator(client Client, cfg config.LLMConfig) ArchetypeGenerator {
	return &archetypeGenerator{client: client, cfg: cfg}
}

// ClassifyAndSummarize 先分类得到原型（除非已锁定），再生成短文本。
func (g *archetypeGenerator) ClassifyAndSummarize(ctx context.Context, req SummaryRequest) (ShortFields, error) {
	var codes LockedCodes
	if req.Locked != nil {
		codes = *req.Locked
	} else {
		c, err := g.classify(ctx, req)
		if err != nil {
			return ShortFields{}, err
		}
		codes = c
	}

	text, err := g.client.Complete(ctx, CompletionRequest{
		Stage: "short",
		Model: g.cfg.ShortModel,
		Messages: []Message{
			{Role: openai.ChatMessageRoleSystem, Content: shortSystemPrompt(req.Lang)},
			{Role: openai.ChatMessageRoleUser, Content: shortUserPrompt(req, codes.Animal, codes.Element, codes.GenderForm)},
		},
		MaxTokens: g.cfg.Generation.ShortTextMaxTokens,
	})
	if err != nil {
		return ShortFields{}, err
	}

	return ShortFields{
		Animal:     codes.Animal,
		Element:    codes.Element,
		GenderForm: codes.GenderForm,
		Text:       text,
	}, nil
}

// Expand 仅依据 short 字段生成完整文本。
func (g *archetypeGenerator) Expand(ctx context.Context, short ShortFields) (string, error) {
	return g.client.Complete(ctx, CompletionRequest{
		Stage: "full",
		Model: g.cfg.FullModel,
		Messages: []Message{
			{Role: openai.ChatMessageRoleSystem, Content: fullSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: fullUserPrompt(short)},
		},
		MaxTokens: g.cfg.Generation.FullTextMaxTokens,
	})
}

func (g *archetypeGenerator) classify(ctx context.Context, req SummaryRequest) (LockedCodes, error) {
	raw, err := g.client.Complete(ctx, CompletionRequest{
		Stage: "classify",
		Model: g.cfg.ShortModel,
		Messages: []Message{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt(req.Lang)},
			{Role: openai.ChatMessageRoleUser, Content: classifyUserPrompt(req)},
		},
		MaxTokens: g.cfg.Generation.ClassifyMaxTokens,
	})
	if err != nil {
		return LockedCodes{}, err
	}
	return parseClassification(raw)
}

type classification struct {
	Animal     string `json:"animal"`
	Element    string `json:"element"`
	GenderForm string `json:"genderForm"`
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// parseClassification 解析模型输出的 JSON（允许前后夹杂文本），并严格校验取值。
func parseClassification(raw string) (LockedCodes, error) {
	var c classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		match := jsonObjectPattern.FindString(raw)
		if match == "" {
			return LockedCodes{}, fmt.Errorf("%w: classify: JSON not found in model output", ErrGenerationFailed)
		}
		if err := json.Unmarshal([]byte(match), &c); err != nil {
			return LockedCodes{}, fmt.Errorf("%w: classify: malformed JSON: %v", ErrGenerationFailed, err)
		}
	}

	if !archetype.IsAnimal(c.Animal) {
		return LockedCodes{}, fmt.Errorf("%w: classify: invalid animal %q", ErrGenerationFailed, c.Animal)
	}
	if !archetype.IsElement(c.Element) {
		return LockedCodes{}, fmt.Errorf("%w: classify: invalid element %q", ErrGenerationFailed, c.Element)
	}
	return LockedCodes{
		Animal:     c.Animal,
		Element:    c.Element,
		GenderForm: archetype.NormalizeGender(c.GenderForm),
	}, nil
}
