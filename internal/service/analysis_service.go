package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"archetype-go/internal/model"
	"archetype-go/internal/repository"
	"archetype-go/pkg/archetype"
	"archetype-go/pkg/events"
	"archetype-go/pkg/llm"
	"archetype-go/pkg/log"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const maxNameLength = 80

var pipelineOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "archetype_pipeline_operations_total",
		Help: "Pipeline operations by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// AnalyzeInput 是 short 与 legacy 接口共用的输入。
// Locked* 三项同时给出时跳过分类，只给出部分时忽略。
type AnalyzeInput struct {
	Name             string
	Lang             string
	Gender           string
	Answers          []model.AnswerDTO
	LockedAnimal     string
	LockedElement    string
	LockedGenderForm string
}

// AnalysisService 定义了 short → full 流水线的全部操作。
type AnalysisService interface {
	GenerateShort(ctx context.Context, in AnalyzeInput) (*model.ShortResponseDTO, error)
	GenerateFull(ctx context.Context, resultID string) (*model.FullResponseDTO, error)
	GenerateFullLegacy(ctx context.Context, in AnalyzeInput) (*model.FullResponseDTO, error)
	GetShortResult(ctx context.Context, resultID string) (*model.ShortResponseDTO, error)
}

type analysisService struct {
	runRepo   repository.RunRepository
	shortRepo repository.ShortResultRepository
	generator llm.ArchetypeGenerator
	fullGen   FullResultGenerator
	publisher events.Publisher
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。publisher 为 nil 时不发布事件。
func NewAnalysisService(
	runRepo repository.RunRepository,
	shortRepo repository.ShortResultRepository,
	generator llm.ArchetypeGenerator,
	publisher events.Publisher,
) AnalysisService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &analysisService{
		runRepo:   runRepo,
		shortRepo: shortRepo,
		generator: generator,
		fullGen:   NewFullResultGenerator(generator),
		publisher: publisher,
	}
}

// GenerateShort 创建 Run 并保存回答，生成短结果并持久化。
// 生成失败时 Run 与回答保留、ShortResult 不创建，之后 GenerateFull 会报告 ErrIntegrity。
func (s *analysisService) GenerateShort(ctx context.Context, in AnalyzeInput) (resp *model.ShortResponseDTO, err error) {
	defer func() { observe("short", err) }()

	req, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	// 1-2. 同一事务写入 Run 与回答
	run, err := s.createRun(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. 外部生成
	short, err := s.summarize(ctx, run.ID, req, events.StageShort)
	if err != nil {
		return nil, err
	}

	// 4. 仅在生成成功后写入 ShortResult
	sr := &model.ShortResult{
		RunID:      run.ID,
		Animal:     short.Animal,
		Element:    short.Element,
		GenderForm: short.GenderForm,
		Text:       short.Text,
	}
	if err := s.shortRepo.Create(ctx, sr); err != nil {
		s.publish(ctx, events.PipelineEvent{Type: events.TypeGenerationFailed, RunID: run.ID.String(), Stage: events.StageShort, Error: err.Error()})
		return nil, fmt.Errorf("%w: save short result: %v", ErrPersistence, err)
	}
	log.Infow("short_result.saved", "run_id", run.ID, "animal", sr.Animal, "element", sr.Element, "gender_form", sr.GenderForm)
	s.publish(ctx, events.PipelineEvent{Type: events.TypeShortResultCreated, RunID: run.ID.String(), Stage: events.StageShort, Animal: sr.Animal, Element: sr.Element})

	out := model.NewShortResponse(sr)
	return &out, nil
}

// GenerateFull 只依据已持久化的 ShortResult 生成完整结果，不修改存储。
func (s *analysisService) GenerateFull(ctx context.Context, resultID string) (resp *model.FullResponseDTO, err error) {
	defer func() { observe("full", err) }()

	sr, err := s.loadShortResult(ctx, resultID)
	if err != nil {
		return nil, err
	}

	full, err := s.fullGen.Generate(ctx, sr)
	if err != nil {
		s.publish(ctx, events.PipelineEvent{Type: events.TypeGenerationFailed, RunID: sr.RunID.String(), Stage: events.StageFull, Error: err.Error()})
		return nil, err
	}
	log.Infow("full.generated", "run_id", sr.RunID, "animal", full.Animal, "element", full.Element)

	out := model.NewFullResponse(sr.RunID.String(), full)
	return &out, nil
}

// GenerateFullLegacy 在一次调用中完成 short 与 full 生成，不依赖已存在的 ShortResult。
// 持久化只是副作用：写库失败记录日志，不影响返回。
func (s *analysisService) GenerateFullLegacy(ctx context.Context, in AnalyzeInput) (resp *model.FullResponseDTO, err error) {
	defer func() { observe("full_legacy", err) }()

	req, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	persisted := true
	run, err := s.createRun(ctx, req)
	if err != nil {
		log.Warnw("legacy.run_not_persisted", "error", err)
		persisted = false
		run = &model.Run{ID: uuid.New()}
	}

	short, err := s.summarize(ctx, run.ID, req, events.StageLegacy)
	if err != nil {
		return nil, err
	}

	sr := &model.ShortResult{
		RunID:      run.ID,
		Animal:     short.Animal,
		Element:    short.Element,
		GenderForm: short.GenderForm,
		Text:       short.Text,
	}
	if persisted {
		if err := s.shortRepo.Create(ctx, sr); err != nil {
			log.Warnw("legacy.short_result_not_persisted", "run_id", run.ID, "error", err)
		} else {
			log.Infow("short_result.saved", "run_id", run.ID, "animal", sr.Animal, "element", sr.Element, "gender_form", sr.GenderForm)
			s.publish(ctx, events.PipelineEvent{Type: events.TypeShortResultCreated, RunID: run.ID.String(), Stage: events.StageLegacy, Animal: sr.Animal, Element: sr.Element})
		}
	}

	full, err := s.fullGen.Generate(ctx, sr)
	if err != nil {
		s.publish(ctx, events.PipelineEvent{Type: events.TypeGenerationFailed, RunID: run.ID.String(), Stage: events.StageLegacy, Error: err.Error()})
		return nil, err
	}
	log.Infow("full.generated", "run_id", run.ID, "animal", full.Animal, "element", full.Element, "legacy", true)

	out := model.NewFullResponse(run.ID.String(), full)
	return &out, nil
}

// GetShortResult 读取已持久化的短结果。
func (s *analysisService) GetShortResult(ctx context.Context, resultID string) (resp *model.ShortResponseDTO, err error) {
	defer func() { observe("get_short", err) }()

	sr, err := s.loadShortResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	out := model.NewShortResponse(sr)
	return &out, nil
}

// loadShortResult 依次校验 result_id、Run 与 ShortResult，区分 NotFound 与 Integrity。
func (s *analysisService) loadShortResult(ctx context.Context, resultID string) (*model.ShortResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(resultID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid result_id format", ErrValidation)
	}

	if _, err := s.runRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: run", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: load run: %v", ErrPersistence, err)
	}

	sr, err := s.shortRepo.FindByRunID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnw("integrity.short_result_missing", "run_id", id)
			return nil, fmt.Errorf("%w: short_result missing", ErrIntegrity)
		}
		return nil, fmt.Errorf("%w: load short result: %v", ErrPersistence, err)
	}
	return sr, nil
}

func (s *analysisService) createRun(ctx context.Context, req validatedInput) (*model.Run, error) {
	run := &model.Run{
		ID:     uuid.New(),
		Name:   req.Name,
		Lang:   req.Lang,
		Gender: req.Gender,
	}
	answers := make([]model.RunAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, model.RunAnswer{QuestionID: a.QuestionID, AnswerText: a.Answer})
	}

	if err := s.runRepo.CreateWithAnswers(ctx, run, answers); err != nil {
		return nil, fmt.Errorf("%w: create run: %v", ErrPersistence, err)
	}
	log.Infow("run.created", "run_id", run.ID, "lang", run.Lang, "answers", len(answers))
	s.publish(ctx, events.PipelineEvent{Type: events.TypeRunCreated, RunID: run.ID.String()})
	return run, nil
}

func (s *analysisService) summarize(ctx context.Context, runID uuid.UUID, req validatedInput, stage string) (llm.ShortFields, error) {
	answers := make([]llm.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, llm.Answer{QuestionID: a.QuestionID, Text: a.Answer})
	}

	short, err := s.generator.ClassifyAndSummarize(ctx, llm.SummaryRequest{
		Name:    req.Name,
		Lang:    req.Lang,
		Gender:  req.Gender,
		Answers: answers,
		Locked:  req.Locked,
	})
	if err == nil && strings.TrimSpace(short.Text) == "" {
		err = errors.New("empty short text")
	}
	if err != nil {
		log.Warnw("short.generation_failed", "run_id", runID, "stage", stage, "error", err)
		s.publish(ctx, events.PipelineEvent{Type: events.TypeGenerationFailed, RunID: runID.String(), Stage: stage, Error: err.Error()})
		return llm.ShortFields{}, fmt.Errorf("%w: classify and summarize: %v", ErrGeneration, err)
	}
	return short, nil
}

// publish 发布事件失败只记录日志，不影响请求。
func (s *analysisService) publish(ctx context.Context, event events.PipelineEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warnw("event.publish_failed", "type", event.Type, "run_id", event.RunID, "error", err)
	}
}

type validatedInput struct {
	Name    string
	Lang    string
	Gender  string
	Answers []model.AnswerDTO
	Locked  *llm.LockedCodes
}

// validateInput 校验并规范化输入，失败时返回 ErrValidation。
func validateInput(in AnalyzeInput) (validatedInput, error) {
	out := validatedInput{
		Name:    strings.TrimSpace(in.Name),
		Lang:    in.Lang,
		Gender:  in.Gender,
		Answers: in.Answers,
	}
	if out.Name == "" {
		return out, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(out.Name) > maxNameLength {
		return out, fmt.Errorf("%w: name is longer than %d characters", ErrValidation, maxNameLength)
	}
	if !archetype.IsLang(out.Lang) {
		return out, fmt.Errorf("%w: unsupported lang %q", ErrValidation, in.Lang)
	}
	if out.Gender == "" {
		out.Gender = archetype.GenderUnspecified
	}
	if !archetype.IsGender(out.Gender) {
		return out, fmt.Errorf("%w: unsupported gender %q", ErrValidation, in.Gender)
	}

	if in.LockedAnimal != "" && in.LockedElement != "" && in.LockedGenderForm != "" {
		if !archetype.IsAnimal(in.LockedAnimal) {
			return out, fmt.Errorf("%w: invalid lockedAnimal", ErrValidation)
		}
		element, ok := archetype.NormalizeElement(in.LockedElement, out.Lang)
		if !ok {
			return out, fmt.Errorf("%w: invalid lockedElement", ErrValidation)
		}
		if !archetype.IsGender(in.LockedGenderForm) {
			return out, fmt.Errorf("%w: invalid lockedGenderForm", ErrValidation)
		}
		out.Locked = &llm.LockedCodes{Animal: in.LockedAnimal, Element: element, GenderForm: in.LockedGenderForm}
	}

	if len(out.Answers) == 0 && out.Locked == nil {
		return out, fmt.Errorf("%w: answers must not be empty", ErrValidation)
	}
	return out, nil
}

// observe 按错误类别统计每次操作的结果。
func observe(operation string, err error) {
	pipelineOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}
