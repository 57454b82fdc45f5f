package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"archetype-go/internal/model"
	"archetype-go/internal/repository"
	"archetype-go/internal/service"
	"archetype-go/internal/testutil"
	"archetype-go/pkg/archetype"
	"archetype-go/pkg/events"
	"archetype-go/pkg/llm"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) ClassifyAndSummarize(ctx context.Context, req llm.SummaryRequest) (llm.ShortFields, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(llm.ShortFields), args.Error(1)
}

func (m *mockGenerator) Expand(ctx context.Context, short llm.ShortFields) (string, error) {
	args := m.Called(ctx, short)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PipelineEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.PipelineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingRunRepo 模拟存储不可用。
type failingRunRepo struct{}

func (failingRunRepo) CreateWithAnswers(context.Context, *model.Run, []model.RunAnswer) error {
	return errors.New("connection refused")
}

func (failingRunRepo) FindByID(context.Context, uuid.UUID) (*model.Run, error) {
	return nil, errors.New("connection refused")
}

func (failingRunRepo) ListAnswers(context.Context, uuid.UUID) ([]model.RunAnswer, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	db        *gorm.DB
	runs      repository.RunRepository
	shorts    repository.ShortResultRepository
	gen       *mockGenerator
	publisher *recordingPublisher
	svc       service.AnalysisService
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:        db,
		runs:      repository.NewRunRepository(db),
		shorts:    repository.NewShortResultRepository(db, nil, 0),
		gen:       new(mockGenerator),
		publisher: &recordingPublisher{},
	}
	f.svc = service.NewAnalysisService(f.runs, f.shorts, f.gen, f.publisher)
	return f
}

var wolfShort = llm.ShortFields{
	Animal:     "Wolf",
	Element:    archetype.ElementFire,
	GenderForm: archetype.GenderMale,
	Text:       "Ты ведёшь за собой стаю.",
}

func validInput() service.AnalyzeInput {
	return service.AnalyzeInput{
		Name:   "Алексей",
		Lang:   archetype.LangRU,
		Gender: archetype.GenderMale,
		Answers: []model.AnswerDTO{
			{QuestionID: 2, Answer: "Лес"},
			{QuestionID: 1, Answer: "Ночь"},
		},
	}
}

func TestGenerateShort(t *testing.T) {
	ctx := context.Background()

	t.Run("persists run, answers and short result", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.MatchedBy(func(req llm.SummaryRequest) bool {
			return req.Name == "Алексей" && req.Lang == "ru" && len(req.Answers) == 2 && req.Locked == nil
		})).Return(wolfShort, nil).Once()

		resp, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "short", resp.Type)
		assert.Equal(t, resp.ResultID, resp.Result.RunID)
		assert.Equal(t, "Wolf", resp.Result.Animal)
		assert.Equal(t, wolfShort.Text, resp.Result.Text)

		id := uuid.MustParse(resp.ResultID)
		run, err := f.runs.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Алексей", run.Name)

		answers, err := f.runs.ListAnswers(ctx, id)
		require.NoError(t, err)
		require.Len(t, answers, 2)
		assert.Equal(t, 1, answers[0].QuestionID)

		sr, err := f.shorts.FindByRunID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wolfShort.Element, sr.Element)

		assert.Equal(t, []string{events.TypeRunCreated, events.TypeShortResultCreated}, f.publisher.types())
		f.gen.AssertExpectations(t)
	})

	t.Run("each call creates a new run", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Twice()

		a, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)
		b, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)
		assert.NotEqual(t, a.ResultID, b.ResultID)
	})

	t.Run("generation failure leaves run without short result", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).
			Return(llm.ShortFields{}, llm.ErrGenerationFailed).Once()

		resp, err := f.svc.GenerateShort(ctx, validInput())
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, service.ErrGeneration)

		var runs []model.Run
		require.NoError(t, f.db.Find(&runs).Error)
		require.Len(t, runs, 1)

		var count int64
		require.NoError(t, f.db.Model(&model.ShortResult{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Contains(t, f.publisher.types(), events.TypeGenerationFailed)

		// 部分失败之后 full 报告完整性错误
		_, err = f.svc.GenerateFull(ctx, runs[0].ID.String())
		assert.ErrorIs(t, err, service.ErrIntegrity)
		f.gen.AssertNotCalled(t, "Expand", mock.Anything, mock.Anything)
	})

	t.Run("empty text is a generation error", func(t *testing.T) {
		f := newFixture(t)
		empty := wolfShort
		empty.Text = "  "
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(empty, nil).Once()

		_, err := f.svc.GenerateShort(ctx, validInput())
		assert.ErrorIs(t, err, service.ErrGeneration)
	})

	t.Run("locked archetype is passed through", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.LockedAnimal = "Owl"
		in.LockedElement = "Water"
		in.LockedGenderForm = archetype.GenderFemale
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.MatchedBy(func(req llm.SummaryRequest) bool {
			return req.Locked != nil && req.Locked.Animal == "Owl" &&
				req.Locked.Element == archetype.ElementWater && req.Locked.GenderForm == archetype.GenderFemale
		})).Return(wolfShort, nil).Once()

		_, err := f.svc.GenerateShort(ctx, in)
		require.NoError(t, err)
		f.gen.AssertExpectations(t)
	})

	t.Run("persistence failure", func(t *testing.T) {
		gen := new(mockGenerator)
		svc := service.NewAnalysisService(failingRunRepo{}, nil, gen, nil)

		_, err := svc.GenerateShort(ctx, validInput())
		assert.ErrorIs(t, err, service.ErrPersistence)
		gen.AssertNotCalled(t, "ClassifyAndSummarize", mock.Anything, mock.Anything)
	})
}

func TestGenerateShortValidation(t *testing.T) {
	cases := map[string]func(in *service.AnalyzeInput){
		"empty name":         func(in *service.AnalyzeInput) { in.Name = "   " },
		"long name":          func(in *service.AnalyzeInput) { in.Name = strings.Repeat("я", 81) },
		"unsupported lang":   func(in *service.AnalyzeInput) { in.Lang = "de" },
		"unsupported gender": func(in *service.AnalyzeInput) { in.Gender = "other" },
		"no answers":         func(in *service.AnalyzeInput) { in.Answers = nil },
		"bad locked animal": func(in *service.AnalyzeInput) {
			in.LockedAnimal, in.LockedElement, in.LockedGenderForm = "dragon", archetype.ElementAir, archetype.GenderMale
		},
		"bad locked element": func(in *service.AnalyzeInput) {
			in.LockedAnimal, in.LockedElement, in.LockedGenderForm = "Wolf", "Metal", archetype.GenderMale
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			mutate(&in)

			_, err := f.svc.GenerateShort(context.Background(), in)
			assert.ErrorIs(t, err, service.ErrValidation)

			var count int64
			require.NoError(t, f.db.Model(&model.Run{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestGenerateFull(t *testing.T) {
	ctx := context.Background()

	t.Run("expands persisted short result", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()
		f.gen.On("Expand", mock.Anything, wolfShort).Return("Полный текст.", nil).Twice()

		short, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			full, err := f.svc.GenerateFull(ctx, short.ResultID)
			require.NoError(t, err)
			assert.Equal(t, "full", full.Type)
			assert.Equal(t, short.ResultID, full.ResultID)
			assert.Equal(t, model.FullResult{
				Animal:     "Wolf",
				Element:    archetype.ElementFire,
				GenderForm: archetype.GenderMale,
				Text:       "Полный текст.",
			}, full.Result)
		}
		f.gen.AssertExpectations(t)
	})

	t.Run("identical short fields give identical expand input", func(t *testing.T) {
		f := newFixture(t)
		var inputs []llm.ShortFields
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil)
		f.gen.On("Expand", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			inputs = append(inputs, args.Get(1).(llm.ShortFields))
		}).Return("x", nil)

		first := validInput()
		second := validInput()
		second.Name = "Мария"
		second.Answers = []model.AnswerDTO{{QuestionID: 7, Answer: "Море"}}

		for _, in := range []service.AnalyzeInput{first, second} {
			short, err := f.svc.GenerateShort(ctx, in)
			require.NoError(t, err)
			_, err = f.svc.GenerateFull(ctx, short.ResultID)
			require.NoError(t, err)
		}
		require.Len(t, inputs, 2)
		assert.Equal(t, inputs[0], inputs[1])
	})

	t.Run("unknown run is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GenerateFull(ctx, uuid.NewString())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("malformed id is a validation error", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GenerateFull(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("run without short result is an integrity error", func(t *testing.T) {
		f := newFixture(t)
		run := &model.Run{ID: uuid.New(), Name: "Ира", Lang: "ru", Gender: "female"}
		require.NoError(t, f.runs.CreateWithAnswers(ctx, run, nil))

		_, err := f.svc.GenerateFull(ctx, run.ID.String())
		assert.ErrorIs(t, err, service.ErrIntegrity)
	})

	t.Run("cached short result does not hide a deleted row", func(t *testing.T) {
		f := newFixture(t)
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		f.shorts = repository.NewShortResultRepository(f.db, rdb, time.Hour)
		f.svc = service.NewAnalysisService(f.runs, f.shorts, f.gen, f.publisher)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()

		short, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)
		require.True(t, mr.Exists("short_result:"+short.ResultID))

		require.NoError(t, f.db.Exec("DELETE FROM short_results").Error)

		_, err = f.svc.GenerateFull(ctx, short.ResultID)
		assert.ErrorIs(t, err, service.ErrIntegrity)
		_, err = f.svc.GetShortResult(ctx, short.ResultID)
		assert.ErrorIs(t, err, service.ErrIntegrity)
		f.gen.AssertNotCalled(t, "Expand", mock.Anything, mock.Anything)
	})

	t.Run("expand failure does not touch storage", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()
		f.gen.On("Expand", mock.Anything, mock.Anything).Return("", llm.ErrGenerationFailed).Once()

		short, err := f.svc.GenerateShort(ctx, validInput())
		require.NoError(t, err)

		_, err = f.svc.GenerateFull(ctx, short.ResultID)
		assert.ErrorIs(t, err, service.ErrGeneration)

		got, err := f.svc.GetShortResult(ctx, short.ResultID)
		require.NoError(t, err)
		assert.Equal(t, *short, *got)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := service.NewAnalysisService(failingRunRepo{}, nil, new(mockGenerator), nil)
		_, err := svc.GenerateFull(ctx, uuid.NewString())
		assert.ErrorIs(t, err, service.ErrPersistence)
	})
}

func TestGenerateFullLegacy(t *testing.T) {
	ctx := context.Background()

	t.Run("generates without prior short result", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()
		f.gen.On("Expand", mock.Anything, wolfShort).Return("Полный текст.", nil).Once()

		full, err := f.svc.GenerateFullLegacy(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "full", full.Type)
		assert.Equal(t, "Wolf", full.Result.Animal)
		assert.Equal(t, "Полный текст.", full.Result.Text)

		// 持久化的短结果可被 full 再次使用
		sr, err := f.shorts.FindByRunID(ctx, uuid.MustParse(full.ResultID))
		require.NoError(t, err)
		assert.Equal(t, wolfShort.Text, sr.Text)
	})

	t.Run("storage failure does not fail the request", func(t *testing.T) {
		gen := new(mockGenerator)
		gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()
		gen.On("Expand", mock.Anything, wolfShort).Return("Полный текст.", nil).Once()
		svc := service.NewAnalysisService(failingRunRepo{}, nil, gen, nil)

		full, err := svc.GenerateFullLegacy(ctx, validInput())
		require.NoError(t, err)
		assert.NotEmpty(t, full.ResultID)
		assert.Equal(t, "Полный текст.", full.Result.Text)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.Lang = "fr"
		_, err := f.svc.GenerateFullLegacy(ctx, in)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("generation failure", func(t *testing.T) {
		f := newFixture(t)
		f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).
			Return(llm.ShortFields{}, llm.ErrGenerationFailed).Once()

		_, err := f.svc.GenerateFullLegacy(ctx, validInput())
		assert.ErrorIs(t, err, service.ErrGeneration)
	})
}

func TestGetShortResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gen.On("ClassifyAndSummarize", mock.Anything, mock.Anything).Return(wolfShort, nil).Once()

	short, err := f.svc.GenerateShort(ctx, validInput())
	require.NoError(t, err)

	got, err := f.svc.GetShortResult(ctx, short.ResultID)
	require.NoError(t, err)
	assert.Equal(t, short.Result, got.Result)

	_, err = f.svc.GetShortResult(ctx, uuid.NewString())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
