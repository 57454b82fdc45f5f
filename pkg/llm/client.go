// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"archetype-go/internal/config"
	"archetype-go/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
)

// ErrGenerationFailed 包装所有来自上游模型的失败：网络、超时、空响应、格式错误。
var ErrGenerationFailed = errors.New("llm generation failed")

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_llm_requests_total",
			Help: "Total number of requests to the LLM API.",
		},
		[]string{"model", "stage", "status"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archetype_llm_request_duration_seconds",
			Help:    "Histogram of LLM API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "stage"},
	)
	llmTotalTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_llm_tokens_total",
			Help: "Total tokens (prompt + completion) reported by the LLM API.",
		},
		[]string{"model", "stage"},
	)
)

// Message 表示一条角色消息
type Message struct {
	Role    string
	Content string
}

// CompletionRequest 描述一次非流式补全调用。
type CompletionRequest struct {
	Stage     string // classify / short / full，仅用于指标与日志
	Model     string
	Messages  []Message
	MaxTokens int
}

// Client defines the interface for an LLM client.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

// NewClient creates an OpenAI-compatible chat completion client.
func NewClient(cfg config.LLMConfig) Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
	}
}

// Complete 调用 chat completions 接口并返回去除首尾空白的文本。
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(c.cfg.Generation.Temperature),
	})
	duration := time.Since(start)
	llmRequestDuration.WithLabelValues(req.Model, req.Stage).Observe(duration.Seconds())

	if err != nil {
		llmRequestsTotal.WithLabelValues(req.Model, req.Stage, "error").Inc()
		log.Warnw("llm.request_failed", "model", req.Model, "stage", req.Stage, "latency", duration.String(), "error", err)
		return "", fmt.Errorf("%w: %s: %v", ErrGenerationFailed, req.Stage, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		llmRequestsTotal.WithLabelValues(req.Model, req.Stage, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: %s: empty response", ErrGenerationFailed, req.Stage)
	}

	llmRequestsTotal.WithLabelValues(req.Model, req.Stage, "success").Inc()
	llmTotalTokens.WithLabelValues(req.Model, req.Stage).Add(float64(resp.Usage.TotalTokens))
	log.Infow("llm.request_completed",
		"model", req.Model,
		"stage", req.Stage,
		"latency", duration.String(),
		"totalTokens", resp.Usage.TotalTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
