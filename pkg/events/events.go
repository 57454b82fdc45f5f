// Package events defines the pipeline events published to Kafka.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeRunCreated         = "run.created"
	TypeShortResultCreated = "short_result.created"
	TypeGenerationFailed   = "generation.failed"
)

// Pipeline stages reported in generation.failed events.
const (
	StageShort  = "short"
	StageFull   = "full"
	StageLegacy = "legacy"
)

// PipelineEvent is the JSON payload of every message on the pipeline topic.
// Messages are keyed by RunID.
type PipelineEvent struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage,omitempty"`
	Animal     string    `json:"animal,omitempty"`
	Element    string    `json:"element,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends pipeline events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event PipelineEvent) error
}

// NopPublisher drops every event; used when Kafka is not configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, PipelineEvent) error { return nil }
