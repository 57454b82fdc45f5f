package kafka

import (
	"context"
	"time"

	"archetype-go/pkg/events"
	"archetype-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// AuditHandler 记录流水线中的部分失败：generation.failed 事件意味着
// 对应的 Run 可能没有 ShortResult，运维需要据此定位。
type AuditHandler struct {
	rdb *redis.Client
}

// NewAuditHandler 创建审计处理器。rdb 可为 nil，此时只写日志。
func NewAuditHandler(rdb *redis.Client) *AuditHandler {
	return &AuditHandler{rdb: rdb}
}

func auditKey(runID string) string {
	return "audit:generation_failed:" + runID
}

// Handle 实现 EventHandler。
func (h *AuditHandler) Handle(ctx context.Context, event events.PipelineEvent) error {
	switch event.Type {
	case events.TypeGenerationFailed:
		var count int64 = 1
		if h.rdb != nil {
			n, err := h.rdb.Incr(ctx, auditKey(event.RunID)).Result()
			if err != nil {
				return err
			}
			_ = h.rdb.Expire(ctx, auditKey(event.RunID), 24*time.Hour).Err()
			count = n
		}
		log.Warnw("integrity.generation_failed",
			"run_id", event.RunID,
			"stage", event.Stage,
			"error", event.Error,
			"failures", count,
		)
	case events.TypeShortResultCreated:
		log.Infow("audit.short_result_created", "run_id", event.RunID, "animal", event.Animal, "element", event.Element)
	default:
		// run.created 等事件无需处理
	}
	return nil
}
