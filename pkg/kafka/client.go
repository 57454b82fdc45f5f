// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"archetype-go/internal/config"
	"archetype-go/pkg/events"
	"archetype-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// messageWriter 抽象了 kafka.Writer，便于测试。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 把流水线事件发布到 Kafka，实现 events.Publisher。
type Producer struct {
	writer messageWriter
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1, // 逐条发送
		BatchTimeout: 5 * time.Millisecond,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Publish 以 run_id 作为 key 发送一条事件。
func (p *Producer) Publish(ctx context.Context, event events.PipelineEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pipeline event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// EventHandler 处理从主题中读到的一条事件。
type EventHandler interface {
	Handle(ctx context.Context, event events.PipelineEvent) error
}

// maxAttempts 是同一条消息的处理次数上限，用尽后提交 offset 跳过该消息。
const maxAttempts = 3

// retryBackoff 是两次重试之间的基础等待时间，按尝试次数线性增长。
var retryBackoff = 500 * time.Millisecond

// StartConsumer 启动一个 Kafka 消费者来处理流水线事件，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handler EventHandler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var event events.PipelineEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if err := handleWithRetry(ctx, handler, event); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("处理事件失败，已放弃: type=%s, run_id=%s, offset=%d, err=%v", event.Type, event.RunID, m.Offset, err)
		}
		commit(ctx, r, m)
	}
}

// handleWithRetry 在同一条消息上最多调用 handler maxAttempts 次，返回最后一次的错误。
func handleWithRetry(ctx context.Context, handler EventHandler, event events.PipelineEvent) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = handler.Handle(ctx, event); err == nil {
			return nil
		}
		log.Warnf("处理事件失败: type=%s, run_id=%s, attempt=%d, err=%v", event.Type, event.RunID, attempt, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
