// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archetype-go/internal/config"
	"archetype-go/internal/handler"
	"archetype-go/internal/middleware"
	"archetype-go/internal/repository"
	"archetype-go/internal/service"
	"archetype-go/pkg/database"
	"archetype-go/pkg/events"
	"archetype-go/pkg/kafka"
	"archetype-go/pkg/llm"
	"archetype-go/pkg/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitDB(cfg.Database)
	database.InitRedis(cfg.Redis)

	// 4. 初始化 Repository
	runRepo := repository.NewRunRepository(database.DB)
	shortRepo := repository.NewShortResultRepository(database.DB, database.RDB, cfg.Redis.ShortResultTTL)

	// 5. 事件发布：未配置 Kafka 时丢弃事件
	var publisher events.Publisher = events.NopPublisher{}
	var producer *kafka.Producer
	if cfg.Kafka.Brokers != "" {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	}

	// 6. 初始化 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	generator := llm.NewArchetypeGenerator(llmClient, cfg.LLM)
	analysisService := service.NewAnalysisService(runRepo, shortRepo, generator, publisher)

	// 7. 启动后台 Kafka 审计消费者
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.Kafka.Brokers != "" && cfg.Kafka.ConsumeEvents {
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, kafka.NewAuditHandler(database.RDB))
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := setupRouter(cfg, analysisService)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	stopConsumer()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("关闭 Kafka producer 失败", err)
		}
	}
	log.Info("服务已优雅关闭")
}

// setupRouter 注册中间件与全部路由。
func setupRouter(cfg config.Config, analysisService service.AnalysisService) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.Default(), middleware.Metrics())

	analysisHandler := handler.NewAnalysisHandler(analysisService)
	healthHandler := handler.NewHealthHandler(func(timeout time.Duration) error {
		return database.Ping(database.DB, timeout)
	})

	analyze := r.Group("/analyze")
	analyze.Use(middleware.RateLimit(database.RDB, cfg.RateLimit.RequestsPerMinute))
	{
		analyze.POST("/short", analysisHandler.AnalyzeShort)
		analyze.POST("/full", analysisHandler.AnalyzeFull)
		analyze.POST("/full/legacy", analysisHandler.AnalyzeFullLegacy)
	}

	r.GET("/result/short/:runId", analysisHandler.GetShortResult)
	r.GET("/health/db", healthHandler.DB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
