// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"archetype-go/internal/model"
	"archetype-go/internal/service"
	"archetype-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler 负责 /analyze 与 /result 相关的 API 请求。
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler 创建一个新的 AnalysisHandler 实例。
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// AnalyzeRequest 是 /analyze/short 与 /analyze/full/legacy 的请求体。
type AnalyzeRequest struct {
	Name             string            `json:"name" binding:"required,max=80"`
	Lang             string            `json:"lang" binding:"required,oneof=ru en es pt"`
	Gender           string            `json:"gender" binding:"omitempty,oneof=male female unspecified"`
	Answers          []model.AnswerDTO `json:"answers"`
	LockedAnimal     string            `json:"lockedAnimal"`
	LockedElement    string            `json:"lockedElement"`
	LockedGenderForm string            `json:"lockedGenderForm"`
}

func (r AnalyzeRequest) toInput() service.AnalyzeInput {
	return service.AnalyzeInput{
		Name:             r.Name,
		Lang:             r.Lang,
		Gender:           r.Gender,
		Answers:          r.Answers,
		LockedAnimal:     r.LockedAnimal,
		LockedElement:    r.LockedElement,
		LockedGenderForm: r.LockedGenderForm,
	}
}

// FullRequest 是 /analyze/full 的请求体。
type FullRequest struct {
	ResultID string `json:"result_id" binding:"required"`
}

// AnalyzeShort 处理短结果生成请求。
func (h *AnalysisHandler) AnalyzeShort(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("AnalyzeShort: Invalid request payload, error: %v", err)
		badRequest(c, err)
		return
	}

	resp, err := h.analysisService.GenerateShort(c.Request.Context(), req.toInput())
	if err != nil {
		log.Warnf("AnalyzeShort: 生成失败, error: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeFull 依据 result_id 生成完整结果。
func (h *AnalysisHandler) AnalyzeFull(c *gin.Context) {
	var req FullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("AnalyzeFull: Invalid request payload, error: %v", err)
		badRequest(c, err)
		return
	}

	resp, err := h.analysisService.GenerateFull(c.Request.Context(), req.ResultID)
	if err != nil {
		log.Warnf("AnalyzeFull: result_id=%s, error: %v", req.ResultID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeFullLegacy 一次性生成完整结果，兼容旧客户端。
func (h *AnalysisHandler) AnalyzeFullLegacy(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("AnalyzeFullLegacy: Invalid request payload, error: %v", err)
		badRequest(c, err)
		return
	}

	resp, err := h.analysisService.GenerateFullLegacy(c.Request.Context(), req.toInput())
	if err != nil {
		log.Warnf("AnalyzeFullLegacy: 生成失败, error: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetShortResult 返回已保存的短结果。
func (h *AnalysisHandler) GetShortResult(c *gin.Context) {
	runID := c.Param("runId")
	resp, err := h.analysisService.GetShortResult(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": "无效的请求负载: " + err.Error(),
	})
}

// writeError 把服务层错误映射为 HTTP 状态码。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, "run not found"
	case errors.Is(err, service.ErrIntegrity):
		status, message = http.StatusConflict, "short_result missing"
	case errors.Is(err, service.ErrGeneration):
		status, message = http.StatusBadGateway, "generation failed"
	case errors.Is(err, service.ErrPersistence):
		log.Error("持久化失败", err)
		message = "storage unavailable"
	default:
		log.Error("未知错误", err)
	}
	c.JSON(status, gin.H{"code": status, "message": message})
}
