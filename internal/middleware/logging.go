// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"archetype-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 超过该长度的请求/响应体在日志中截断。
const maxLoggedBody = 2048

// redactedFields 是 /analyze 请求体中不写入日志的字段。
var redactedFields = []string{"name", "answers"}

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，记录每个请求的状态码、延迟和请求/响应体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 读取并重新缓存请求体，以便后续处理函数可以正常读取
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", requestLogBody(c.Request.URL.Path, requestBody),
			"responseBody", truncate(blw.body.Bytes()),
		)
	}
}

func truncate(b []byte) string {
	if len(b) <= maxLoggedBody {
		return string(b)
	}
	return string(b[:maxLoggedBody]) + "...(truncated)"
}

// requestLogBody 对 /analyze 请求隐藏姓名与问卷回答。
func requestLogBody(path string, body []byte) string {
	if !strings.HasPrefix(path, "/analyze") || len(body) == 0 {
		return truncate(body)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "[unparsed body omitted]"
	}
	for _, key := range redactedFields {
		if _, ok := fields[key]; ok {
			fields[key] = json.RawMessage(`"[redacted]"`)
		}
	}
	redacted, err := json.Marshal(fields)
	if err != nil {
		return "[unparsed body omitted]"
	}
	return truncate(redacted)
}
