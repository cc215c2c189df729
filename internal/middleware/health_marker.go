package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request health counters, read back by the health service.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

// ErrorLogSize caps the number of entries kept under KeyErrorLog.
const ErrorLogSize = 50

// ErrorEntry is one line of the 5xx error log.
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Method  string    `json:"method"`
	Path    string    `json:"path"`
	Status  int       `json:"status"`
	TraceID string    `json:"traceId"`
}

// HealthMarker records request stats in Redis (skip /, /health*, favicon).
// Responses with status >= 500 are also pushed onto the error log.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		b, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})
		ctx := context.Background()
		rdb.Set(ctx, KeyLastReq, b, 0)
		rdb.Incr(ctx, KeyReqTotal)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		rdb.Incr(ctx, KeyResCount)
		rdb.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			rdb.Incr(ctx, KeyReqErrors)
			entry, _ := json.Marshal(ErrorEntry{Time: time.Now().UTC(), Method: c.Method(), Path: path, Status: status, TraceID: GetTraceID(c)})
			rdb.LPush(ctx, KeyErrorLog, entry)
			rdb.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
		}
		return err
	}
}
