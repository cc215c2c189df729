package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"estate-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Pinger is any dependency that can report liveness. A nil Pinger is reported as disconnected.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// CollectResult is the /health/json payload.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapInMB int `json:"heapInUseMb"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime string      `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// CollectHealth gathers request counters from Redis and pings the database,
// Redis and any optional dependencies. Status is "ok" only when the database
// and Redis are both connected.
func CollectHealth(ctx context.Context, rdb *redis.Client, db Pinger, optional map[string]Pinger) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}

	result.Dependencies["database"] = ping(ctx, db)
	for name, p := range optional {
		result.Dependencies[name] = ping(ctx, p)
	}

	var redisPinger Pinger
	if rdb != nil {
		redisPinger = PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	redisStatus := ping(ctx, redisPinger)
	result.Dependencies["redis"] = redisStatus

	startTimeMs := time.Now().UnixMilli()
	result.Traffic = TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	if redisStatus.Status == "connected" {
		startTimeMs = readTraffic(ctx, rdb, &result.Traffic, startTimeMs)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapInMB: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if result.Dependencies["database"].Status == "connected" && redisStatus.Status == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// readTraffic fills t from the health counters and returns the recorded start
// time, initialising it on first use.
func readTraffic(ctx context.Context, rdb *redis.Client, t *TrafficInfo, now int64) int64 {
	vals, _ := rdb.MGet(ctx,
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
	).Result()
	get := func(i int) string {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				return s
			}
		}
		return ""
	}

	startTimeMs := now
	if s := get(4); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			startTimeMs = v
		}
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, now, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(get(0))
	t.FailedCount, _ = strconv.Atoi(get(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(get(2), 64)
	if count, _ := strconv.Atoi(get(3)); count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := get(5); s != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(s), &last) == nil {
			t.LastRequest = last
		}
	}
	return startTimeMs
}

func ping(ctx context.Context, p Pinger) DepStatus {
	if p == nil {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}
