package util

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// 毫秒时间戳的量级分界：小于该值按秒处理
const millisecondThreshold = int64(1e12)

// NormalizeTimestamp 将异构时间表示归一化为毫秒时间戳
// 接受：整数秒/毫秒、浮点秒、RFC3339 字符串、{seconds,nanos} 包装结构、time.Time
// 下游一律使用归一化后的 int64，禁止直接比较原始表示
func NormalizeTimestamp(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("timestamp is nil")
	case time.Time:
		if t.IsZero() {
			return 0, fmt.Errorf("timestamp is zero time")
		}
		return t.UnixMilli(), nil
	case int64:
		return normalizeEpoch(t)
	case int:
		return normalizeEpoch(int64(t))
	case uint64:
		return normalizeEpoch(int64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("timestamp is not a finite number")
		}
		// JSON 数字统一走 float64，按秒带小数处理
		if t < float64(millisecondThreshold) {
			return int64(t * 1000), nil
		}
		return int64(t), nil
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UnixMilli(), nil
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli(), nil
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return normalizeEpoch(n)
		}
		return 0, fmt.Errorf("unparseable timestamp string: %q", t)
	case map[string]any:
		// 远端文档库的 {seconds, nanos} 包装
		secs, ok := toInt64(t["seconds"])
		if !ok {
			return 0, fmt.Errorf("timestamp wrapper missing seconds")
		}
		nanos, _ := toInt64(t["nanos"])
		return secs*1000 + nanos/int64(time.Millisecond), nil
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func normalizeEpoch(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("timestamp must be positive, got %d", n)
	}
	if n < millisecondThreshold {
		return n * 1000, nil
	}
	return n, nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}
