// 包 overlay：区域叠加数值（如降雨概率）读写；数值由外部任务写入 Redis 哈希，字段为区域名
package overlay

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"townmap/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Source：单个 Redis 哈希上的叠加数值；rc 为 nil 时读取为空、写入报错
type Source struct {
	rc  *redis.Client
	key string
}

func New(rc *redis.Client, key string) *Source {
	return &Source{rc: rc, key: key}
}

func (s *Source) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

// 文档注释：读取全部叠加数值
// 背景：一次 HGETALL 取回整张哈希，区域数量在数百级，无需分页。
// 约束：未配置 Redis 时返回 nil, nil；无法解析为有限数值的字段被忽略。
func (s *Source) Values(ctx context.Context) (map[string]float64, error) {
	if s == nil || s.rc == nil {
		return nil, nil
	}
	raw, err := s.rc.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("overlay %s: %w", s.key, err)
	}
	vals := ParseValues(raw)
	if len(vals) != len(raw) {
		logger.L().Debug("overlay_skip_invalid", "key", s.key, "fields", len(raw), "kept", len(vals))
	}
	return vals, nil
}

// Set：写入单个区域数值
func (s *Source) Set(ctx context.Context, region string, v float64) error {
	if s == nil || s.rc == nil {
		return fmt.Errorf("overlay %s: redis not configured", s.Key())
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("overlay %s: value for %q is not finite", s.key, region)
	}
	return s.rc.HSet(ctx, s.key, region, strconv.FormatFloat(v, 'f', -1, 64)).Err()
}

// Delete：删除单个区域数值
func (s *Source) Delete(ctx context.Context, region string) error {
	if s == nil || s.rc == nil {
		return fmt.Errorf("overlay %s: redis not configured", s.Key())
	}
	return s.rc.HDel(ctx, s.key, region).Err()
}

// ParseValues：字符串哈希 → 数值表，丢弃非法项
func ParseValues(raw map[string]string) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[k] = f
	}
	return out
}
