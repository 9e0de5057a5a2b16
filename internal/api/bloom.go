package api

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	bloomBits   = 1 << 20
	bloomHashes = 4
	bloomTTL    = 2 * time.Hour
)

// 文档注释：计算布隆过滤器位置
// 背景：FNV64a 加索引扰动生成 k 个位置，用于 GetBit/SetBit。
// 约束：m 建议取 2 的幂；m、k 需结合 QPS 与窗口长度调参。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(h.Sum64() % uint64(m))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入）；false 表示已存在。
// 异常：rc 为 nil 时视为首次见到；Redis 出错时同样放行并返回错误。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
			break
		}
	}
	if seen {
		return false, nil
	}
	pipe = rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return true, err
}

// firstLookupThisHour：同一访客在同一小时内对同一 geohash 格的重复查询只计一次统计
func firstLookupThisHour(ctx context.Context, rc *redis.Client, visitor, cell string, now time.Time) bool {
	key := "bloom:lookup:" + now.UTC().Format("2006010215")
	ok, _ := bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(visitor+"|"+cell), bloomBits, bloomHashes), bloomTTL)
	return ok
}
