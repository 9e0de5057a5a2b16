package revgeo

import (
	"container/list"
	"sync"
	"time"
)

// 文档注释：本地 LRU 缓存（精确坐标为键）
// 背景：定位页面会反复上报相同坐标，缓存命中结果（含未命中）以跳过线性扫描；TTL 可调。
// 约束：容量 <= 0 时禁用；值为查询结果快照，行政区数据只读，缓存无需随数据失效。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type lookup struct {
	m     Match
	found bool
}

type entry struct {
	k   string
	v   lookup
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(k string) (lookup, bool) {
	if c == nil || c.cap <= 0 {
		return lookup{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return lookup{}, false
	}
	it := e.Value.(entry)
	if c.ttl > 0 && time.Now().After(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, k)
		return lookup{}, false
	}
	c.lst.MoveToFront(e)
	return it.v, true
}

func (c *LRU) Set(k string, v lookup) {
	if c == nil || c.cap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry{k: k, v: v, exp: time.Now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
