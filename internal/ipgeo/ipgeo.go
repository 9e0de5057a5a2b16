// 包 ipgeo：按 IP 估算经纬度；客户端未提供定位时用于确定“当前所在区域”
package ipgeo

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"townmap/internal/logger"
	"townmap/internal/metrics"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

var (
	ErrDisabled = errors.New("ipgeo: database not configured")
	ErrBadIP    = errors.New("ipgeo: invalid ip")
)

// Result：IP 定位结果；AccuracyKm 为数据库给出的精度半径，未知时为 0
type Result struct {
	IP         string  `json:"ip"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Country    string  `json:"country,omitempty"`
	City       string  `json:"city,omitempty"`
	AccuracyKm uint16  `json:"accuracyKm,omitempty"`
}

// 通用 mmdb 记录中与位置相关的字段（非 GeoIP2 City 类型的库，如部分第三方导出）
type rawRecord struct {
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Resolver：只读 mmdb 查询器；City 类库走 geoip2，其余按通用字段解析
type Resolver struct {
	city *geoip2.Reader
	raw  *maxminddb.Reader
	lang string
}

// 文档注释：打开 mmdb 文件
// 背景：先以 maxminddb 读取元数据判断库类型；City 类库改用 geoip2 获得结构化结果。
// 约束：文件在进程生命周期内保持打开；lang 为空时取 zh-CN，缺失时回退 en。
func Open(path, lang string) (*Resolver, error) {
	raw, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipgeo open %s: %w", path, err)
	}
	if lang == "" {
		lang = "zh-CN"
	}
	meta := raw.Metadata
	r := &Resolver{lang: lang}
	if strings.Contains(meta.DatabaseType, "City") {
		_ = raw.Close()
		city, err := geoip2.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ipgeo open %s: %w", path, err)
		}
		r.city = city
	} else {
		r.raw = raw
	}
	logger.L().Info("geoip_open_ok", "path", path, "type", meta.DatabaseType, "build_epoch", meta.BuildEpoch, "nodes", meta.NodeCount)
	return r, nil
}

func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	if r.city != nil {
		return r.city.Close()
	}
	if r.raw != nil {
		return r.raw.Close()
	}
	return nil
}

// 文档注释：查询单个 IP
// 返回：found=false 表示库中无该地址或无坐标（如内网地址）；错误仅限未配置与非法 IP。
func (r *Resolver) Lookup(ip string) (Result, bool, error) {
	if r == nil || (r.city == nil && r.raw == nil) {
		metrics.GeoIPLookupsTotal.WithLabelValues("disabled").Inc()
		return Result{}, false, ErrDisabled
	}
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("bad_ip").Inc()
		return Result{}, false, fmt.Errorf("%w: %q", ErrBadIP, ip)
	}
	res := Result{IP: addr.String()}
	if r.city != nil {
		c, err := r.city.City(addr)
		if err != nil {
			return Result{}, false, err
		}
		res.Lat, res.Lon = c.Location.Latitude, c.Location.Longitude
		res.AccuracyKm = c.Location.AccuracyRadius
		res.Country = c.Country.IsoCode
		res.City = pickName(c.City.Names, r.lang)
	} else {
		var rec rawRecord
		if err := r.raw.Lookup(addr, &rec); err != nil {
			return Result{}, false, err
		}
		res.Lat, res.Lon = rec.Location.Latitude, rec.Location.Longitude
		res.Country = rec.Country.ISOCode
	}
	if res.Lat == 0 && res.Lon == 0 {
		metrics.GeoIPLookupsTotal.WithLabelValues("miss").Inc()
		logger.L().Debug("geoip_miss", "ip", res.IP)
		return res, false, nil
	}
	metrics.GeoIPLookupsTotal.WithLabelValues("hit").Inc()
	return res, true, nil
}

func pickName(names map[string]string, lang string) string {
	if v := names[lang]; v != "" {
		return v
	}
	return names["en"]
}
