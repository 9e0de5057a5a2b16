package revgeo

import "github.com/paulmach/orb"

// 文档注释：geohash 编码（base32）
// 背景：查询统计按访客与所在格去重；精度 9 约 5m。
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

func geohash(pt orb.Point, precision int) string {
	if precision <= 0 {
		precision = 9
	}
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0
	out := make([]byte, 0, precision)
	bit, ch := 0, 0
	even := true
	for len(out) < precision {
		if even {
			mid := (lonLo + lonHi) / 2
			if pt[0] >= mid {
				ch |= 1 << (4 - bit)
				lonLo = mid
			} else {
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if pt[1] >= mid {
				ch |= 1 << (4 - bit)
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
			continue
		}
		out = append(out, geohashAlphabet[ch])
		bit, ch = 0, 0
	}
	return string(out)
}
