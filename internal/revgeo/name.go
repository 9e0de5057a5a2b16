package revgeo

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// 异体字归一：同一字的不同写法视为相同（臺/台 最常见）
var variantFolder = strings.NewReplacer(
	"臺", "台",
	"鄕", "鄉",
	"峯", "峰",
	"邨", "村",
)

// 文档注释：行政区名称归一化
// 背景：调用方可能只有显示名（如浏览器保存的“台北市 中正區”），需与拓扑中的“臺北市中正區”比对。
// 约束：NFKC（全角转半角）→ 异体字折叠 → 去除全部空白 → 小写；不做繁简转换。
func NormalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = variantFolder.Replace(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// 文档注释：名称是否指向该行政区
// 约束：完整“县市+乡镇”精确匹配；仅给出乡镇名时按乡镇匹配，跨县市重名时会同时标记多个行政区。
func NameMatches(reference string, r Region) bool {
	ref := NormalizeName(reference)
	if ref == "" {
		return false
	}
	if ref == NormalizeName(r.County+r.Town) {
		return true
	}
	return ref == NormalizeName(r.Town)
}
