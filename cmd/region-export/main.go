package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"townmap/internal/config"
	"townmap/internal/logger"
	"townmap/internal/revgeo"
	"townmap/internal/topo"
)

// 文档注释：导出行政区
// 背景：把 TOPO_PATH 指定的拓扑还原为乡镇区域并写出，供离线检查边界或交给前端静态托管。
// 用法：region-export [out.geojson|out.json]；扩展名为 .json 时输出区域视图（含显示路径与质心），否则输出 GeoJSON；缺省写到标准输出。
func main() {
	cfg := config.Load()
	l := logger.SetupWith(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	tp, err := topo.LoadFile(cfg.TopoPath)
	if err != nil {
		l.Error("topo_load_error", "path", cfg.TopoPath, "err", err)
		os.Exit(1)
	}
	loc := revgeo.NewLocator(tp, revgeo.Options{
		Layer:  cfg.TopoObject,
		Width:  cfg.DisplayWidth,
		Height: cfg.DisplayHeight,
	})
	if err := loc.Build(); err != nil {
		l.Error("region_build_error", "err", err)
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	out := ""
	if len(os.Args) > 1 {
		out = os.Args[1]
		f, err := os.Create(out)
		if err != nil {
			l.Error("export_open_error", "path", out, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := export(w, loc, out); err != nil {
		l.Error("export_write_error", "err", err)
		os.Exit(1)
	}
	st := loc.Stats()
	l.Info("export_done", "regions", st.Regions, "skipped", st.Skipped, "out", out)
}

func export(w io.Writer, loc *revgeo.Locator, out string) error {
	if strings.HasSuffix(out, ".json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(loc.ListRegions("", nil))
	}
	b, err := revgeo.FeatureCollection(loc.Regions()).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
