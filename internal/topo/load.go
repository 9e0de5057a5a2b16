package topo

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"townmap/internal/logger"

	"github.com/paulmach/orb"
)

// 文档注释：从 TopoJSON 读取拓扑
// 背景：边界数据以静态文件随服务发布，进程启动时解析一次；弧段坐标保留原始编码，按需解码。
// 约束：仅要求 type/arcs/objects 字段；第三维及以上坐标被忽略。
func Load(r io.Reader) (*Topology, error) {
	var raw struct {
		Topology
		Arcs [][][]float64 `json:"arcs"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("topo: decode: %w", err)
	}
	t := raw.Topology
	t.Arcs = make([][][2]float64, len(raw.Arcs))
	for i, arc := range raw.Arcs {
		pts := make([][2]float64, len(arc))
		for j, p := range arc {
			if len(p) >= 2 {
				pts[j] = [2]float64{p[0], p[1]}
			}
		}
		t.Arcs[i] = pts
	}
	if t.Objects == nil {
		t.Objects = map[string]Object{}
	}
	logger.L().Debug("topo_load_ok", "arcs", len(t.Arcs), "objects", len(t.Objects), "quantized", t.Transform != nil)
	return &t, nil
}

// LoadFile：按路径加载拓扑文件
func LoadFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topo: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// 文档注释：取指定图层的几何列表
// 背景：行政区数据默认位于 objects.layer1；部分导出工具会使用其他名称。
// 约束：name 不存在且仅有一个对象时回退到该对象；否则返回 ErrNoLayer。
func (t *Topology) Layer(name string) ([]Geometry, error) {
	if o, ok := t.Objects[name]; ok {
		return o.Geometries, nil
	}
	if len(t.Objects) == 1 {
		for k, o := range t.Objects {
			logger.L().Debug("topo_layer_fallback", "want", name, "use", k)
			return o.Geometries, nil
		}
	}
	names := make([]string, 0, len(t.Objects))
	for k := range t.Objects {
		names = append(names, k)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("%w: %q (have %v)", ErrNoLayer, name, names)
}

// 文档注释：数据集包围盒
// 背景：显示投影需要固定的经纬度范围；优先使用文件内 bbox，缺失时遍历全部弧段计算。
func (t *Topology) Bound() orb.Bound {
	if len(t.BBox) >= 4 {
		return orb.Bound{Min: orb.Point{t.BBox[0], t.BBox[1]}, Max: orb.Point{t.BBox[2], t.BBox[3]}}
	}
	var b orb.Bound
	first := true
	for i := range t.Arcs {
		pts, _ := DecodeArc(t, i)
		for _, p := range pts {
			if first {
				b = orb.Bound{Min: p, Max: p}
				first = false
				continue
			}
			b = b.Extend(p)
		}
	}
	return b
}
