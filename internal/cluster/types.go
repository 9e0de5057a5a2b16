// Package cluster 地图标记聚合：显示半径内相邻的标记合并为簇
package cluster

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryAccident     Category = "accident"
	CategoryConstruction Category = "construction"
)

// Severity 有序：Low < Medium < High；零值表示未知，排在 Low 之前
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	}
	return "unknown"
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return 0, fmt.Errorf("cluster: unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Position：显示坐标，JSON 编码为 [x, y]
type Position struct {
	X float64
	Y float64
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var v [2]float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.X, p.Y = v[0], v[1]
	return nil
}

type Marker struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Position Position `json:"position"`
}

// Cluster：至少两个标记合并而成
type Cluster struct {
	ID              string   `json:"id"`
	Members         []Marker `json:"members"`
	Count           int      `json:"count"`
	Position        Position `json:"position"`
	MaxSeverity     Severity `json:"maxSeverity"`
	HasAccident     bool     `json:"hasAccident"`
	HasConstruction bool     `json:"hasConstruction"`
}

type Kind string

const (
	KindMarker  Kind = "marker"
	KindCluster Kind = "cluster"
)

// Item：单个标记或簇，以 Kind 区分
type Item struct {
	Kind    Kind     `json:"type"`
	Marker  *Marker  `json:"marker,omitempty"`
	Cluster *Cluster `json:"cluster,omitempty"`
}
