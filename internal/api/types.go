package api

import (
	"place-std/internal/standardize"
)

// 文档注释：解析结果条目（对外）
// 背景：统一对外序列化模型；空间键（geohash / S2 单元）由坐标派生，无坐标时省略。
// 约束：字段稳定；新增字段需评估兼容性。NEW 模式的占位地点 id 为 0。
type placeResult struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	Level         int      `json:"level"`
	CountryID     int      `json:"country_id"`
	LocatedIn     int      `json:"located_in,omitempty"`
	AlsoLocatedIn []int    `json:"also_located_in,omitempty"`
	Types         []string `json:"types,omitempty"`
	Score         float64  `json:"score"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	Geohash       string   `json:"geohash,omitempty"`
	S2Cell        string   `json:"s2_cell,omitempty"`
}

type resolveResponse struct {
	Query       string                   `json:"query"`
	Country     string                   `json:"country,omitempty"`
	Mode        string                   `json:"mode"`
	Results     []placeResult            `json:"results"`
	Diagnostics []standardize.Diagnostic `json:"diagnostics"`
}

type errorResponse struct {
	Error string `json:"error"`
}
