// 包 place：地名词典中的地点记录；加载后只读，由各存储后端共享
package place

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

// 文档注释：S2 单元层级
// 背景：对外输出的空间键统一取 10 级（约 10km），与地点精度匹配即可。
const cellLevel = 10

// AltName：别名及其来源标记（来源可为空）
type AltName struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// Source：引用来源
type Source struct {
	Source string `json:"source"`
	ID     string `json:"id,omitempty"`
}

// 文档注释：地点记录
// 背景：父级以整数 ID 引用（LocatedIn 为主父级，AlsoLocatedIn 为次父级），构成 DAG 而非树；不在内存中持有对象环。
// 约束：LocatedIn 为 0 表示无父级；Level 从 1（国家）起；加载后不可修改。
type Place struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	AltNames      []AltName `json:"alt_names,omitempty"`
	Types         []string  `json:"types,omitempty"`
	LocatedIn     int       `json:"located_in,omitempty"`
	AlsoLocatedIn []int     `json:"also_located_in,omitempty"`
	Level         int       `json:"level"`
	CountryID     int       `json:"country_id"`
	Latitude      float64   `json:"lat,omitempty"`
	Longitude     float64   `json:"lon,omitempty"`
	Sources       []Source  `json:"sources,omitempty"`
}

// Parents：主父级在前，其后为次父级；忽略 0
func (p *Place) Parents() []int {
	out := make([]int, 0, 1+len(p.AlsoLocatedIn))
	if p.LocatedIn > 0 {
		out = append(out, p.LocatedIn)
	}
	for _, id := range p.AlsoLocatedIn {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

// HasCoordinates：数据集中缺失坐标以 0,0 表示
func (p *Place) HasCoordinates() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// Geohash：无坐标时返回空串
func (p *Place) Geohash() string {
	if !p.HasCoordinates() {
		return ""
	}
	return geohash.Encode(p.Latitude, p.Longitude)
}

// CellID：无坐标时返回 0（无效单元）
func (p *Place) CellID() s2.CellID {
	if !p.HasCoordinates() {
		return 0
	}
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Latitude, p.Longitude)).Parent(cellLevel)
}
