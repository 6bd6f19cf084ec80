// 包 scoring：候选地点的确定性打分与排序
package scoring

import (
	"sort"
	"strings"
	"unicode/utf8"

	"place-std/internal/config"
	"place-std/internal/place"
)

// PlaceScore：排序中间结果，不持久化
type PlaceScore struct {
	Place *place.Place
	Score float64
}

// Scorer：规则只读，可并发使用
type Scorer struct {
	rules     *config.Rules
	normalize func(string) string
}

func NewScorer(rules *config.Rules, normalize func(string) string) *Scorer {
	return &Scorer{rules: rules, normalize: normalize}
}

// 文档注释：打分
// 背景：层级权重按国家规模分组选取，以 min(max_levels, level)-1 为下标；
// 主名称（非别名）包含匹配 token 时加 primary_match_weight；再加 1/名称长度，使同分时较短的规范名称优先。
// 约束：level 小于 1 时按 1 处理；空名称不加长度项。
func (s *Scorer) Score(token string, p *place.Place) float64 {
	weights := s.rules.LevelWeights(p.CountryID)
	idx := p.Level
	if idx > s.rules.MaxLevels {
		idx = s.rules.MaxLevels
	}
	if idx < config.TopLevel {
		idx = config.TopLevel
	}
	score := weights[idx-1]
	if token != "" && strings.Contains(s.normalize(p.Name), token) {
		score += s.rules.PrimaryMatchWeight
	}
	if n := utf8.RuneCountInString(p.Name); n > 0 {
		score += 1.0 / float64(n)
	}
	return score
}

func (s *Scorer) ScoreAll(token string, places []*place.Place) []PlaceScore {
	out := make([]PlaceScore, 0, len(places))
	for _, p := range places {
		out = append(out, PlaceScore{Place: p, Score: s.Score(token, p)})
	}
	return out
}

// Rank：按分数降序、同分按 ID 升序排序并截取前 n 个（n < 1 视为 1）
func Rank(cands []PlaceScore, n int) []PlaceScore {
	if n < 1 {
		n = 1
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Place.ID < cands[j].Place.ID
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands
}
