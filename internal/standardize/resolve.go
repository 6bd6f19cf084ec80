package standardize

import (
	"context"
	"slices"
	"strings"

	"place-std/internal/config"
	"place-std/internal/place"
	"place-std/internal/scoring"
)

// resolution：单次 Resolve 调用的可变状态
type resolution struct {
	s      *Standardizer
	ctx    context.Context
	levels [][]string
	diag   latch
}

// 文档注释：状态机
// 背景：从最粗（最后一组）到最具体（第一组）逐层推进。current 为当前已接受的候选集合，previous 为上一层的集合（用于跳过父级时回挂到祖父级）。
// 约束：某层的所有途径都失败时状态保持不变；回退插入的新层级排在当前层之前，随后一轮匹配。
func (r *resolution) run(defaultCountry string, mode Mode, n int) []scoring.PlaceScore {
	s := r.s
	ctx := r.ctx
	var current, previous []int
	var nameToken string
	lastFound := -1

	for level := len(r.levels) - 1; level >= 0; level-- {
		words := r.levels[level]
		m := s.matchLevel(ctx, words)
		// 被跳过的词只有噪声词或类型词时层级保持原样，诊断与新地点名仍能看到它们
		if m.ids != nil && len(m.prefix) > 0 {
			r.levels[level] = words[m.skip:]
			r.levels = slices.Insert(r.levels, level, m.prefix)
			level++
			// 已匹配的层级整体后移一位
			if lastFound >= 0 {
				lastFound++
			}
			words = r.levels[level]
		}

		if m.ids == nil {
			if s.hasContent(words) {
				r.diag.tokenNotFound(level, s.graph.RemoveRedundantAncestors(ctx, current))
			}
			continue
		}

		ids := m.ids
		if current != nil {
			matching := s.graph.FilterDescendants(ctx, ids, current)
			if len(matching) == 0 && r.skippable(current) {
				// 回挂到祖父级
				if len(previous) > 0 {
					matching = s.graph.FilterDescendants(ctx, ids, previous)
					if len(matching) > 0 {
						current = previous
						r.diag.skippingParentLevel(level, s.graph.RemoveRedundantAncestors(ctx, matching))
					}
				}
				// 新匹配本身不可跳过（国家或特殊国家的州）时直接采用，视为新的顶层匹配
				if len(matching) == 0 && !r.skippable(ids) {
					matching = ids
					current = nil
					r.diag.skippingParentLevel(level, s.graph.RemoveRedundantAncestors(ctx, matching))
				}
			}
			if len(matching) == 0 {
				if s.hasContent(words) {
					r.diag.tokenNotFound(level, s.graph.RemoveRedundantAncestors(ctx, current))
				}
				continue
			}
			ids = matching
		} else if len(ids) > 1 && defaultCountry != "" {
			if narrowed := r.filterDefaultCountry(ids, defaultCountry); len(narrowed) > 0 {
				ids = narrowed
			}
		}
		lastFound = level

		if len(ids) > 1 && m.typeToken != "" {
			if typed := r.filterType(ids, m.typeToken); len(typed) > 0 {
				ids = typed
			} else {
				r.diag.typeNotFound(level, s.graph.RemoveRedundantAncestors(ctx, ids))
			}
		}

		previous, current = current, ids
		nameToken = m.nameToken
	}

	if current == nil {
		if s.anyContent(r.levels) {
			r.diag.placeNotFound()
		}
		return nil
	}
	if mode == ModeRequired && lastFound != 0 {
		return nil
	}

	if len(current) > 1 {
		current = s.graph.RemoveRedundantAncestors(ctx, current)
	}
	var results []scoring.PlaceScore
	if len(current) > 1 {
		places := make([]*place.Place, 0, len(current))
		for _, id := range current {
			if p := s.reader.Place(ctx, id); p != nil {
				places = append(places, p)
			}
		}
		results = scoring.Rank(s.scorer.ScoreAll(nameToken, places), n)
		if len(results) > 0 {
			r.diag.ambiguous(current, results[0].Place)
		}
	} else if p := s.reader.Place(ctx, current[0]); p != nil {
		results = []scoring.PlaceScore{{Place: p, Score: s.scorer.Score(nameToken, p)}}
	}

	if len(results) > 0 && mode == ModeNew && lastFound > 0 {
		placeholder := &place.Place{
			Name:      s.generatePlaceName(r.levels[lastFound-1]),
			LocatedIn: results[0].Place.ID,
			Level:     results[0].Place.Level + 1,
			CountryID: results[0].Place.CountryID,
		}
		results = []scoring.PlaceScore{{Place: placeholder, Score: 0}}
	}
	return results
}

// skippable：集合中没有国家级地点，也没有特殊国家的州级地点
func (r *resolution) skippable(ids []int) bool {
	for _, id := range ids {
		p := r.s.reader.Place(r.ctx, id)
		if p == nil {
			continue
		}
		if p.Level == config.TopLevel || (p.Level == config.TopLevel+1 && p.CountryID == r.s.rules.SpecialCountryID) {
			return false
		}
	}
	return true
}

// filterDefaultCountry：默认国家本身按 ModeBest 模式、不带诊断解析；解析不到时返回空集合
func (r *resolution) filterDefaultCountry(ids []int, defaultCountry string) []int {
	country := r.s.WithErrorHandler(NopHandler{}).Standardize(r.ctx, defaultCountry)
	if country == nil {
		return nil
	}
	var out []int
	for _, id := range ids {
		p := r.s.reader.Place(r.ctx, id)
		if p == nil {
			continue
		}
		if p.Level == config.TopLevel || p.CountryID == country.ID || r.s.graph.IsDescendantOf(r.ctx, id, country.ID) {
			out = append(out, id)
		}
	}
	return out
}

// filterType：主名称或任一类型标签（归一化后）包含类型 token
func (r *resolution) filterType(ids []int, typeToken string) []int {
	norm := r.s.tok.Normalize
	var out []int
	for _, id := range ids {
		p := r.s.reader.Place(r.ctx, id)
		if p == nil {
			continue
		}
		if strings.Contains(norm(p.Name), typeToken) {
			out = append(out, id)
			continue
		}
		for _, t := range p.Types {
			if strings.Contains(norm(t), typeToken) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
