package ingest

import (
	"sort"
	"strings"

	"place-std/internal/config"
	"place-std/internal/place"
)

// Normalizer：词索引派生所需的归一化能力（与解析时使用的分词器一致）
type Normalizer interface {
	Words(text string) []string
}

// 文档注释：词索引派生
// 背景：数据集未附带 place_words.tsv 时，由地点派生倒排索引：主名称、每个别名、两者去掉末尾类型词后的形式
// （"Sangamon County" 同时索引 "sangamoncounty" 与 "sangamon"），以及每个类型标签。
// 多词名称另按缩写展开后的形式索引（"St Louis" 同时索引 "stlouis" 与 "saintlouis"），与查询时多词层级先展开缩写保持一致。
// 约束：非并发安全；Entries 输出按词排序、ID 升序去重。
type WordIndex struct {
	rules *config.Rules
	norm  Normalizer
	words map[string]map[int]struct{}
}

func NewWordIndex(rules *config.Rules, norm Normalizer) *WordIndex {
	return &WordIndex{rules: rules, norm: norm, words: map[string]map[int]struct{}{}}
}

func (w *WordIndex) Add(p *place.Place) {
	w.addName(p.ID, p.Name)
	for _, alt := range p.AltNames {
		w.addName(p.ID, alt.Name)
	}
	for _, t := range p.Types {
		if tok := strings.Join(w.norm.Words(t), ""); tok != "" {
			w.add(p.ID, tok)
		}
	}
}

// DeriveWords：单个名称派生出的 token（去重，保持出现顺序）
func (w *WordIndex) DeriveWords(name string) []string {
	words := w.norm.Words(name)
	if len(words) == 0 {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	emit := func(ws []string, isType func(string) bool) {
		for _, tok := range []string{strings.Join(ws, ""), strings.Join(trimTypes(ws, isType), "")} {
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				out = append(out, tok)
			}
		}
	}
	emit(words, w.rules.IsTypeWord)
	if len(words) > 1 {
		expanded := make([]string, len(words))
		for i, word := range words {
			expanded[i] = w.rules.Expand(word)
		}
		emit(expanded, w.rules.IsRawTypeWord)
	}
	return out
}

// trimTypes：去掉末尾类型词，至少保留一个词
func trimTypes(words []string, isType func(string) bool) []string {
	end := len(words)
	for end > 1 && isType(words[end-1]) {
		end--
	}
	return words[:end]
}

func (w *WordIndex) addName(id int, name string) {
	for _, tok := range w.DeriveWords(name) {
		w.add(id, tok)
	}
}

func (w *WordIndex) add(id int, tok string) {
	set, ok := w.words[tok]
	if !ok {
		set = map[int]struct{}{}
		w.words[tok] = set
	}
	set[id] = struct{}{}
}

func (w *WordIndex) Len() int { return len(w.words) }

// Entries：按词排序依次回调
func (w *WordIndex) Entries(fn func(word string, ids []int) error) error {
	keys := make([]string, 0, len(w.words))
	for k := range w.words {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		set := w.words[k]
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		if err := fn(k, ids); err != nil {
			return err
		}
	}
	return nil
}
