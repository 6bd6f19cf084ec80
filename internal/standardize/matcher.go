package standardize

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 连接词：出现在跳过位置之后时截断累积（"X or Y"、"X now Y" 只取右侧）
var connectors = map[string]struct{}{"or": {}, "now": {}}

// 不能单独作为名称的虚词
var bareWords = map[string]struct{}{"de": {}, "la": {}}

// levelMatch：单个层级的匹配结果；ids 为 nil 表示未命中
type levelMatch struct {
	ids       []int
	nameToken string
	typeToken string
	skip      int
	// 被跳过的前导词（已去除噪声词与类型词），将作为更具体的新层级插入
	prefix []string
}

// 文档注释：构造名称 token 与类型 token
// 背景：从右向左拼接 words[skip:]；遇到第一个非类型词之前累积的类型词（即名称之后的类型词，如 "Cook County" 的 "county"）
// 移入类型 token，其余词拼成名称 token。非跳过词多于一个时先做缩写展开，避免 "No, Niigata" 这类单词地名被展开成 "north"。
// 约束：跳过位置之后、且已有累积内容时遇到连接词即停止，其左侧内容在本次尝试中丢弃。
func (s *Standardizer) nameTypeToken(words []string, skip int) (name, typ string) {
	expand := len(words)-skip > 1
	var buf []string
	foundName := false
	for i := len(words) - 1; i >= skip; i-- {
		w := words[i]
		if w == "" {
			continue
		}
		if _, ok := connectors[w]; ok && i > skip && len(buf) > 0 {
			break
		}
		if expand {
			w = s.rules.Expand(w)
		}
		if !s.rules.IsRawTypeWord(w) {
			if !foundName && len(buf) > 0 {
				typ = strings.Join(buf, "")
				buf = buf[:0]
			}
			foundName = true
		}
		buf = append([]string{w}, buf...)
	}
	return strings.Join(buf, ""), typ
}

// 文档注释：单层匹配与回退
// 背景：依次跳过 0..len-1 个前导词查找名称 token；缺少逗号时（"Springfield Illinois"）由回退识别出右侧的地名。
// 返回：首次命中的结果；多词层级中的裸 "de"/"la" 视为未命中。
func (s *Standardizer) matchLevel(ctx context.Context, words []string) levelMatch {
	for skip := 0; skip < len(words); skip++ {
		name, typ := s.nameTypeToken(words, skip)
		if name == "" {
			continue
		}
		ids := s.reader.Words(ctx, name)
		if len(ids) == 0 {
			continue
		}
		if _, bare := bareWords[name]; bare && len(words) > 1 {
			continue
		}
		m := levelMatch{ids: ids, nameToken: name, typeToken: typ, skip: skip}
		for _, w := range words[:skip] {
			if !s.rules.IsNoiseWord(w) && !s.rules.IsTypeWord(w) {
				m.prefix = append(m.prefix, w)
			}
		}
		return m
	}
	return levelMatch{}
}

func (s *Standardizer) hasContent(words []string) bool {
	for _, w := range words {
		if !s.rules.IsNoiseWord(w) {
			return true
		}
	}
	return false
}

func (s *Standardizer) anyContent(levels [][]string) bool {
	for _, ws := range levels {
		if s.hasContent(ws) {
			return true
		}
	}
	return false
}

// 文档注释：由未匹配层级的词生成新地点名
// 背景：去掉末尾类型词（"cemetery" 例外，作为名称的一部分保留）；若全部是类型词则全部保留；每个词首字母大写其余小写。
func (s *Standardizer) generatePlaceName(words []string) string {
	end := len(words) - 1
	for end >= 0 && s.rules.IsTypeWord(words[end]) && words[end] != "cemetery" {
		end--
	}
	if end < 0 {
		end = len(words) - 1
	}
	parts := make([]string, 0, end+1)
	for _, w := range words[:end+1] {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		parts = append(parts, string(unicode.ToUpper(r))+strings.ToLower(w[size:]))
	}
	return strings.Join(parts, " ")
}
