// 包 tokenize：默认的地名分词与归一化实现
package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 文档注释：默认分词器
// 背景：大小写折叠（cases.Fold）后按 NFD 分解并去除附加符号，使 "São Tomé" 与 "Sao Tome" 归一为同一词形；
// 词由连续字母/数字组成，词内撇号丢弃，其余字符视为分隔；层级按 "," 或 ";" 切分，最具体的层级在前。
// 约束：无状态，可并发使用。
type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

// Normalize：整段文本归一为无分隔的单一词形，用于与名称/类型 token 做包含判断
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Words(text), "")
}

// Words：单个层级文本的归一化词序列
func (n *Normalizer) Words(text string) []string {
	folded := fold(text)
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case r == '\'' || r == '’' || r == '`':
			// 撇号不断词
		default:
			flush()
		}
	}
	flush()
	return words
}

// Tokenize：按层级切分；空层级丢弃
func (n *Normalizer) Tokenize(text string) [][]string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' })
	levels := make([][]string, 0, len(parts))
	for _, p := range parts {
		if w := n.Words(p); len(w) > 0 {
			levels = append(levels, w)
		}
	}
	return levels
}

func fold(s string) string {
	t := transform.Chain(cases.Fold(), norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
