package place

import (
	"fmt"
	"strconv"
	"strings"
)

// 文档注释：数据集字段编码
// 背景：places 表与 places.tsv 使用同一套文本编码：列表以 "~" 分隔，别名为 "name[:source]"，来源为 "source[:id]"；
// 词索引的 ID 列表以 "," 分隔。Postgres 后端与导入工具共用此处解析，保证两端一致。
const (
	ListSep = "~"
	WordSep = ","
)

// ParseList：空串返回 nil
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ListSep)
}

func FormatList(items []string) string { return strings.Join(items, ListSep) }

// ParseAltNames：首个冒号之前为名称，之后为来源
func ParseAltNames(s string) []AltName {
	items := ParseList(s)
	if len(items) == 0 {
		return nil
	}
	out := make([]AltName, 0, len(items))
	for _, it := range items {
		name, src := splitPair(it)
		out = append(out, AltName{Name: name, Source: src})
	}
	return out
}

func FormatAltNames(names []AltName) string {
	items := make([]string, 0, len(names))
	for _, n := range names {
		items = append(items, joinPair(n.Name, n.Source))
	}
	return FormatList(items)
}

func ParseSources(s string) []Source {
	items := ParseList(s)
	if len(items) == 0 {
		return nil
	}
	out := make([]Source, 0, len(items))
	for _, it := range items {
		src, id := splitPair(it)
		out = append(out, Source{Source: src, ID: id})
	}
	return out
}

func FormatSources(sources []Source) string {
	items := make([]string, 0, len(sources))
	for _, s := range sources {
		items = append(items, joinPair(s.Source, s.ID))
	}
	return FormatList(items)
}

// ParseIDs：按分隔符解析整数列表；空串返回 nil，非法数字返回错误
func ParseIDs(s, sep string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, sep)
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", f, err)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func FormatIDs(ids []int, sep string) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

// splitPair：仅当冒号不在首位时拆分，与数据集约定一致
func splitPair(s string) (string, string) {
	if i := strings.IndexByte(s, ':'); i > 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func joinPair(a, b string) string {
	if b == "" {
		return a
	}
	return a + ":" + b
}
