// 包 check：回归映射回放；对 "输入 → 期望全名" 映射逐条解析并统计差异
package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"place-std/internal/standardize"
)

// Report：回放统计
type Report struct {
	Identical int
	Diff      int
	Elapsed   time.Duration
}

// LoadMap：读取 JSON 对象形式的映射文件
func LoadMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// 文档注释：回放
// 背景：按输入的字典序逐条以 ModeBest 模式解析，结果全名与期望值忽略大小写比较；未解析到时全名为空串。
// 约束：差异行写入 w，格式为 "输入 |<TAB>实际 |<TAB>期望"；ctx 取消时提前结束并返回已统计部分。
func Run(ctx context.Context, std *standardize.Standardizer, m map[string]string, w io.Writer) (Report, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rep Report
	start := time.Now()
	for _, in := range keys {
		if err := ctx.Err(); err != nil {
			rep.Elapsed = time.Since(start)
			return rep, err
		}
		got := std.FullName(ctx, std.Standardize(ctx, in))
		want := m[in]
		if strings.EqualFold(got, want) {
			rep.Identical++
			continue
		}
		rep.Diff++
		if _, err := fmt.Fprintf(w, "%s |\t%s |\t%s\n", in, got, want); err != nil {
			return rep, err
		}
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}
