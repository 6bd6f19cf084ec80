// 包 hierarchy：地点 DAG 上的祖先/后代可达性查询
package hierarchy

import (
	"context"

	"place-std/internal/store"
)

// 文档注释：层级图查询
// 背景：父级关系只以整数 ID 保存在 Store 中，遍历时按需读取；主父级优先，其后依次为各次父级。
// 约束：只读，可无限并发；访问集合保证存在环时遍历终止，检测到的环视为不匹配；缺失的地点终止所在分支。
type Graph struct {
	r *store.Reader
}

func New(r *store.Reader) *Graph { return &Graph{r: r} }

// IsAncestorOfAny：id 的某个（严格）祖先是否属于 ids
func (g *Graph) IsAncestorOfAny(ctx context.Context, id int, ids []int) bool {
	if len(ids) == 0 {
		return false
	}
	targets := make(map[int]struct{}, len(ids))
	for _, t := range ids {
		targets[t] = struct{}{}
	}
	return g.reaches(ctx, id, targets)
}

// IsDescendantOf：包含 id == ancestor 的情形
func (g *Graph) IsDescendantOf(ctx context.Context, id, ancestor int) bool {
	if id == ancestor {
		return true
	}
	return g.reaches(ctx, id, map[int]struct{}{ancestor: {}})
}

// FilterDescendants：保留祖先链命中 parents 的 ids，保持原顺序
func (g *Graph) FilterDescendants(ctx context.Context, ids, parents []int) []int {
	var out []int
	for _, id := range ids {
		if g.IsAncestorOfAny(ctx, id, parents) {
			out = append(out, id)
		}
	}
	return out
}

// 文档注释：去除冗余祖先
// 背景：集合中同时出现某地点与其后代时只保留更具体的后代。
// 约束：保持原顺序；结果中不再有成员是其他成员的祖先（环上互为祖先的成员除外），因此重复调用结果不变。
func (g *Graph) RemoveRedundantAncestors(ctx context.Context, ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	out := make([]int, 0, len(ids))
	for i, candidate := range ids {
		redundant := false
		for j, other := range ids {
			if i == j || other == candidate {
				continue
			}
			// 互为祖先说明存在环，不据此删除
			if g.reaches(ctx, other, map[int]struct{}{candidate: {}}) && !g.reaches(ctx, candidate, map[int]struct{}{other: {}}) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, candidate)
		}
	}
	return out
}

// reaches：从 id 沿父级深度优先遍历；已访问节点（含起点）不再展开也不参与命中判断
func (g *Graph) reaches(ctx context.Context, id int, targets map[int]struct{}) bool {
	visited := map[int]struct{}{id: {}}
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p := g.r.Place(ctx, cur)
		if p == nil {
			continue
		}
		parents := p.Parents()
		// 逆序压栈，使主父级先出栈
		for i := len(parents) - 1; i >= 0; i-- {
			pid := parents[i]
			if _, seen := visited[pid]; seen {
				continue
			}
			if _, hit := targets[pid]; hit {
				return true
			}
			visited[pid] = struct{}{}
			stack = append(stack, pid)
		}
	}
	return false
}
