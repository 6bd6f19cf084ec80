// 包 store：Place Store 契约与降级读取器；具体后端位于子包（pg/local/cached/mem）
package store

import (
	"context"
	"errors"

	"place-std/internal/logger"
	"place-std/internal/place"
)

// ErrNotFound：地点不存在
var ErrNotFound = errors.New("place not found")

// 文档注释：Place Store 契约
// 背景：三种可互换后端（Postgres 直查、本地只读有序映射、缓存旁路）实现同一能力集；后端在启动时选定。
// 约束：Place 不存在时返回 ErrNotFound；Words 无命中返回 nil, nil；其他错误表示后端故障。
type Store interface {
	Place(ctx context.Context, id int) (*place.Place, error)
	Words(ctx context.Context, token string) ([]int, error)
}

// 文档注释：降级读取器
// 背景：解析过程不因后端故障中止；故障在此处记录日志，并统一表现为“未找到/空集合”。
type Reader struct {
	s Store
}

func NewReader(s Store) *Reader { return &Reader{s: s} }

// Place：不存在或故障时返回 nil
func (r *Reader) Place(ctx context.Context, id int) *place.Place {
	p, err := r.s.Place(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.L().Warn("place_not_found", "id", id)
		} else {
			logger.L().Error("store_place_error", "id", id, "err", err)
		}
		return nil
	}
	return p
}

// Words：无命中或故障时返回 nil
func (r *Reader) Words(ctx context.Context, token string) []int {
	if token == "" {
		return nil
	}
	ids, err := r.s.Words(ctx, token)
	if err != nil {
		logger.L().Error("store_words_error", "word", token, "err", err)
		return nil
	}
	return ids
}
