// 包 mem：进程内 map 后端，用于测试与直接从 TSV 载入的小型词典
package mem

import (
	"context"
	"sort"

	"place-std/internal/place"
	"place-std/internal/store"
)

// Store：构建完成后只读；Add/AddWord 不可与查询并发
type Store struct {
	places map[int]*place.Place
	words  map[string][]int
}

func New() *Store {
	return &Store{places: map[int]*place.Place{}, words: map[string][]int{}}
}

func (s *Store) Add(ps ...*place.Place) {
	for _, p := range ps {
		s.places[p.ID] = p
	}
}

// AddWord：合并进已有 id 列表，保持升序去重
func (s *Store) AddWord(token string, ids ...int) {
	merged := append(s.words[token], ids...)
	sort.Ints(merged)
	out := merged[:0]
	for i, id := range merged {
		if i == 0 || id != merged[i-1] {
			out = append(out, id)
		}
	}
	s.words[token] = out
}

func (s *Store) Len() int { return len(s.places) }

func (s *Store) Place(_ context.Context, id int) (*place.Place, error) {
	p, ok := s.places[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) Words(_ context.Context, token string) ([]int, error) {
	return s.words[token], nil
}
