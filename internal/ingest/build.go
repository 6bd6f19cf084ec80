package ingest

import (
	"fmt"

	"place-std/internal/config"
	"place-std/internal/logger"
	"place-std/internal/place"
	"place-std/internal/store/local"
	"place-std/internal/store/mem"
)

// Sources：一次导入的输入；Words 为空时由地点名称派生词索引
type Sources struct {
	Places string
	Words  string
}

// sink：构建目标（本地词典 / 内存 / Postgres）的公共写入面
type sink interface {
	AddPlace(p *place.Place) error
	AddWord(token string, ids []int) error
}

// 文档注释：读取并写入目标
// 背景：先写地点再写词条；派生模式下地点读取的同时累积词索引，读完后按词排序写出。
// 返回：写入的地点数与词条数。
func load(dst sink, src Sources, rules *config.Rules, norm Normalizer) (int, int, error) {
	var idx *WordIndex
	if src.Words == "" {
		idx = NewWordIndex(rules, norm)
	}
	places, err := ReadPlacesFile(src.Places, func(p *place.Place) error {
		if idx != nil {
			idx.Add(p)
		}
		return dst.AddPlace(p)
	})
	if err != nil {
		return places, 0, fmt.Errorf("read places %s: %w", src.Places, err)
	}
	words := 0
	if idx != nil {
		err = idx.Entries(func(word string, ids []int) error {
			words++
			return dst.AddWord(word, ids)
		})
		if err != nil {
			return places, words, fmt.Errorf("write derived words: %w", err)
		}
		return places, words, nil
	}
	words, err = ReadWordsFile(src.Words, dst.AddWord)
	if err != nil {
		return places, words, fmt.Errorf("read words %s: %w", src.Words, err)
	}
	return places, words, nil
}

// 文档注释：构建本地（badger）词典
// 约束：目标目录会被整体重建；服务进程须在构建完成后再以只读方式打开。
func BuildLocal(dir string, src Sources, rules *config.Rules, norm Normalizer) error {
	logger.L().Info("ingest_start", "target", "local", "dir", dir, "places", src.Places, "words", src.Words)
	b, err := local.NewBuilder(dir)
	if err != nil {
		return err
	}
	places, words, err := load(b, src, rules, norm)
	if err != nil {
		_ = b.Close()
		return err
	}
	if err := b.Close(); err != nil {
		return err
	}
	logger.L().Info("ingest_done", "target", "local", "places", places, "words", words)
	return nil
}

type memSink struct{ s *mem.Store }

func (m memSink) AddPlace(p *place.Place) error {
	m.s.Add(p)
	return nil
}

func (m memSink) AddWord(token string, ids []int) error {
	m.s.AddWord(token, ids...)
	return nil
}

// LoadMem：把数据集整体读入内存后端（小数据集与测试用）
func LoadMem(src Sources, rules *config.Rules, norm Normalizer) (*mem.Store, error) {
	s := mem.New()
	if _, _, err := load(memSink{s}, src, rules, norm); err != nil {
		return nil, err
	}
	return s, nil
}
