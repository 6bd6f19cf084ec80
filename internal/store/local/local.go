// 包 local：本地有序映射后端（badger）；一次性批量构建，之后以只读方式重新打开供并发查询
package local

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"place-std/internal/logger"
	"place-std/internal/place"
	"place-std/internal/store"
)

// 键布局：p/<大端 uint32 id> → 地点 JSON；w/<token> → 连续的大端 uint32 id
const (
	placePrefix = "p/"
	wordPrefix  = "w/"
)

func placeKey(id int) []byte {
	k := make([]byte, len(placePrefix)+4)
	copy(k, placePrefix)
	binary.BigEndian.PutUint32(k[len(placePrefix):], uint32(id))
	return k
}

func wordKey(token string) []byte {
	return []byte(wordPrefix + token)
}

func encodeIDs(ids []int) []byte {
	out := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint32(out[4*i:], uint32(id))
	}
	return out
}

func decodeIDs(b []byte) ([]int, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt id list of %d bytes", len(b))
	}
	out := make([]int, len(b)/4)
	for i := range out {
		out[i] = int(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// badgerLogger：把 badger 内部日志接到进程 slog；Info 降为 Debug，避免压缩/回放日志刷屏
type badgerLogger struct {
	l *slog.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error("badger", "msg", fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn("badger", "msg", fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug("badger", "msg", fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug("badger", "msg", fmt.Sprintf(format, args...))
}

// 文档注释：批量构建器
// 背景：数据集一次性写入 WriteBatch，关闭时刷盘；之后目录只能通过 Open 以只读方式访问。
// 约束：非并发安全；必须在任何读取方打开目录之前 Close。
type Builder struct {
	db     *badger.DB
	wb     *badger.WriteBatch
	places int
	words  int
}

// NewBuilder：创建（或覆盖）目录并开始批量写入
func NewBuilder(dir string) (*Builder, error) {
	if dir == "" {
		return nil, errors.New("local gazetteer dir is required")
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{l: logger.L()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger for build: %w", err)
	}
	return &Builder{db: db, wb: db.NewWriteBatch()}, nil
}

func (b *Builder) AddPlace(p *place.Place) error {
	if p == nil || p.ID <= 0 {
		return fmt.Errorf("invalid place id")
	}
	val, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode place %d: %w", p.ID, err)
	}
	if err := b.wb.Set(placeKey(p.ID), val); err != nil {
		return fmt.Errorf("write place %d: %w", p.ID, err)
	}
	b.places++
	return nil
}

func (b *Builder) AddWord(token string, ids []int) error {
	if token == "" {
		return errors.New("empty word token")
	}
	if err := b.wb.Set(wordKey(token), encodeIDs(ids)); err != nil {
		return fmt.Errorf("write word %q: %w", token, err)
	}
	b.words++
	return nil
}

// Counts：已写入的地点数与词条数
func (b *Builder) Counts() (places, words int) { return b.places, b.words }

// Close：刷出批次并关闭数据库；出错时批次被取消
func (b *Builder) Close() error {
	if err := b.wb.Flush(); err != nil {
		b.wb.Cancel()
		_ = b.db.Close()
		return fmt.Errorf("flush gazetteer batch: %w", err)
	}
	logger.L().Info("local_build_done", "places", b.places, "words", b.words)
	return b.db.Close()
}

// 文档注释：只读本地后端
// 约束：读取使用 View 事务，可无限并发；目录在进程生命周期内不被写入。
type Store struct {
	db *badger.DB
}

// Open：以只读方式打开已构建完成的目录
func Open(dir string) (*Store, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("local gazetteer %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).
		WithReadOnly(true).
		WithLogger(&badgerLogger{l: logger.L()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger read-only: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Place(ctx context.Context, id int) (*place.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p place.Place
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(placeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &p) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read place %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) Words(ctx context.Context, token string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(wordKey(token))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			ids, derr = decodeIDs(val)
			return derr
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read word %q: %w", token, err)
	}
	return ids, nil
}
