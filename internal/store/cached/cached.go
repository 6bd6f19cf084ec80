// 包 cached：缓存旁路后端；进程内有界 TTL 缓存（ristretto）+ 可选 Redis 层，缺失时回源
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"place-std/internal/logger"
	"place-std/internal/metrics"
	"place-std/internal/place"
	"place-std/internal/store"
)

const (
	DefaultSize     = 50000
	DefaultTTL      = time.Hour
	DefaultRedisTTL = 24 * time.Hour
	redisPrefix     = "placestd:"
)

// Options：容量按条目计；非正值使用默认值。Redis 为 nil 时不启用二级缓存
type Options struct {
	PlaceSize int64
	PlaceTTL  time.Duration
	WordSize  int64
	WordTTL   time.Duration
	Redis     *redis.Client
	RedisTTL  time.Duration
}

func (o *Options) applyDefaults() {
	if o.PlaceSize <= 0 {
		o.PlaceSize = DefaultSize
	}
	if o.WordSize <= 0 {
		o.WordSize = DefaultSize
	}
	if o.PlaceTTL <= 0 {
		o.PlaceTTL = DefaultTTL
	}
	if o.WordTTL <= 0 {
		o.WordTTL = DefaultTTL
	}
	if o.RedisTTL <= 0 {
		o.RedisTTL = DefaultRedisTTL
	}
}

// 文档注释：缓存旁路 Store
// 背景：地点与词条分别缓存；同一键的并发缺失经 singleflight 合并为一次回源，所有调用方得到同一结果或同一错误。
// 约束：回源失败不缓存；不存在的词条缓存为空集合；不存在的地点不缓存（返回 store.ErrNotFound）。
type Store struct {
	backend store.Store
	opts    Options

	places *ristretto.Cache[int, *place.Place]
	words  *ristretto.Cache[string, []int]

	placeFlight singleflight.Group
	wordFlight  singleflight.Group
}

func New(backend store.Store, opts Options) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cached store needs a backend")
	}
	opts.applyDefaults()
	places, err := ristretto.NewCache(&ristretto.Config[int, *place.Place]{
		NumCounters:        opts.PlaceSize * 10,
		MaxCost:            opts.PlaceSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("place cache: %w", err)
	}
	words, err := ristretto.NewCache(&ristretto.Config[string, []int]{
		NumCounters:        opts.WordSize * 10,
		MaxCost:            opts.WordSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		places.Close()
		return nil, fmt.Errorf("word cache: %w", err)
	}
	logger.L().Info("cache_init",
		"place_size", opts.PlaceSize, "place_ttl", opts.PlaceTTL,
		"word_size", opts.WordSize, "word_ttl", opts.WordTTL,
		"redis", opts.Redis != nil)
	return &Store{backend: backend, opts: opts, places: places, words: words}, nil
}

func (s *Store) Close() {
	s.places.Close()
	s.words.Close()
}

func (s *Store) Place(ctx context.Context, id int) (*place.Place, error) {
	if p, ok := s.places.Get(id); ok {
		metrics.CacheHitsTotal.WithLabelValues("place", "memory").Inc()
		return p, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("place", "memory").Inc()
	v, err, shared := s.placeFlight.Do(strconv.Itoa(id), func() (interface{}, error) {
		if p, ok := s.places.Get(id); ok {
			return p, nil
		}
		p, err := s.loadPlace(ctx, id)
		if err != nil {
			return nil, err
		}
		s.places.SetWithTTL(id, p, 1, s.opts.PlaceTTL)
		s.places.Wait()
		return p, nil
	})
	if shared {
		logger.L().Debug("cache_fetch_shared", "cache", "place", "id", id)
	}
	if err != nil {
		return nil, err
	}
	return v.(*place.Place), nil
}

func (s *Store) Words(ctx context.Context, token string) ([]int, error) {
	if ids, ok := s.words.Get(token); ok {
		metrics.CacheHitsTotal.WithLabelValues("word", "memory").Inc()
		return ids, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("word", "memory").Inc()
	v, err, shared := s.wordFlight.Do(token, func() (interface{}, error) {
		if ids, ok := s.words.Get(token); ok {
			return ids, nil
		}
		ids, err := s.loadWords(ctx, token)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int{}
		}
		s.words.SetWithTTL(token, ids, 1, s.opts.WordTTL)
		s.words.Wait()
		return ids, nil
	})
	if shared {
		logger.L().Debug("cache_fetch_shared", "cache", "word", "word", token)
	}
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

func (s *Store) loadPlace(ctx context.Context, id int) (*place.Place, error) {
	key := redisPrefix + "place:" + strconv.Itoa(id)
	var cachedPlace place.Place
	if s.redisGet(ctx, "place", key, &cachedPlace) {
		return &cachedPlace, nil
	}
	metrics.BackendFetchesTotal.WithLabelValues("place").Inc()
	p, err := s.backend.Place(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.BackendErrorsTotal.WithLabelValues("place").Inc()
		}
		return nil, err
	}
	s.redisSet(ctx, key, p)
	return p, nil
}

func (s *Store) loadWords(ctx context.Context, token string) ([]int, error) {
	key := redisPrefix + "word:" + token
	var ids []int
	if s.redisGet(ctx, "word", key, &ids) {
		return ids, nil
	}
	metrics.BackendFetchesTotal.WithLabelValues("word").Inc()
	ids, err := s.backend.Words(ctx, token)
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("word").Inc()
		return nil, err
	}
	if ids == nil {
		ids = []int{}
	}
	s.redisSet(ctx, key, ids)
	return ids, nil
}

// redisGet：Redis 故障只记录日志并视为未命中
func (s *Store) redisGet(ctx context.Context, cache, key string, dst interface{}) bool {
	if s.opts.Redis == nil {
		return false
	}
	raw, err := s.opts.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.WithLabelValues(cache, "redis").Inc()
		return false
	}
	if err != nil {
		logger.L().Warn("redis_get_error", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.L().Warn("redis_decode_error", "key", key, "err", err)
		return false
	}
	metrics.CacheHitsTotal.WithLabelValues(cache, "redis").Inc()
	return true
}

func (s *Store) redisSet(ctx context.Context, key string, v interface{}) {
	if s.opts.Redis == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.opts.Redis.Set(ctx, key, raw, s.opts.RedisTTL).Err(); err != nil {
		logger.L().Warn("redis_set_error", "key", key, "err", err)
	}
}
