// 包 backend：按进程配置在启动时选定 Place Store 后端
package backend

import (
	"context"
	"fmt"

	"place-std/internal/config"
	"place-std/internal/logger"
	"place-std/internal/migrate"
	"place-std/internal/store"
	"place-std/internal/store/cached"
	"place-std/internal/store/local"
	"place-std/internal/store/pg"
	"place-std/internal/utils"
)

// 文档注释：打开后端
// 背景：选择只发生一次；解析热路径只见 store.Store 接口。
// 返回：store、释放函数（幂等调用一次即可）；任何打开失败都属于启动期致命错误。
func Open(ctx context.Context, s config.Settings) (store.Store, func(), error) {
	l := logger.L()
	switch s.Backend {
	case config.BackendLocal:
		ls, err := local.Open(s.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		l.Info("backend_ready", "kind", s.Backend, "dir", s.LocalDir)
		return ls, func() { _ = ls.Close() }, nil

	case config.BackendPostgres, config.BackendCached:
		ps, err := openPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		if s.Backend == config.BackendPostgres {
			l.Info("backend_ready", "kind", s.Backend)
			return ps, func() { _ = ps.Close() }, nil
		}
		opts := cached.Options{
			PlaceSize: int64(s.PlaceCacheSize),
			PlaceTTL:  s.PlaceCacheTTL,
			WordSize:  int64(s.WordCacheSize),
			WordTTL:   s.WordCacheTTL,
			RedisTTL:  s.RedisTTL,
		}
		if s.RedisEnabled {
			rc := utils.OpenRedisFromEnv()
			if err := utils.PingRedis(ctx, rc); err != nil {
				l.Error("redis_ping_error", "err", err)
				_ = rc.Close()
			} else {
				l.Info("redis_ping_ok")
				opts.Redis = rc
			}
		}
		cs, err := cached.New(ps, opts)
		if err != nil {
			_ = ps.Close()
			return nil, nil, err
		}
		l.Info("backend_ready", "kind", s.Backend)
		return cs, func() {
			cs.Close()
			if opts.Redis != nil {
				_ = opts.Redis.Close()
			}
			_ = ps.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown PLACE_BACKEND %q", s.Backend)
}

func openPostgres(ctx context.Context) (*pg.Store, error) {
	db, err := utils.OpenDB(ctx, utils.PGOptionsFromEnv())
	if err != nil {
		return nil, err
	}
	logger.L().Info("db_ping_ok")
	if err := migrate.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return pg.AttachDB(db), nil
}
