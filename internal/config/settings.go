package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend：Place Store 后端类型，启动时确定
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendLocal    Backend = "local"
	BackendCached   Backend = "cached"
)

// 文档注释：进程运行参数
// 背景：沿用环境变量 + .env 的配置方式；所有值都有默认值，解析失败回退默认值。
type Settings struct {
	Backend        Backend
	LocalDir       string
	RulesPath      string
	PlaceCacheSize int
	PlaceCacheTTL  time.Duration
	WordCacheSize  int
	WordCacheTTL   time.Duration
	RedisEnabled   bool
	RedisTTL       time.Duration
	GeoIPPath      string
	Addr           string
	APIBase        string
}

// FromEnv：读取环境变量；调用方应先执行 godotenv.Load
func FromEnv() Settings {
	s := Settings{
		Backend:        Backend(strings.ToLower(envString("PLACE_BACKEND", string(BackendLocal)))),
		LocalDir:       envString("LOCAL_DB_DIR", filepath.Join("data", "gazetteer")),
		RulesPath:      os.Getenv("STANDARDIZER_CONFIG"),
		PlaceCacheSize: envInt("PLACE_CACHE_MAX_SIZE", 50000),
		PlaceCacheTTL:  time.Duration(envInt("PLACE_CACHE_TTL_S", 3600)) * time.Second,
		WordCacheSize:  envInt("WORD_CACHE_MAX_SIZE", 50000),
		WordCacheTTL:   time.Duration(envInt("WORD_CACHE_TTL_S", 3600)) * time.Second,
		RedisEnabled:   os.Getenv("CACHE_REDIS_ENABLED") == "true",
		RedisTTL:       time.Duration(envInt("CACHE_REDIS_TTL_S", 86400)) * time.Second,
		GeoIPPath:      os.Getenv("GEOIP_PATH"),
		Addr:           envString("ADDR", ":8080"),
		APIBase:        envString("API_BASE", "/api"),
	}
	return s
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt：非正数与解析失败均回退默认值
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
