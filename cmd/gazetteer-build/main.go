package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"place-std/internal/config"
	"place-std/internal/ingest"
	"place-std/internal/logger"
	"place-std/internal/tokenize"
)

// 文档注释：一次性构建本地（badger）词典
// 背景：读取 PLACES_TSV（必填）与 PLACE_WORDS_TSV（可选，缺省时由名称派生词索引），写入 LOCAL_DB_DIR；输入可为 gzip 或 http(s) 地址。
// 约束：目标目录被整体重建；服务进程须在构建完成后再启动。
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	settings := config.FromEnv()
	src := ingest.Sources{Places: os.Getenv("PLACES_TSV"), Words: os.Getenv("PLACE_WORDS_TSV")}
	if src.Places == "" {
		l.Error("places_tsv_missing")
		os.Exit(1)
	}
	rules, err := config.Load(settings.RulesPath)
	if err != nil {
		l.Error("rules_load_error", "err", err)
		os.Exit(1)
	}
	if err := ingest.BuildLocal(settings.LocalDir, src, rules, tokenize.New()); err != nil {
		l.Error("gazetteer_build_error", "dir", settings.LocalDir, "err", err)
		os.Exit(1)
	}
	l.Info("gazetteer_build_ok", "dir", settings.LocalDir)
}
