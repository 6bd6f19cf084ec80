package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"place-std/internal/config"
	"place-std/internal/ingest"
	"place-std/internal/logger"
	"place-std/internal/migrate"
	"place-std/internal/tokenize"
	"place-std/internal/utils"
)

// 文档注释：把 TSV 数据集导入 Postgres（postgres / cached 后端）
// 背景：IMPORT_IF_EMPTY=true 时仅在 places 表为空时导入，便于在部署脚本中无条件执行。
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
	ctx := context.Background()
	db, err := utils.OpenDB(ctx, utils.PGOptionsFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	if os.Getenv("IMPORT_IF_EMPTY") == "true" {
		err = ingest.ImportIfEmpty(ctx, db, src, rules, tokenize.New())
	} else {
		err = ingest.ImportPostgres(ctx, db, src, rules, tokenize.New())
	}
	if err != nil {
		l.Error("gazetteer_import_error", "err", err)
		os.Exit(1)
	}
	l.Info("gazetteer_import_ok")
}
