package migrate

import (
	"database/sql"

	"place-std/internal/logger"
)

// 背景：首次运行自动创建地点表与倒排词表，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；列表字段以文本存储（"~" / "," 分隔），与 TSV 导出格式一致
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS places (
            id INT PRIMARY KEY,
            name TEXT NOT NULL,
            alt_names TEXT,
            types TEXT,
            located_in_id INT,
            also_located_in_ids TEXT,
            level INT NOT NULL,
            country_id INT NOT NULL,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            sources TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_places_located_in ON places(located_in_id)`,
		`CREATE INDEX IF NOT EXISTS idx_places_country ON places(country_id)`,
		`CREATE TABLE IF NOT EXISTS place_words (
            word TEXT PRIMARY KEY,
            ids TEXT NOT NULL
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
