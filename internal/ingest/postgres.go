package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"place-std/internal/config"
	"place-std/internal/logger"
	"place-std/internal/place"
)

const batchSize = 5000

const (
	upsertPlace = `INSERT INTO places(id,name,alt_names,types,located_in_id,also_located_in_ids,level,country_id,latitude,longitude,sources) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, alt_names=EXCLUDED.alt_names, types=EXCLUDED.types, located_in_id=EXCLUDED.located_in_id, also_located_in_ids=EXCLUDED.also_located_in_ids, level=EXCLUDED.level, country_id=EXCLUDED.country_id, latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, sources=EXCLUDED.sources`
	upsertWord = `INSERT INTO place_words(word,ids) VALUES($1,$2) ON CONFLICT (word) DO UPDATE SET ids=EXCLUDED.ids`
)

// pgSink：按批提交的写入器；每次提交后重新开启事务并重新 Prepare
type pgSink struct {
	ctx   context.Context
	db    *sql.DB
	tx    *sql.Tx
	place *sql.Stmt
	word  *sql.Stmt
	count int
}

func (s *pgSink) begin() error {
	tx, err := s.db.BeginTx(s.ctx, nil)
	if err != nil {
		return err
	}
	p, err := tx.PrepareContext(s.ctx, upsertPlace)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	w, err := tx.PrepareContext(s.ctx, upsertWord)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	s.tx, s.place, s.word = tx, p, w
	return nil
}

func (s *pgSink) commit() error {
	if err := s.tx.Commit(); err != nil {
		return err
	}
	s.tx = nil
	return nil
}

func (s *pgSink) rollback() {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
}

func (s *pgSink) step() error {
	s.count++
	if s.count%batchSize != 0 {
		return nil
	}
	logger.L().Info("ingest_progress", "count", s.count)
	if err := s.commit(); err != nil {
		return err
	}
	return s.begin()
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *pgSink) AddPlace(p *place.Place) error {
	var lat, lon any
	if p.HasCoordinates() {
		lat, lon = p.Latitude, p.Longitude
	}
	_, err := s.place.ExecContext(s.ctx,
		p.ID, p.Name,
		nullString(place.FormatAltNames(p.AltNames)),
		nullString(place.FormatList(p.Types)),
		nullInt(p.LocatedIn),
		nullString(place.FormatIDs(p.AlsoLocatedIn, place.ListSep)),
		p.Level, p.CountryID, lat, lon,
		nullString(place.FormatSources(p.Sources)),
	)
	if err != nil {
		return fmt.Errorf("upsert place %d: %w", p.ID, err)
	}
	return s.step()
}

func (s *pgSink) AddWord(token string, ids []int) error {
	if _, err := s.word.ExecContext(s.ctx, token, place.FormatIDs(ids, place.WordSep)); err != nil {
		return fmt.Errorf("upsert word %q: %w", token, err)
	}
	return s.step()
}

// 文档注释：导入 Postgres
// 背景：逐行 upsert，每 5000 行提交一批，降低锁持有与 WAL 压力；重复导入同一数据集结果不变。
// 异常：解析或数据库错误回滚当前批次并直接返回，已提交的批次保留（交由调用方重跑）。
func ImportPostgres(ctx context.Context, db *sql.DB, src Sources, rules *config.Rules, norm Normalizer) error {
	logger.L().Info("ingest_start", "target", "postgres", "places", src.Places, "words", src.Words)
	s := &pgSink{ctx: ctx, db: db}
	if err := s.begin(); err != nil {
		return err
	}
	places, words, err := load(s, src, rules, norm)
	if err != nil {
		s.rollback()
		return err
	}
	if err := s.commit(); err != nil {
		return err
	}
	logger.L().Info("ingest_done", "target", "postgres", "places", places, "words", words)
	return nil
}

// ImportIfEmpty：places 表为空时执行一次初始导入；计数失败按空表处理
func ImportIfEmpty(ctx context.Context, db *sql.DB, src Sources, rules *config.Rules, norm Normalizer) error {
	var c int64
	_ = db.QueryRowContext(ctx, "SELECT COUNT(1) FROM places").Scan(&c)
	if c > 0 {
		logger.L().Info("ingest_skip", "reason", "places_not_empty", "count", c)
		return nil
	}
	return ImportPostgres(ctx, db, src, rules, norm)
}
