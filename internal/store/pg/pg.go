// 包 pg：Postgres 后端，每次调用直接查询 places / place_words 表
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"place-std/internal/logger"
	"place-std/internal/place"
	"place-std/internal/store"

	_ "github.com/lib/pq"
)

const (
	placeQuery = `SELECT id, name, alt_names, types, located_in_id, also_located_in_ids, level, country_id, latitude, longitude, sources FROM places WHERE id=$1`
	wordsQuery = `SELECT ids FROM place_words WHERE word=$1`
)

// Store：持有调用方创建的连接池（见 utils.OpenDB）
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// 文档注释：按 ID 读取地点
// 返回：不存在返回 store.ErrNotFound；列表字段解析失败视为记录损坏并返回错误。
func (s *Store) Place(ctx context.Context, id int) (*place.Place, error) {
	row := s.db.QueryRowContext(ctx, placeQuery, id)
	var p place.Place
	var altNames, types, alsoIDs, sources sql.NullString
	var lat, lon sql.NullFloat64
	var locatedIn sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &altNames, &types, &locatedIn, &alsoIDs, &p.Level, &p.CountryID, &lat, &lon, &sources)
	if errors.Is(err, sql.ErrNoRows) {
		logger.L().Debug("pg_place_miss", "id", id)
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query place %d: %w", id, err)
	}
	p.AltNames = place.ParseAltNames(altNames.String)
	p.Types = place.ParseList(types.String)
	p.LocatedIn = int(locatedIn.Int64)
	if p.AlsoLocatedIn, err = place.ParseIDs(alsoIDs.String, place.ListSep); err != nil {
		return nil, fmt.Errorf("place %d also_located_in_ids: %w", id, err)
	}
	p.Latitude = lat.Float64
	p.Longitude = lon.Float64
	p.Sources = place.ParseSources(sources.String)
	return &p, nil
}

// Words：无对应行返回 nil, nil
func (s *Store) Words(ctx context.Context, token string) ([]int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, wordsQuery, token).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query word %q: %w", token, err)
	}
	ids, err := place.ParseIDs(raw, place.WordSep)
	if err != nil {
		return nil, fmt.Errorf("word %q ids: %w", token, err)
	}
	return ids, nil
}
