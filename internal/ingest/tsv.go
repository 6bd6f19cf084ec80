// 包 ingest：离线数据通道；读取 places.tsv / place_words.tsv，派生词索引，构建本地词典或导入 Postgres
package ingest

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"place-std/internal/logger"
	"place-std/internal/place"
)

// placeColumns：id, name, alt_names, types, located_in_id, also_located_in_ids, level, country_id, latitude, longitude, sources
const (
	placeColumns    = 11
	minPlaceColumns = 8
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// 文档注释：打开数据源
// 背景：支持本地文件与 http(s) 地址；gzip 按魔数识别，与扩展名无关。
// 异常：网络错误与非 200 状态直接返回，不做重试。
func Open(src string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := http.Get(src)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		raw = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		raw = f
	}
	br := bufio.NewReaderSize(raw, 64*1024)
	magic, _ := br.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip %s: %w", src, err)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{raw, gz}}, nil
	}
	return &multiCloser{Reader: br, closers: []io.Closer{raw}}, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return sc
}

// ParsePlace：解析一行 places.tsv；末尾的坐标/来源列可省略
func ParsePlace(line string) (*place.Place, error) {
	f := strings.Split(line, "\t")
	if len(f) < minPlaceColumns {
		return nil, fmt.Errorf("want at least %d columns, got %d", minPlaceColumns, len(f))
	}
	for len(f) < placeColumns {
		f = append(f, "")
	}
	var p place.Place
	var err error
	if p.ID, err = strconv.Atoi(f[0]); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	p.Name = f[1]
	p.AltNames = place.ParseAltNames(f[2])
	p.Types = place.ParseList(f[3])
	if f[4] != "" {
		if p.LocatedIn, err = strconv.Atoi(f[4]); err != nil {
			return nil, fmt.Errorf("located_in_id: %w", err)
		}
	}
	if p.AlsoLocatedIn, err = place.ParseIDs(f[5], place.ListSep); err != nil {
		return nil, fmt.Errorf("also_located_in_ids: %w", err)
	}
	if p.Level, err = strconv.Atoi(f[6]); err != nil {
		return nil, fmt.Errorf("level: %w", err)
	}
	if p.CountryID, err = strconv.Atoi(f[7]); err != nil {
		return nil, fmt.Errorf("country_id: %w", err)
	}
	if f[8] != "" {
		if p.Latitude, err = strconv.ParseFloat(f[8], 64); err != nil {
			return nil, fmt.Errorf("latitude: %w", err)
		}
	}
	if f[9] != "" {
		if p.Longitude, err = strconv.ParseFloat(f[9], 64); err != nil {
			return nil, fmt.Errorf("longitude: %w", err)
		}
	}
	p.Sources = place.ParseSources(f[10])
	return &p, nil
}

// FormatPlace：ParsePlace 的逆操作
func FormatPlace(p *place.Place) string {
	lat, lon := "", ""
	if p.HasCoordinates() {
		lat = strconv.FormatFloat(p.Latitude, 'f', -1, 64)
		lon = strconv.FormatFloat(p.Longitude, 'f', -1, 64)
	}
	return strings.Join([]string{
		strconv.Itoa(p.ID),
		p.Name,
		place.FormatAltNames(p.AltNames),
		place.FormatList(p.Types),
		strconv.Itoa(p.LocatedIn),
		place.FormatIDs(p.AlsoLocatedIn, place.ListSep),
		strconv.Itoa(p.Level),
		strconv.Itoa(p.CountryID),
		lat,
		lon,
		place.FormatSources(p.Sources),
	}, "\t")
}

// 文档注释：逐行读取地点
// 约束：空行跳过；解析失败的行属于数据损坏，带行号返回错误；回调返回错误时立即停止。
func ReadPlaces(r io.Reader, fn func(*place.Place) error) (int, error) {
	sc := newScanner(r)
	n, line := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		p, err := ParsePlace(text)
		if err != nil {
			return n, fmt.Errorf("places line %d: %w", line, err)
		}
		if err := fn(p); err != nil {
			return n, err
		}
		n++
		if n%100000 == 0 {
			logger.L().Info("ingest_places_progress", "count", n)
		}
	}
	return n, sc.Err()
}

// ReadWords：每行 "word<TAB>id,id,..."
func ReadWords(r io.Reader, fn func(word string, ids []int) error) (int, error) {
	sc := newScanner(r)
	n, line := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		word, rawIDs, ok := strings.Cut(text, "\t")
		if !ok || word == "" {
			return n, fmt.Errorf("words line %d: want word<TAB>ids", line)
		}
		ids, err := place.ParseIDs(rawIDs, place.WordSep)
		if err != nil {
			return n, fmt.Errorf("words line %d: %w", line, err)
		}
		if err := fn(word, ids); err != nil {
			return n, err
		}
		n++
	}
	return n, sc.Err()
}

// ReadPlacesFile / ReadWordsFile：打开（可能压缩或远程的）数据源后读取
func ReadPlacesFile(src string, fn func(*place.Place) error) (int, error) {
	rc, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return ReadPlaces(rc, fn)
}

func ReadWordsFile(src string, fn func(word string, ids []int) error) (int, error) {
	rc, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return ReadWords(rc, fn)
}
