// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"place-std/internal/geoip"
	"place-std/internal/logger"
	"place-std/internal/place"
	"place-std/internal/standardize"
	"place-std/internal/version"
)

// maxResults：单次请求允许的结果数上限
const maxResults = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀；loc 可为 nil（未配置 GeoIP 时不推断默认国家）。
func BuildRoutes(std *standardize.Standardizer, loc geoip.Locator) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		text := strings.TrimSpace(q.Get("q"))
		if text == "" {
			badRequest(w, "missing q")
			return
		}
		mode := standardize.ModeBest
		if m := q.Get("mode"); m != "" {
			var err error
			if mode, err = standardize.ParseMode(m); err != nil {
				badRequest(w, err.Error())
				return
			}
		}
		n := 1
		if s := q.Get("n"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 {
				badRequest(w, "n must be a positive integer")
				return
			}
			n = min(v, maxResults)
		}
		country := q.Get("country")
		if country == "" && loc != nil {
			country = loc.CountryName(geoip.ClientIP(r))
			if country != "" {
				logger.FromContext(r.Context()).Debug("geoip_country_hint", "country", country)
			}
		}

		ctx := r.Context()
		rec := &standardize.Recorder{}
		scoped := std.WithErrorHandler(standardize.Handlers{std.Handler(), rec})
		scored := scoped.Resolve(ctx, text, country, mode, n)

		resp := resolveResponse{
			Query:       text,
			Country:     country,
			Mode:        mode.String(),
			Results:     make([]placeResult, 0, len(scored)),
			Diagnostics: rec.Diagnostics(),
		}
		for _, ps := range scored {
			resp.Results = append(resp.Results, toResult(std, r, ps.Place, ps.Score))
		}
		if resp.Diagnostics == nil {
			resp.Diagnostics = []standardize.Diagnostic{}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	apiMux.HandleFunc("/place", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil || id <= 0 {
			badRequest(w, "id must be a positive integer")
			return
		}
		p := std.Place(r.Context(), id)
		if p == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "place not found"})
			return
		}
		writeJSON(w, http.StatusOK, toResult(std, r, p, 0))
	})

	apiMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "commit": version.Commit})
	})

	return apiMux
}

func toResult(std *standardize.Standardizer, r *http.Request, p *place.Place, score float64) placeResult {
	res := placeResult{
		ID:            p.ID,
		Name:          p.Name,
		FullName:      std.FullName(r.Context(), p),
		Level:         p.Level,
		CountryID:     p.CountryID,
		LocatedIn:     p.LocatedIn,
		AlsoLocatedIn: p.AlsoLocatedIn,
		Types:         p.Types,
		Score:         score,
	}
	if p.HasCoordinates() {
		lat, lon := p.Latitude, p.Longitude
		res.Lat, res.Lon = &lat, &lon
		res.Geohash = p.Geohash()
		res.S2Cell = p.CellID().ToToken()
	}
	return res
}
