// 包 geoip：根据访问者 IP 推断默认国家提示（MaxMind 国家库）
package geoip

import (
	"net"
	"net/http"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"place-std/internal/logger"
	"place-std/internal/metrics"
)

// Locator：IP → 国家名称；查不到返回空串
type Locator interface {
	CountryName(ip string) string
}

// Reader：包装 geoip2 读取器；零值或 nil 接收者视为未配置
type Reader struct {
	db *geoip2.Reader
}

// 文档注释：打开 MaxMind 数据库
// 背景：GEOIP_PATH 为空表示不启用，返回 nil, nil；调用方据此跳过国家提示。
// 异常：文件缺失或格式错误直接返回，由入口决定是否致命。
func Open(path string) (*Reader, error) {
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	logger.L().Info("geoip_open", "path", path, "type", db.Metadata().DatabaseType)
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CountryName：返回英文国家名（与词典主名称同语种），用于默认国家过滤
func (r *Reader) CountryName(ip string) string {
	if r == nil || r.db == nil || ip == "" {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("bad_ip").Inc()
		return ""
	}
	rec, err := r.db.Country(parsed)
	if err != nil {
		metrics.GeoIPLookupsTotal.WithLabelValues("error").Inc()
		logger.L().Debug("geoip_lookup_error", "ip", ip, "error", err)
		return ""
	}
	name := rec.Country.Names["en"]
	if name == "" {
		metrics.GeoIPLookupsTotal.WithLabelValues("miss").Inc()
		return ""
	}
	metrics.GeoIPLookupsTotal.WithLabelValues("hit").Inc()
	return name
}

// 文档注释：获取访问者 IP
// 背景：多层代理环境下，优先显式参数，其次常见反向代理头，最后回退远端地址。
// 约束：头部存在伪造风险，仅用于默认国家提示，不参与鉴权。
func ClientIP(r *http.Request) string {
	if q := r.URL.Query().Get("ip"); q != "" {
		return q
	}
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := h.Get(k); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexByte(y, ';'); p >= 0 {
				y = y[:p]
			}
			if p := strings.IndexByte(y, ','); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
