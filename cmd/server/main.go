// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"place-std/internal/api"
	"place-std/internal/config"
	"place-std/internal/geoip"
	"place-std/internal/logger"
	"place-std/internal/metrics"
	"place-std/internal/middleware"
	"place-std/internal/standardize"
	"place-std/internal/store/backend"
	"place-std/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	settings := config.FromEnv()
	l.Debug("config_api_base", "base", settings.APIBase)
	l.Debug("config_backend", "kind", settings.Backend)

	rules, err := config.Load(settings.RulesPath)
	if err != nil {
		l.Error("rules_load_error", "err", err)
		os.Exit(1)
	}
	l.Info("rules_ready", "path", settings.RulesPath, "type_words", len(rules.TypeWords))

	st, closeStore, err := backend.Open(context.Background(), settings)
	if err != nil {
		l.Error("backend_open_error", "kind", settings.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// 背景：GeoIP 仅提供默认国家提示；打开失败不影响解析服务
	var loc geoip.Locator
	if gr, err := geoip.Open(settings.GeoIPPath); err != nil {
		l.Error("geoip_open_error", "path", settings.GeoIPPath, "err", err)
	} else if gr != nil {
		defer gr.Close()
		loc = gr
	} else {
		l.Info("geoip_disabled")
	}

	handler := standardize.Handlers{
		standardize.LogHandler{L: l},
		standardize.MetricsHandler{},
	}
	std := standardize.New(rules, st, standardize.WithErrorHandler(handler), standardize.WithLogger(l))

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(std, loc)
	mux.Handle(settings.APIBase+"/", http.StripPrefix(settings.APIBase, apiMux))
	mux.Handle(settings.APIBase+"/metrics", metrics.Handler())
	mux.Handle("/healthz", apiMux)

	addr := settings.Addr
	h := logger.AccessMiddleware(l)(mux)
	h = middleware.Wrap(h)
	s := &http.Server{Addr: addr, Handler: h}
	tlsEnable := os.Getenv("TLS_ENABLE")
	if tlsEnable == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "placestd.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		if os.Getenv("TLS_REDIRECT_ENABLE") == "true" {
			go redirectToHTTPS(addr)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
	}
}

// redirectToHTTPS：把明文请求重定向到 HTTPS 服务端口
func redirectToHTTPS(addr string) {
	l := logger.L()
	redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
	if redirAddr == "" {
		redirAddr = ":80"
	}
	httpsPort := strings.TrimPrefix(addr, ":")
	httpRedir := http.NewServeMux()
	httpRedir.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		baseHost := r.Host
		if i := strings.LastIndex(baseHost, ":"); i != -1 {
			baseHost = baseHost[:i]
		}
		target := "https://" + baseHost
		if httpsPort != "" {
			target += ":" + httpsPort
		}
		target += r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+addr)
	if err := http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(httpRedir)); err != nil {
		l.Error("http_redirect_error", "err", err)
	}
}
