package utils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// 文档注释：地名库 Postgres 连接参数
// 背景：服务与导入命令共用同一组 PG_* 环境变量；DSN 非空时其余地址字段忽略，连接池参数仍然生效。
type PGOptions struct {
	DSN          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	AppName      string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// PGOptionsFromEnv：未设置或无法解析的数值项回退默认值
func PGOptionsFromEnv() PGOptions {
	return PGOptions{
		DSN:          os.Getenv("PG_DSN"),
		Host:         envOr("PG_HOST", "localhost"),
		Port:         envOr("PG_PORT", "5432"),
		User:         envOr("PG_USER", "postgres"),
		Password:     os.Getenv("PG_PASSWORD"),
		Database:     envOr("PG_DB", "places"),
		SSLMode:      envOr("PG_SSLMODE", "disable"),
		AppName:      envOr("PG_APP_NAME", "placestd"),
		MaxOpenConns: envPositive("PG_MAX_OPEN_CONNS", 50),
		MaxIdleConns: envPositive("PG_MAX_IDLE_CONNS", 25),
		ConnMaxLife:  time.Duration(envPositive("PG_CONN_MAX_LIFETIME_S", 1800)) * time.Second,
	}
}

// ConnString：用户名与密码按 URL 规则转义，"p@ss" 这类密码可以直接写入环境变量
func (o PGOptions) ConnString() string {
	if o.DSN != "" {
		return o.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   o.Host + ":" + o.Port,
		Path:   "/" + o.Database,
	}
	if o.Password != "" {
		u.User = url.UserPassword(o.User, o.Password)
	} else {
		u.User = url.User(o.User)
	}
	q := url.Values{}
	q.Set("sslmode", o.SSLMode)
	if o.AppName != "" {
		q.Set("application_name", o.AppName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// 文档注释：打开并探活连接池
// 返回：探活失败时连接池已关闭，调用方无需再 Close。
func OpenDB(ctx context.Context, o PGOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", o.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(min(o.MaxIdleConns, o.MaxOpenConns))
	db.SetConnMaxLifetime(o.ConnMaxLife)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%s/%s: %w", o.Host, o.Port, o.Database, err)
	}
	return db, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envPositive(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}
