package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGOptionsFromEnv(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_USER", "gaz")
	t.Setenv("PG_PASSWORD", "p@ss/word")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	t.Setenv("PG_APP_NAME", "")
	t.Setenv("PG_MAX_OPEN_CONNS", "8")
	t.Setenv("PG_MAX_IDLE_CONNS", "-1")
	t.Setenv("PG_CONN_MAX_LIFETIME_S", "x")

	o := PGOptionsFromEnv()
	assert.Equal(t, 8, o.MaxOpenConns)
	assert.Equal(t, 25, o.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, o.ConnMaxLife)
	assert.Equal(t, "postgres://gaz:p%40ss%2Fword@db:5432/places?application_name=placestd&sslmode=disable", o.ConnString())

	t.Setenv("PG_DSN", "postgres://x@y/z")
	assert.Equal(t, "postgres://x@y/z", PGOptionsFromEnv().ConnString())
}

func TestConnStringWithoutPassword(t *testing.T) {
	o := PGOptions{Host: "localhost", Port: "5432", User: "postgres", Database: "places", SSLMode: "require"}
	assert.Equal(t, "postgres://postgres@localhost:5432/places?sslmode=require", o.ConnString())
}

func TestOpenDBFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o := PGOptions{Host: "127.0.0.1", Port: "1", User: "postgres", Database: "places", SSLMode: "disable", MaxOpenConns: 2, MaxIdleConns: 4}
	db, err := OpenDB(ctx, o)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "ping postgres 127.0.0.1:1/places")
}
