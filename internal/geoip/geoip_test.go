package geoip

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabled(t *testing.T) {
	r, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, r)
	// 未配置时查询安全返回空
	assert.Equal(t, "", r.CountryName("8.8.8.8"))
	assert.NoError(t, r.Close())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"))
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{"query", "/resolve?ip=1.2.3.4", map[string]string{"x-forwarded-for": "5.6.7.8"}, "1.2.3.4"},
		{"xff", "/resolve", map[string]string{"x-forwarded-for": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"real ip", "/resolve", map[string]string{"x-real-ip": "9.9.9.9"}, "9.9.9.9"},
		{"forwarded", "/resolve", map[string]string{"forwarded": `for="7.7.7.7";proto=https`}, "7.7.7.7"},
		{"remote", "/resolve", nil, "192.0.2.1"},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", c.target, nil)
		for k, v := range c.header {
			r.Header.Set(k, v)
		}
		assert.Equal(t, c.want, ClientIP(r), c.name)
	}
}
