package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://r.jina.ai/http://", cfg.Sales.ProxyPrefix)
	assert.Equal(t, 20*time.Second, cfg.Sales.FetchTimeout)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SALES_CSV_URL", "https://sheet.example/pub?output=csv")
	t.Setenv("SALES_FETCH_TIMEOUT_SECONDS", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("GS_WEBAPP_URL", "https://script.example/exec")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "https://sheet.example/pub?output=csv", cfg.Sales.CSVURL)
	assert.Equal(t, 5*time.Second, cfg.Sales.FetchTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, "https://script.example/exec", cfg.Relay.WebAppURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"zero timeout", "SALES_FETCH_TIMEOUT_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSalesConfig_Location(t *testing.T) {
	c := SalesConfig{Timezone: "UTC"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	c.Timezone = "Mars/Olympus"
	_, err = c.Location()
	assert.Error(t, err)
}
