package config_test

import (
	"testing"
	"time"

	"ecapp/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
}

func TestLoad_SandboxDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MOMO_PARTNER_CODE", "")
	t.Setenv("MOMO_ACCESS_KEY", "")
	t.Setenv("MOMO_SECRET_KEY", "")
	t.Setenv("FE_URL", "http://localhost:3000/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "MOMO", cfg.MoMo.PartnerCode)
	assert.Equal(t, "F8BBA842ECF85", cfg.MoMo.AccessKey)
	assert.Equal(t, 30*time.Second, cfg.MoMo.Timeout)
	assert.Equal(t, "http://localhost:3000/payment/result", cfg.MoMo.RedirectURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Duration(0), cfg.SoldCountInterval)
}

func TestLoad_ProdRequiresMoMoKeys(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GO_ENV", "prod")
	t.Setenv("MOMO_PARTNER_CODE", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOMO_PARTNER_CODE")
}

func TestLoad_PostgresFieldsWhenNoURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PORT", "abc")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_PORT")
}

func TestLoad_SoldCountInterval(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SOLD_COUNT_INTERVAL", "1h")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.SoldCountInterval)
}
