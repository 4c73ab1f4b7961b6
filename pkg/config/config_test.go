package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sifen-dte/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.SIFEN.Environment)
	assert.Equal(t, 2*time.Minute, cfg.Dispatcher.Interval)
	assert.Equal(t, 30*time.Second, cfg.Dispatcher.OfflineInterval)
	assert.Equal(t, 30*time.Second, cfg.Dispatcher.InitialDelay)
	assert.Equal(t, time.Second, cfg.Dispatcher.DelayBetween)
	assert.Equal(t, 10, cfg.Dispatcher.MaxPerCycle)
	assert.Equal(t, 3, cfg.Dispatcher.MaxAttempts)
	assert.Len(t, cfg.Dispatcher.ProbeHosts, 3)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("DISPATCHER_INTERVAL", "45")
	v.Set("DISPATCHER_OFFLINE_INTERVAL", "1m")
	v.Set("DISPATCHER_PROBE_HOSTS", "a.py, b.py")
	v.Set("SIFEN_RPS", "0.5")
	v.Set("DB_PORT", "6543")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Dispatcher.Interval, "entero = segundos")
	assert.Equal(t, time.Minute, cfg.Dispatcher.OfflineInterval)
	assert.Equal(t, []string{"a.py", "b.py"}, cfg.Dispatcher.ProbeHosts)
	assert.InDelta(t, 0.5, cfg.SIFEN.RequestsPerSecond, 1e-9)
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	v.Set("SIFEN_ENV", "prod")
	_, err := config.FromViper(v)
	assert.Error(t, err, "prod sin CSC")

	v = viper.New()
	v.Set("SIFEN_ENV", "staging")
	_, err = config.FromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("APP_ENV", "production")
	_, err = config.FromViper(v)
	assert.Error(t, err, "producción sin JWT_SECRET")
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "sifen", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:5432/sifen?sslmode=disable", c.DSN())
}
