package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inscription-c/zins/constants"
	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  testnet: true
  interval: 2m
  workers: 3
chain:
  url: http://node:18232
  cookie_file: /tmp/.cookie
db:
  driver: MySQL
  mysql:
    addr: db:3306
keys:
  - zxviewtestsapling1abc
log:
  level: debug
`

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "zins.yaml")
	require.NoError(t, os.WriteFile(file, []byte(testConfig), 0600))

	cfg := &SrvConfigs{}
	require.NoError(t, LoadFile(cfg, file))
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	require.True(t, cfg.Server.Testnet)
	require.Equal(t, 2*time.Minute, cfg.Server.Interval)
	require.Equal(t, 3, cfg.Server.Workers)
	require.Equal(t, constants.DefaultCycleTimeout, cfg.Server.Timeout)
	require.Equal(t, "http://node:18232", cfg.Chain.Url)
	require.Equal(t, "/tmp/.cookie", cfg.Chain.CookieFile)
	require.False(t, cfg.Wallet.Enabled())
	require.Equal(t, constants.DriverMysql, cfg.DB.Driver)
	require.Equal(t, "db:3306", cfg.DB.Mysql.Addr)
	require.Equal(t, constants.DefaultDBName, cfg.DB.Mysql.DB)
	require.Equal(t, []string{"zxviewtestsapling1abc"}, cfg.Keys)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Contains(t, cfg.Log.File, "testnet")
}

func TestApplyDefaults(t *testing.T) {
	cfg := &SrvConfigs{}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, mainnetChainUrl, cfg.Chain.Url)
	require.Equal(t, constants.DriverSqlite, cfg.DB.Driver)
	require.Equal(t, constants.SqlitePath(false), cfg.DB.Sqlite.Path)
	require.Equal(t, constants.DefaultScanInterval, cfg.Server.Interval)
	require.Equal(t, uint(constants.DefaultRecentCacheSize), cfg.Server.CacheSize)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := &SrvConfigs{}
	cfg.DB.Driver = "postgres"
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())

	cfg = &SrvConfigs{}
	cfg.Chain.Username = "user"
	cfg.Chain.CookieFile = "/tmp/.cookie"
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())

	require.Error(t, LoadFile(&SrvConfigs{}, filepath.Join(t.TempDir(), "missing.yaml")))
}
