package constants

import (
	"github.com/btcsuite/btcd/btcutil"
	"path/filepath"
	"time"
)

const (
	DefaultDBName    = "zins"
	DefaultDBUser    = "root"
	DefaultDBPass    = ""
	DefaultMysqlAddr = "127.0.0.1:3306"

	DriverMysql  = "mysql"
	DriverSqlite = "sqlite"
)

const (
	DefaultScanInterval    = 10 * time.Minute
	DefaultRPCTimeout      = 30 * time.Second
	DefaultCycleTimeout    = 9 * time.Minute
	DefaultRecentCacheSize = 1_000
	DefaultScanDepth       = 20
	DefaultWorkers         = 8
	DefaultWalletTxCount   = 100
	// DefaultPendingLimit bounds the unmined rows revisited per cycle.
	DefaultPendingLimit    = 500
)

func DataDir(testnet bool) string {
	if testnet {
		return btcutil.AppDataDir(filepath.Join(AppName, "testnet"), false)
	}
	return btcutil.AppDataDir(filepath.Join(AppName, "mainnet"), false)
}

func SqlitePath(testnet bool) string {
	return filepath.Join(DataDir(testnet), "zins.db")
}
