package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/inscription-c/zins/constants"
	"gopkg.in/yaml.v2"
)

var SrvCfg = &SrvConfigs{}

// RPC holds the connection settings of a node or wallet endpoint.
type RPC struct {
	Url           string `yaml:"url"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	CookieFile    string `yaml:"cookie_file"`
	Cert          string `yaml:"cert"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify"`
}

// Enabled reports whether an endpoint was configured.
func (r *RPC) Enabled() bool {
	return r.Url != ""
}

// SrvConfigs holds the configuration of the indexer server.
type SrvConfigs struct {
	ConfigFile string `yaml:"-"`
	Server     struct {
		Testnet     bool          `yaml:"testnet"`
		Listen      string        `yaml:"listen"`
		NoApi       bool          `yaml:"no_api"`
		EnablePProf bool          `yaml:"pprof"`
		Prometheus  bool          `yaml:"prometheus"`
		Interval    time.Duration `yaml:"interval"`
		Timeout     time.Duration `yaml:"timeout"`
		RPCTimeout  time.Duration `yaml:"rpc_timeout"`
		Workers     int           `yaml:"workers"`
		ScanDepth   uint32        `yaml:"scan_depth"`
		CacheSize   uint          `yaml:"cache_size"`
	} `yaml:"server"`
	Chain  RPC `yaml:"chain"`
	Wallet RPC `yaml:"wallet"`
	DB     struct {
		Driver string `yaml:"driver"`
		Mysql  struct {
			Addr     string `yaml:"addr"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DB       string `yaml:"db"`
		} `yaml:"mysql"`
		Sqlite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"db"`
	// Keys are Sapling viewing keys used to decrypt shielded memos.
	Keys []string `yaml:"keys"`
	Log  struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

const (
	mainnetChainUrl = "http://127.0.0.1:8232"
	testnetChainUrl = "http://127.0.0.1:18232"
)

// LoadFile decodes the yaml file into cfg. Fields already set by flags that
// the file also sets are overwritten, so callers load before parsing flags
// or re-apply flags afterwards.
func LoadFile(cfg *SrvConfigs, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}
	return nil
}

// ApplyDefaults fills in every unset field.
func (c *SrvConfigs) ApplyDefaults() {
	if c.Server.Interval <= 0 {
		c.Server.Interval = constants.DefaultScanInterval
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = constants.DefaultCycleTimeout
	}
	if c.Server.RPCTimeout <= 0 {
		c.Server.RPCTimeout = constants.DefaultRPCTimeout
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = constants.DefaultWorkers
	}
	if c.Server.CacheSize == 0 {
		c.Server.CacheSize = constants.DefaultRecentCacheSize
	}
	if c.Chain.Url == "" {
		c.Chain.Url = mainnetChainUrl
		if c.Server.Testnet {
			c.Chain.Url = testnetChainUrl
		}
	}

	c.DB.Driver = strings.ToLower(c.DB.Driver)
	if c.DB.Driver == "" {
		c.DB.Driver = constants.DriverSqlite
	}
	if c.DB.Mysql.Addr == "" {
		c.DB.Mysql.Addr = constants.DefaultMysqlAddr
	}
	if c.DB.Mysql.User == "" {
		c.DB.Mysql.User = constants.DefaultDBUser
	}
	if c.DB.Mysql.DB == "" {
		c.DB.Mysql.DB = constants.DefaultDBName
	}
	if c.DB.Sqlite.Path == "" {
		c.DB.Sqlite.Path = constants.SqlitePath(c.Server.Testnet)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = LogFile(c.Server.Testnet)
	}
}

// Validate checks the settings that have no usable default.
func (c *SrvConfigs) Validate() error {
	switch c.DB.Driver {
	case constants.DriverMysql, constants.DriverSqlite:
	default:
		return fmt.Errorf("unknown db driver %q", c.DB.Driver)
	}
	if c.Chain.Username != "" && c.Chain.CookieFile != "" {
		return fmt.Errorf("chain: set either username or cookie_file")
	}
	return nil
}

func LogFile(testnet bool) string {
	return filepath.Join(btcutil.AppDataDir(constants.AppName, false), "logs", network(testnet), "zins.log")
}

func network(testnet bool) string {
	if testnet {
		return "testnet"
	}
	return "mainnet"
}
