package server

import (
	"fmt"
	"os"
	"time"

	"github.com/inscription-c/zins/client"
	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index"
	"github.com/inscription-c/zins/inscription/index/dao"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/inscription-c/zins/inscription/server/config"
	"github.com/inscription-c/zins/inscription/server/handle"
	"github.com/inscription-c/zins/internal/sapling"
	"github.com/inscription-c/zins/internal/signal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const keyFlag = "key"

var srvKeys []string

var Cmd = &cobra.Command{
	Use:   "indexer",
	Short: "scan the chain for proverb inscriptions and serve them",
	Run: func(cmd *cobra.Command, args []string) {
		if err := loadConfig(cmd, config.SrvCfg, srvKeys); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := IndexSrv(config.SrvCfg); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		<-signal.InterruptHandlersDone
	},
}

func init() {
	cfg := config.SrvCfg
	addCommonFlags(Cmd.Flags(), cfg, &srvKeys)
	Cmd.Flags().StringVarP(&cfg.Server.Listen, "listen", "l", "", "api listen address. Default `mainnet :8335, testnet :18335`")
	Cmd.Flags().BoolVarP(&cfg.Server.NoApi, "no_api", "", false, "don't start api server")
	Cmd.Flags().BoolVarP(&cfg.Server.EnablePProf, "pprof", "", false, "enable pprof")
	Cmd.Flags().BoolVarP(&cfg.Server.Prometheus, "prometheus", "", false, "serve prometheus metrics on /metrics")
	Cmd.Flags().DurationVarP(&cfg.Server.Interval, "interval", "i", constants.DefaultScanInterval, "scan interval")
	Cmd.Flags().DurationVarP(&cfg.Server.Timeout, "timeout", "", constants.DefaultCycleTimeout, "deadline of one scan cycle")
	Cmd.Flags().IntVarP(&cfg.Server.Workers, "workers", "w", constants.DefaultWorkers, "transactions decoded in parallel")
	Cmd.Flags().Uint32VarP(&cfg.Server.ScanDepth, "scan_depth", "", constants.DefaultScanDepth, "recent blocks scanned each cycle, 0 disables the block scan")
	Cmd.Flags().StringVarP(&cfg.Wallet.Url, "wallet_connect", "", "", "wallet RPC URL, empty disables the wallet source")
	Cmd.Flags().StringVarP(&cfg.Wallet.Username, "wallet_user", "", "", "wallet rpc username")
	Cmd.Flags().StringVarP(&cfg.Wallet.Password, "wallet_password", "", "", "wallet rpc password")
	Cmd.Flags().StringVarP(&cfg.Log.File, "log_file", "", "", "log file path")
}

// addCommonFlags binds the flags shared by every command that talks to the
// node and the store.
func addCommonFlags(fs *pflag.FlagSet, cfg *config.SrvConfigs, keys *[]string) {
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "yaml config file path")
	fs.BoolVarP(&cfg.Server.Testnet, "testnet", "t", false, "zcash testnet")
	fs.DurationVarP(&cfg.Server.RPCTimeout, "rpc_timeout", "", constants.DefaultRPCTimeout, "deadline of one rpc call")

	fs.StringVarP(&cfg.Chain.Url, "rpc_connect", "s", "", "the zcash node RPC URL (default http://127.0.0.1:8232, testnet: http://127.0.0.1:18232)")
	fs.StringVarP(&cfg.Chain.Username, "user", "u", "", "node rpc username")
	fs.StringVarP(&cfg.Chain.Password, "password", "P", "", "node rpc password")
	fs.StringVarP(&cfg.Chain.CookieFile, "rpc_cookie", "", "", "node rpc cookie file")

	fs.StringVarP(&cfg.DB.Driver, "db_driver", "", "", "database driver, mysql or sqlite (default sqlite)")
	fs.StringVarP(&cfg.DB.Mysql.Addr, "mysql_addr", "d", "", "mysql database addr")
	fs.StringVarP(&cfg.DB.Mysql.User, "mysql_user", "", "", "mysql database user")
	fs.StringVarP(&cfg.DB.Mysql.Password, "mysql_pass", "", "", "mysql database password")
	fs.StringVarP(&cfg.DB.Mysql.DB, "db", "", "", "mysql database name")
	fs.StringVarP(&cfg.DB.Sqlite.Path, "sqlite_path", "", "", "sqlite database file")

	fs.StringArrayVarP(keys, keyFlag, "k", nil, "sapling viewing key, repeatable")
	fs.StringVarP(&cfg.Log.Level, "log_level", "", "", "log level: trace, debug, info, warn, error, critical")
}

// loadConfig reads the config file and lets explicitly set flags win over
// it, then applies defaults.
func loadConfig(cmd *cobra.Command, cfg *config.SrvConfigs, keys []string) error {
	if cfg.ConfigFile != "" {
		if err := config.LoadFile(cfg, cfg.ConfigFile); err != nil {
			return err
		}
		var err error
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if f.Name == keyFlag || err != nil {
				return
			}
			err = f.Value.Set(f.Value.String())
		})
		if err != nil {
			return err
		}
	}
	cfg.Keys = append(cfg.Keys, keys...)
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// IndexSrv wires the store, rpc clients, indexer, runner and api together
// and starts them. Shutdown is driven by internal/signal.
func IndexSrv(cfg *config.SrvConfigs) error {
	if err := log.InitLogRotator(cfg.Log.File); err != nil {
		return err
	}
	log.SetLogLevels(cfg.Log.Level)
	signal.AddInterruptHandler(log.Close)

	keys, err := parseViewingKeys(cfg.Keys)
	if err != nil {
		return err
	}

	db, err := dao.NewDB(
		dao.WithDriver(cfg.DB.Driver),
		dao.WithAddr(cfg.DB.Mysql.Addr),
		dao.WithUser(cfg.DB.Mysql.User),
		dao.WithPassword(cfg.DB.Mysql.Password),
		dao.WithDBName(cfg.DB.Mysql.DB),
		dao.WithSqlitePath(cfg.DB.Sqlite.Path),
		dao.WithLogger(log.Gorm),
		dao.WithAutoMigrateTables(tables.Tables...),
	)
	if err != nil {
		return err
	}
	signal.AddInterruptHandler(func() {
		if err := db.Close(); err != nil {
			log.Srv.Errorf("db.Close: %v", err)
		}
	})

	chain, err := newRPCClient(&cfg.Chain, cfg.Server.RPCTimeout)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}
	indexOpts := []index.Option{
		index.WithDB(db),
		index.WithChainClient(chain),
		index.WithViewingKeys(keys...),
		index.WithTestnet(cfg.Server.Testnet),
		index.WithRecentCacheSize(cfg.Server.CacheSize),
		index.WithRPCTimeout(cfg.Server.RPCTimeout),
		index.WithWorkers(cfg.Server.Workers),
		index.WithScanDepth(cfg.Server.ScanDepth),
	}
	if cfg.Wallet.Enabled() {
		wallet, err := newRPCClient(&cfg.Wallet, cfg.Server.RPCTimeout)
		if err != nil {
			return fmt.Errorf("wallet client: %w", err)
		}
		indexOpts = append(indexOpts, index.WithWalletClient(wallet))
	}
	indexer := index.NewIndexer(indexOpts...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	runner := NewRunner(
		WithUpdater(indexer),
		WithInterval(cfg.Server.Interval),
		WithCycleTimeout(cfg.Server.Timeout),
		WithMetrics(NewMetrics(registry)),
	)
	if err := runner.Start(); err != nil {
		return err
	}
	signal.AddInterruptHandler(runner.Stop)
	log.Srv.Infof("indexer started: interval %s, %d viewing keys, db %s", cfg.Server.Interval, len(keys), db.Driver())

	if cfg.Server.NoApi {
		return nil
	}
	handleOpts := []handle.Option{
		handle.WithDB(db),
		handle.WithAddr(cfg.Server.Listen),
		handle.WithTestNet(cfg.Server.Testnet),
		handle.WithEnablePProf(cfg.Server.EnablePProf),
		handle.WithIndexer(indexer),
		handle.WithTrigger(runner.Trigger),
	}
	if cfg.Server.Prometheus {
		handleOpts = append(handleOpts, handle.WithGatherer(registry))
	}
	h, err := handle.New(handleOpts...)
	if err != nil {
		return err
	}
	return h.Run()
}

func newRPCClient(rpc *config.RPC, timeout time.Duration) (*client.Client, error) {
	return client.NewClient(
		client.WithURL(rpc.Url),
		client.WithUser(rpc.Username),
		client.WithPassword(rpc.Password),
		client.WithCookieFile(rpc.CookieFile),
		client.WithCert(rpc.Cert),
		client.WithTLSSkipVerify(rpc.TLSSkipVerify),
		client.WithTimeout(timeout),
	)
}

func parseViewingKeys(encoded []string) ([]*sapling.FullViewingKey, error) {
	keys := make([]*sapling.FullViewingKey, 0, len(encoded))
	for i, v := range encoded {
		key, err := sapling.DecodeFullViewingKey(v)
		if err != nil {
			return nil, fmt.Errorf("viewing key %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
