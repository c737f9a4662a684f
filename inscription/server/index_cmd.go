package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index"
	"github.com/inscription-c/zins/inscription/index/dao"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/inscription-c/zins/inscription/server/config"
	"github.com/inscription-c/zins/inscription/server/handle"
	"github.com/spf13/cobra"
)

var (
	indexCfg  = &config.SrvConfigs{}
	indexKeys []string
	indexDry  bool
)

var IndexCmd = &cobra.Command{
	Use:   "index <txid>",
	Short: "decode one transaction and record its inscription",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := loadConfig(cmd, indexCfg, indexKeys); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := indexOne(cmd.Context(), indexCfg, args[0], indexDry); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	addCommonFlags(IndexCmd.Flags(), indexCfg, &indexKeys)
	IndexCmd.Flags().BoolVarP(&indexDry, "dry_run", "", false, "decode only, don't write the database")
}

func indexOne(ctx context.Context, cfg *config.SrvConfigs, txid string, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.SetLogLevels(cfg.Log.Level)

	keys, err := parseViewingKeys(cfg.Keys)
	if err != nil {
		return err
	}
	chain, err := newRPCClient(&cfg.Chain, cfg.Server.RPCTimeout)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}
	opts := []index.Option{
		index.WithChainClient(chain),
		index.WithViewingKeys(keys...),
		index.WithTestnet(cfg.Server.Testnet),
		index.WithRPCTimeout(cfg.Server.RPCTimeout),
	}

	var ins *tables.Inscription
	if dryRun {
		ins, err = index.NewIndexer(opts...).ScanTransaction(ctx, txid)
	} else {
		db, dbErr := dao.NewDB(
			dao.WithDriver(cfg.DB.Driver),
			dao.WithAddr(cfg.DB.Mysql.Addr),
			dao.WithUser(cfg.DB.Mysql.User),
			dao.WithPassword(cfg.DB.Mysql.Password),
			dao.WithDBName(cfg.DB.Mysql.DB),
			dao.WithSqlitePath(cfg.DB.Sqlite.Path),
			dao.WithLogger(log.Gorm),
			dao.WithAutoMigrateTables(tables.Tables...),
		)
		if dbErr != nil {
			return dbErr
		}
		defer db.Close()
		ins, err = index.NewIndexer(append(opts, index.WithDB(db))...).IndexTransaction(ctx, txid)
	}
	if err != nil {
		return err
	}
	if ins == nil {
		return fmt.Errorf("no %s inscription in %s", constants.AppName, txid)
	}

	out, err := json.MarshalIndent(handle.NewInscriptionEntry(ins), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
