package index

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/decred/dcrd/lru"
	"github.com/inscription-c/zins/client"
	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index/dao"
	"github.com/inscription-c/zins/inscription/index/model"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/inscription-c/zins/internal/sapling"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoDB          = errors.New("indexer: no database")
	ErrNoChainClient = errors.New("indexer: no chain client")
	ErrInvalidTxid   = errors.New("invalid txid")
)

// ChainClient is the part of the node RPC the indexer reads from.
type ChainClient interface {
	GetRawTransaction(ctx context.Context, txid string) (*client.RawTransactionResult, error)
	GetBlockCount(ctx context.Context) (int64, error)
	GetBlockByHeight(ctx context.Context, height int64) (*client.BlockResult, error)
	GetAddressTxids(ctx context.Context, req *client.AddressTxidsRequest) ([]string, error)
}

// WalletClient lists the transactions a wallet has seen.
type WalletClient interface {
	ListTransactions(ctx context.Context, count int) ([]client.WalletTransaction, error)
}

type Options struct {
	db     *dao.DB
	chain  ChainClient
	wallet WalletClient

	keys      []*sapling.FullViewingKey
	addresses []string
	testnet   bool

	recentCacheSize uint
	rpcTimeout      time.Duration
	workers         int
	scanDepth       uint32
	walletTxCount   int
}

type Option func(*Options)

func WithDB(db *dao.DB) func(*Options) {
	return func(options *Options) {
		options.db = db
	}
}

func WithChainClient(cli ChainClient) func(*Options) {
	return func(options *Options) {
		options.chain = cli
	}
}

// WithWalletClient enables the wallet source. A nil client leaves it off.
func WithWalletClient(cli WalletClient) func(*Options) {
	return func(options *Options) {
		options.wallet = cli
	}
}

func WithViewingKeys(keys ...*sapling.FullViewingKey) func(*Options) {
	return func(options *Options) {
		options.keys = append(options.keys, keys...)
	}
}

// WithAddresses replaces the transparent addresses polled with
// getaddresstxids. The act addresses are used by default.
func WithAddresses(addresses ...string) func(*Options) {
	return func(options *Options) {
		options.addresses = addresses
	}
}

func WithTestnet(testnet bool) func(*Options) {
	return func(options *Options) {
		options.testnet = testnet
	}
}

func WithRecentCacheSize(size uint) func(*Options) {
	return func(options *Options) {
		options.recentCacheSize = size
	}
}

func WithRPCTimeout(timeout time.Duration) func(*Options) {
	return func(options *Options) {
		options.rpcTimeout = timeout
	}
}

func WithWorkers(workers int) func(*Options) {
	return func(options *Options) {
		options.workers = workers
	}
}

func WithScanDepth(depth uint32) func(*Options) {
	return func(options *Options) {
		options.scanDepth = depth
	}
}

func WithWalletTxCount(count int) func(*Options) {
	return func(options *Options) {
		options.walletTxCount = count
	}
}

// Indexer decodes candidate transactions and records every inscription it
// finds. Decoding fans out over a worker pool, writes are sequential.
type Indexer struct {
	opts *Options

	// recent holds txids upserted by earlier cycles. The store stays the
	// source of truth, a miss here only costs a decode.
	recent *lru.Cache
}

func NewIndexer(opts ...Option) *Indexer {
	idx := &Indexer{
		opts: &Options{
			addresses:       constants.ActAddresses(),
			recentCacheSize: constants.DefaultRecentCacheSize,
			rpcTimeout:      constants.DefaultRPCTimeout,
			workers:         constants.DefaultWorkers,
			scanDepth:       constants.DefaultScanDepth,
			walletTxCount:   constants.DefaultWalletTxCount,
		},
	}
	for _, v := range opts {
		v(idx.opts)
	}
	if idx.opts.workers <= 0 {
		idx.opts.workers = 1
	}
	recent := lru.NewCache(idx.opts.recentCacheSize)
	idx.recent = &recent
	return idx
}

// DB returns the store the indexer writes to.
func (idx *Indexer) DB() *dao.DB {
	return idx.opts.db
}

func (idx *Indexer) seen(txid string) bool {
	return idx.recent.Contains(txid)
}

func (idx *Indexer) remember(txid string) {
	idx.recent.Add(txid)
}

// candidate is a transaction to decode. tx is set when the block scan
// already fetched it.
type candidate struct {
	txid string
	tx   *client.RawTransactionResult
}

// UpdateIndex runs one scan cycle: the act addresses, the wallet, the most
// recent blocks, then the rows recorded before they were mined. A failing
// source and a row the store rejects are logged and skipped. Failing to read
// the tip or to read the store aborts the cycle, as does failing to record
// the scanned blocks.
func (idx *Indexer) UpdateIndex(ctx context.Context) error {
	if idx.opts.db == nil {
		return ErrNoDB
	}
	if idx.opts.chain == nil {
		return ErrNoChainClient
	}

	start := time.Now()
	tip, err := idx.blockCount(ctx)
	if err != nil {
		return fmt.Errorf("getblockcount: %w", err)
	}

	var candidates []candidate
	queued := make(map[string]struct{})
	enqueue := func(txid string, tx *client.RawTransactionResult) {
		if _, ok := queued[txid]; ok {
			return
		}
		queued[txid] = struct{}{}
		candidates = append(candidates, candidate{txid: txid, tx: tx})
	}

	txids, err := idx.addressTxids(ctx)
	if err != nil {
		log.Idx.Warnf("address scan: %v", err)
	}
	for _, txid := range txids {
		enqueue(txid, nil)
	}

	txids, err = idx.walletTxids(ctx)
	if err != nil {
		log.Idx.Warnf("wallet scan: %v", err)
	}
	for _, txid := range txids {
		enqueue(txid, nil)
	}

	blocks, err := idx.recentBlocks(ctx, tip)
	if err != nil {
		log.Idx.Warnf("block scan: %v", err)
	}
	for _, block := range blocks {
		for _, tx := range block.Tx {
			if tx.Tx == nil {
				enqueue(tx.Txid, nil)
				continue
			}
			if tx.Tx.Height == 0 {
				tx.Tx.Height = block.Height
			}
			if tx.Tx.BlockTime == 0 {
				tx.Tx.BlockTime = block.Time
			}
			if tx.Tx.Confirmations == 0 {
				tx.Tx.Confirmations = block.Confirmations
			}
			enqueue(tx.Txid, tx.Tx)
		}
	}

	txids, err = idx.opts.db.WithContext(ctx).PendingTxids(constants.DefaultPendingLimit)
	if err != nil {
		log.Idx.Warnf("pending rows: %v", err)
	}
	for _, txid := range txids {
		enqueue(txid, nil)
	}

	found, err := idx.decodeCandidates(ctx, candidates, tip)
	if err != nil {
		return err
	}

	db := idx.opts.db.WithContext(ctx)
	written := 0
	for _, ins := range found {
		if err := db.UpsertInscription(ins); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Idx.Errorf("upsert %s: %v", ins.Txid, err)
			continue
		}
		written++
		if ins.BlockHeight > 0 {
			idx.remember(ins.Txid)
		}
	}
	for _, block := range blocks {
		if err := db.SaveBlockInfo(&tables.BlockInfo{
			Height:    uint32(block.Height),
			Hash:      block.Hash,
			Timestamp: block.Time,
		}); err != nil {
			return fmt.Errorf("save block %d: %w", block.Height, err)
		}
	}
	if tip > 0 {
		if _, err := db.RefreshConfirmations(uint32(tip)); err != nil {
			return fmt.Errorf("refresh confirmations: %w", err)
		}
	}

	log.Idx.Infof("cycle done: tip %d, %d candidates, %d blocks, %d/%d inscriptions written, took %s",
		tip, len(candidates), len(blocks), written, len(found), time.Since(start))
	return nil
}

// decodeCandidates decodes candidates on a bounded worker pool. A
// transaction that cannot be fetched is logged and left for the next cycle.
func (idx *Indexer) decodeCandidates(ctx context.Context, candidates []candidate, tip int64) ([]*tables.Inscription, error) {
	results := make([]*tables.Inscription, len(candidates))

	var lookupErr error
	errWg, ctx := errgroup.WithContext(ctx)
	errWg.SetLimit(idx.opts.workers)
	for i := range candidates {
		c := candidates[i]
		if idx.seen(c.txid) {
			continue
		}
		height, exists, err := idx.opts.db.WithContext(ctx).InscriptionHeight(c.txid)
		if err != nil {
			lookupErr = err
			break
		}
		// Mined rows only need fresh confirmations, which the cycle applies
		// in bulk. Unmined rows are decoded again so the upsert can fill in
		// the block.
		if exists && height > 0 {
			idx.remember(c.txid)
			continue
		}
		pos := i
		errWg.Go(func() error {
			tx := c.tx
			if tx == nil {
				var err error
				tx, err = idx.rawTransaction(ctx, c.txid)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Idx.Warnf("getrawtransaction %s: %v", c.txid, err)
					return nil
				}
			}
			results[pos] = idx.decodeTransaction(tx, tip)
			return nil
		})
	}
	if err := errWg.Wait(); err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, lookupErr
	}

	found := make([]*tables.Inscription, 0)
	for _, ins := range results {
		if ins != nil {
			found = append(found, ins)
		}
	}
	return found, nil
}

// ScanTransaction fetches txid and decodes it. It returns nil when the
// transaction carries nothing recognizable.
func (idx *Indexer) ScanTransaction(ctx context.Context, txid string) (*tables.Inscription, error) {
	if idx.opts.chain == nil {
		return nil, ErrNoChainClient
	}
	if !constants.TxidRegexp.MatchString(txid) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTxid, txid)
	}
	tx, err := idx.rawTransaction(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("getrawtransaction %s: %w", txid, err)
	}

	tip := int64(0)
	if tx.Confirmations == 0 && tx.Height > 0 {
		if tip, err = idx.blockCount(ctx); err != nil {
			return nil, fmt.Errorf("getblockcount: %w", err)
		}
	}
	return idx.decodeTransaction(tx, tip), nil
}

// IndexTransaction scans txid and upserts the result. It returns nil when
// nothing was found.
func (idx *Indexer) IndexTransaction(ctx context.Context, txid string) (*tables.Inscription, error) {
	if idx.opts.db == nil {
		return nil, ErrNoDB
	}
	ins, err := idx.ScanTransaction(ctx, txid)
	if err != nil || ins == nil {
		return nil, err
	}
	db := idx.opts.db.WithContext(ctx)
	if err := db.UpsertInscription(ins); err != nil {
		return nil, err
	}
	if ins.BlockHeight > 0 {
		idx.remember(ins.Txid)
	}
	return db.GetInscriptionByTxid(ins.Txid)
}

// List returns indexed inscriptions ordered by act ascending then height
// descending. A nil act lists every act.
func (idx *Indexer) List(ctx context.Context, act *int) ([]*tables.Inscription, error) {
	if idx.opts.db == nil {
		return nil, ErrNoDB
	}
	list, _, err := idx.opts.db.WithContext(ctx).ListInscriptions(act, 0, 0)
	return list, err
}

func (idx *Indexer) CountByAct(ctx context.Context) ([]dao.ActCount, error) {
	if idx.opts.db == nil {
		return nil, ErrNoDB
	}
	return idx.opts.db.WithContext(ctx).CountByAct()
}

// decodeTransaction tries the transparent inputs first and the shielded
// outputs second. tip is only consulted when the node left out the
// confirmation count.
func (idx *Indexer) decodeTransaction(tx *client.RawTransactionResult, tip int64) *tables.Inscription {
	scriptSigs, outputs := idx.transactionParts(tx)

	var (
		parsed *model.Inscription
		source = constants.SourceInscription
		from   string
	)
	if envelope := ExtractEnvelopes(scriptSigs); envelope != nil {
		if ins := ParseContent(envelope.Content); ins.Valid() {
			parsed = ins
			from = constants.ActAddress(ins.Act)
			if envelope.Partial {
				log.Idx.Debugf("tx %s: truncated content push salvaged", tx.Txid)
			}
		}
	}
	if parsed == nil && len(idx.opts.keys) > 0 {
		for _, out := range outputs {
			note, _ := sapling.TryDecrypt(out, idx.opts.keys)
			if note == nil || !note.HasMemo {
				continue
			}
			text, ok := MemoText(note.Memo[:])
			if !ok {
				continue
			}
			ins := ParseMemo(text)
			if !ins.Valid() {
				continue
			}
			parsed = ins
			source = constants.SourceShielded
			addr, err := note.Address.Encode(constants.PaymentAddressHRP(idx.opts.testnet))
			if err == nil {
				from = addr
			}
			break
		}
	}
	if parsed == nil {
		return nil
	}

	confirmations := tx.Confirmations
	if confirmations <= 0 && tx.Height > 0 && tip >= tx.Height {
		confirmations = tip - tx.Height + 1
	}
	if confirmations < 0 {
		confirmations = 0
	}
	height := tx.Height
	if height < 0 {
		height = 0
	}

	ins := &tables.Inscription{
		Txid:          tx.Txid,
		BlockHeight:   uint32(height),
		BlockTime:     tx.Timestamp(),
		Version:       parsed.Version,
		ActNumber:     parsed.Act,
		ActTitle:      parsed.ActTitle(),
		Proverb:       parsed.Payload,
		EmojiSpell:    parsed.Tag,
		MatchScore:    decimal.NewFromFloat(parsed.Score).Round(3),
		ContentHash:   parsed.Hash,
		RefTxid:       parsed.Ref,
		RawContent:    parsed.Raw,
		SourceAddress: from,
		Source:        source.String(),
		Confirmations: uint32(confirmations),
	}
	ins.Fit()
	return ins
}

// transactionParts takes the scripts and Sapling outputs from the raw hex,
// falling back to the decoded JSON fields when the hex is absent or in a
// format the parser does not know.
func (idx *Indexer) transactionParts(tx *client.RawTransactionResult) ([][]byte, []*sapling.ShieldedOutput) {
	if tx.Hex != "" {
		parsed, err := decodeRawHex(tx.Hex)
		if err == nil {
			return parsed.ScriptSigs(), parsed.ShieldedOutputs
		}
		log.Idx.Debugf("tx %s: raw hex not decoded, using json fields: %v", tx.Txid, err)
	}

	outputs := make([]*sapling.ShieldedOutput, 0, len(tx.VShieldedOutput))
	for i := range tx.VShieldedOutput {
		out, err := tx.VShieldedOutput[i].ShieldedOutput()
		if err != nil {
			log.Idx.Debugf("tx %s: shielded output %d: %v", tx.Txid, i, err)
			continue
		}
		outputs = append(outputs, out)
	}
	return tx.ScriptSigs(), outputs
}

func decodeRawHex(s string) (*RawTransaction, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParseRawTransaction(raw)
}

func (idx *Indexer) addressTxids(ctx context.Context) ([]string, error) {
	if len(idx.opts.addresses) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, idx.opts.rpcTimeout)
	defer cancel()
	return idx.opts.chain.GetAddressTxids(ctx, &client.AddressTxidsRequest{Addresses: idx.opts.addresses})
}

func (idx *Indexer) walletTxids(ctx context.Context) ([]string, error) {
	if idx.opts.wallet == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, idx.opts.rpcTimeout)
	defer cancel()
	txs, err := idx.opts.wallet.ListTransactions(ctx, idx.opts.walletTxCount)
	if err != nil {
		return nil, err
	}
	txids := make([]string, 0, len(txs))
	for _, tx := range txs {
		txids = append(txids, tx.Txid)
	}
	return txids, nil
}

// recentBlocks fetches the blocks after the last recorded one, at most
// scanDepth of them. When the stored tip no longer links to the chain the
// window is scanned again from tip - scanDepth. Blocks fetched before an
// error are still returned.
func (idx *Indexer) recentBlocks(ctx context.Context, tip int64) ([]*client.BlockResult, error) {
	if idx.opts.scanDepth == 0 || tip <= 0 {
		return nil, nil
	}
	last, err := idx.opts.db.WithContext(ctx).BlockHeight()
	if err != nil {
		return nil, err
	}

	floor := tip - int64(idx.opts.scanDepth) + 1
	if floor < 1 {
		floor = 1
	}
	if int64(last) > tip {
		log.Idx.Warnf("recorded block %d is above tip %d, rescanning from %d", last, tip, floor)
		return idx.rescan(ctx, floor, tip)
	}
	from := int64(last) + 1
	if from < floor {
		from = floor
	}

	blocks := make([]*client.BlockResult, 0, tip-from+1)
	for height := from; height <= tip; height++ {
		block, err := idx.block(ctx, height)
		if err != nil {
			return blocks, fmt.Errorf("getblock %d: %w", height, err)
		}
		if height == int64(last)+1 && last > 0 {
			if err := idx.detectReorg(ctx, block, last); err != nil {
				log.Idx.Warnf("%v, rescanning from %d", err, floor)
				if floor < from {
					return idx.rescan(ctx, floor, tip)
				}
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (idx *Indexer) rescan(ctx context.Context, from, tip int64) ([]*client.BlockResult, error) {
	blocks := make([]*client.BlockResult, 0, tip-from+1)
	for height := from; height <= tip; height++ {
		block, err := idx.block(ctx, height)
		if err != nil {
			return blocks, fmt.Errorf("getblock %d: %w", height, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (idx *Indexer) blockCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.opts.rpcTimeout)
	defer cancel()
	return idx.opts.chain.GetBlockCount(ctx)
}

func (idx *Indexer) block(ctx context.Context, height int64) (*client.BlockResult, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.opts.rpcTimeout)
	defer cancel()
	return idx.opts.chain.GetBlockByHeight(ctx, height)
}

func (idx *Indexer) rawTransaction(ctx context.Context, txid string) (*client.RawTransactionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.opts.rpcTimeout)
	defer cancel()
	return idx.opts.chain.GetRawTransaction(ctx, txid)
}
