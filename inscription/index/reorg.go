package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/inscription-c/zins/client"
)

var ErrReorg = errors.New("reorg detected")

// detectReorg checks that block, the successor of the last scanned block,
// links to the hash recorded for height last. A height with no stored hash
// is taken as linked.
func (idx *Indexer) detectReorg(ctx context.Context, block *client.BlockResult, last uint32) error {
	stored, err := idx.opts.db.WithContext(ctx).GetBlockInfo(last)
	if err != nil {
		return err
	}
	if stored == nil || stored.Hash == "" {
		return nil
	}
	prev, err := chainhash.NewHashFromStr(block.PreviousHash)
	if err != nil {
		return fmt.Errorf("%w: block %d has no valid previous hash", ErrReorg, block.Height)
	}
	recorded, err := chainhash.NewHashFromStr(stored.Hash)
	if err != nil {
		return fmt.Errorf("%w: stored hash at %d: %v", ErrReorg, last, err)
	}
	if !prev.IsEqual(recorded) {
		return fmt.Errorf("%w: block %d links to %s, recorded %s", ErrReorg, block.Height, prev, recorded)
	}
	return nil
}
