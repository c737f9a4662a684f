package client

import (
	"context"
	"strconv"
)

// GetRawTransaction returns the verbose form of txid.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (*RawTransactionResult, error) {
	resp := &RawTransactionResult{}
	if err := c.SendRequest(ctx, "getrawtransaction", resp, txid, 1); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlockCount returns the height of the chain tip.
func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	var count int64
	if err := c.SendRequest(ctx, "getblockcount", &count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetBlockHash returns the hash of the block at height.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := c.SendRequest(ctx, "getblockhash", &hash, height); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlock returns a block at verbosity 2, with every transaction decoded.
// hashOrHeight may be a block hash or a decimal height.
func (c *Client) GetBlock(ctx context.Context, hashOrHeight string) (*BlockResult, error) {
	resp := &BlockResult{}
	if err := c.SendRequest(ctx, "getblock", resp, hashOrHeight, 2); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlockByHeight is GetBlock addressed by height.
func (c *Client) GetBlockByHeight(ctx context.Context, height int64) (*BlockResult, error) {
	return c.GetBlock(ctx, strconv.FormatInt(height, 10))
}

// GetAddressTxids returns the txids touching any of req.Addresses, which
// needs the node's address index.
func (c *Client) GetAddressTxids(ctx context.Context, req *AddressTxidsRequest) ([]string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	resp := make([]string, 0)
	if err := c.SendRequest(ctx, "getaddresstxids", &resp, req); err != nil {
		return nil, err
	}
	return resp, nil
}
