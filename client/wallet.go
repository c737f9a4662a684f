package client

import (
	"context"
)

const walletAccountAll = "*"

// ListTransactions returns the most recent count wallet transactions.
func (c *Client) ListTransactions(ctx context.Context, count int) ([]WalletTransaction, error) {
	resp := make([]WalletTransaction, 0)
	if err := c.SendRequest(ctx, "listtransactions", &resp, walletAccountAll, count); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTransaction returns the wallet view of txid.
func (c *Client) GetTransaction(ctx context.Context, txid string) (*WalletTransactionDetail, error) {
	resp := &WalletTransactionDetail{}
	if err := c.SendRequest(ctx, "gettransaction", resp, txid); err != nil {
		return nil, err
	}
	return resp, nil
}
