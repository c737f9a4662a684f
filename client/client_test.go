package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/inscription-c/zins/internal/sapling"
	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     uint64            `json:"id"`
}

// newRPCServer answers each call with handler(method, params) and records
// the basic auth user it saw.
func newRPCServer(t *testing.T, handler func(call *rpcCall) (interface{}, *btcjson.RPCError)) (*httptest.Server, *string) {
	t.Helper()
	var seenUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		seenUser = user
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		call := &rpcCall{}
		require.NoError(t, json.Unmarshal(body, call))

		result, rpcErr := handler(call)
		if rpcErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": result,
			"error":  rpcErr,
			"id":     call.ID,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seenUser
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient()
	require.Error(t, err)
	_, err = NewClient(WithURL("not a url"))
	require.Error(t, err)
	_, err = NewClient(WithURL("http://127.0.0.1:8232"))
	require.NoError(t, err)
}

func TestSendRequest(t *testing.T) {
	srv, user := newRPCServer(t, func(call *rpcCall) (interface{}, *btcjson.RPCError) {
		switch call.Method {
		case "getblockcount":
			require.Empty(t, call.Params)
			return 2800000, nil
		case "getblockhash":
			require.Equal(t, "42", string(call.Params[0]))
			return "00ab", nil
		default:
			return nil, &btcjson.RPCError{Code: btcjson.ErrRPCMethodNotFound.Code, Message: "Method not found"}
		}
	})
	cli, err := NewClient(WithURL(srv.URL), WithUser("zins"), WithPassword("secret"))
	require.NoError(t, err)

	count, err := cli.GetBlockCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2800000), count)
	require.Equal(t, "zins", *user)

	hash, err := cli.GetBlockHash(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "00ab", hash)

	err = cli.SendRequest(context.Background(), "nosuchmethod", nil)
	var rpcErr *btcjson.RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, btcjson.ErrRPCMethodNotFound.Code, rpcErr.Code)
}

func TestSendRequestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	cli, err := NewClient(WithURL(srv.URL))
	require.NoError(t, err)
	_, err = cli.GetBlockCount(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestCookieFile(t *testing.T) {
	srv, user := newRPCServer(t, func(call *rpcCall) (interface{}, *btcjson.RPCError) {
		return 1, nil
	})
	dir := t.TempDir()
	cookie := filepath.Join(dir, ".cookie")
	require.NoError(t, os.WriteFile(cookie, []byte("__cookie__:abcdef\n"), 0600))

	cli, err := NewClient(WithURL(srv.URL), WithUser("ignored"), WithCookieFile(cookie))
	require.NoError(t, err)
	_, err = cli.GetBlockCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, "__cookie__", *user)

	require.NoError(t, os.WriteFile(cookie, nil, 0600))
	_, err = cli.GetBlockCount(context.Background())
	require.ErrorIs(t, err, ErrEmptyCookie)
}

func TestGetBlockVerbosity(t *testing.T) {
	srv, _ := newRPCServer(t, func(call *rpcCall) (interface{}, *btcjson.RPCError) {
		require.Equal(t, "getblock", call.Method)
		require.Equal(t, "2", string(call.Params[1]))
		return json.RawMessage(`{"hash":"bb","height":7,"time":99,"tx":["aa",{"txid":"cc","hex":"00","height":7}]}`), nil
	})
	cli, err := NewClient(WithURL(srv.URL))
	require.NoError(t, err)
	block, err := cli.GetBlockByHeight(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), block.Height)
	require.Len(t, block.Tx, 2)
	require.Equal(t, "aa", block.Tx[0].Txid)
	require.Nil(t, block.Tx[0].Tx)
	require.Equal(t, "cc", block.Tx[1].Txid)
	require.Equal(t, "00", block.Tx[1].Tx.Hex)
}

func TestGetAddressTxids(t *testing.T) {
	srv, _ := newRPCServer(t, func(call *rpcCall) (interface{}, *btcjson.RPCError) {
		req := &AddressTxidsRequest{}
		require.NoError(t, json.Unmarshal(call.Params[0], req))
		require.Equal(t, []string{"t3a", "t3b"}, req.Addresses)
		return []string{"01", "02"}, nil
	})
	cli, err := NewClient(WithURL(srv.URL))
	require.NoError(t, err)

	txids, err := cli.GetAddressTxids(context.Background(), &AddressTxidsRequest{Addresses: []string{"t3a", "t3b"}})
	require.NoError(t, err)
	require.Equal(t, []string{"01", "02"}, txids)

	_, err = cli.GetAddressTxids(context.Background(), &AddressTxidsRequest{})
	require.Error(t, err)
	_, err = cli.GetAddressTxids(context.Background(), &AddressTxidsRequest{Addresses: []string{"t3a"}, Start: 10, End: 5})
	require.Error(t, err)
}

func TestShieldedOutputByteOrder(t *testing.T) {
	cmu := make([]byte, 32)
	for i := range cmu {
		cmu[i] = byte(i)
	}
	res := &ShieldedOutputResult{
		Cmu:           hex.EncodeToString(cmu),
		EphemeralKey:  strings.Repeat("ff", 32),
		EncCiphertext: strings.Repeat("ab", sapling.EncCiphertextSize),
	}
	out, err := res.ShieldedOutput()
	require.NoError(t, err)
	require.Equal(t, byte(31), out.Cmu[0])
	require.Equal(t, byte(0), out.Cmu[31])
	require.Len(t, out.EncCiphertext, sapling.EncCiphertextSize)

	res.EncCiphertext = "abcd"
	_, err = res.ShieldedOutput()
	require.ErrorIs(t, err, ErrInvalidShieldedOutput)
}

func TestRawTransactionResult(t *testing.T) {
	raw := &RawTransactionResult{
		Time: 10,
		Vin: []Vin{
			{Coinbase: "03"},
			{ScriptSig: &ScriptSig{Hex: "51"}},
			{ScriptSig: &ScriptSig{Hex: "zz"}},
		},
	}
	require.Equal(t, int64(10), raw.Timestamp())
	raw.BlockTime = 20
	require.Equal(t, int64(20), raw.Timestamp())
	require.Equal(t, [][]byte{{0x51}, nil}, raw.ScriptSigs())
}

func TestAmountZat(t *testing.T) {
	require.Equal(t, int64(1000000), Amount(0.01).Zat())
	require.Equal(t, int64(123456789), Amount(1.23456789).Zat())
}
