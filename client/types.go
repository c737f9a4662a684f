package client

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inscription-c/zins/internal/sapling"
	"github.com/shopspring/decimal"
)

// ZatoshiPerZec is the number of zatoshi in one ZEC.
const ZatoshiPerZec = 100_000_000

// Amount is a ZEC value as reported by the node.
type Amount float64

// Zat converts the amount to zatoshi without float rounding drift.
func (a Amount) Zat() int64 {
	return decimal.NewFromFloat(float64(a)).Mul(decimal.NewFromInt(ZatoshiPerZec)).Round(0).IntPart()
}

type ScriptSig struct {
	Asm string `json:"asm"`
	Hex string `json:"hex"`
}

type Vin struct {
	Coinbase  string     `json:"coinbase,omitempty"`
	Txid      string     `json:"txid,omitempty"`
	Vout      uint32     `json:"vout,omitempty"`
	ScriptSig *ScriptSig `json:"scriptSig,omitempty"`
	Sequence  uint32     `json:"sequence"`
}

type ScriptPubKey struct {
	Asm       string   `json:"asm"`
	Hex       string   `json:"hex"`
	Type      string   `json:"type"`
	Addresses []string `json:"addresses,omitempty"`
}

type Vout struct {
	Value        Amount       `json:"value"`
	ValueZat     int64        `json:"valueZat"`
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// ShieldedOutputResult is a Sapling output as rendered by the node. cmu and
// ephemeralKey are uint256 values and so appear byte-reversed.
type ShieldedOutputResult struct {
	Cv            string `json:"cv"`
	Cmu           string `json:"cmu"`
	EphemeralKey  string `json:"ephemeralKey"`
	EncCiphertext string `json:"encCiphertext"`
	OutCiphertext string `json:"outCiphertext"`
	Proof         string `json:"proof"`
}

var ErrInvalidShieldedOutput = errors.New("invalid shielded output")

// ShieldedOutput converts the JSON form into the wire byte order.
func (o *ShieldedOutputResult) ShieldedOutput() (*sapling.ShieldedOutput, error) {
	out := &sapling.ShieldedOutput{}
	if err := decodeUint256(o.Cmu, &out.Cmu); err != nil {
		return nil, fmt.Errorf("%w: cmu: %v", ErrInvalidShieldedOutput, err)
	}
	if err := decodeUint256(o.EphemeralKey, &out.EphemeralKey); err != nil {
		return nil, fmt.Errorf("%w: ephemeralKey: %v", ErrInvalidShieldedOutput, err)
	}
	enc, err := hex.DecodeString(o.EncCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: encCiphertext: %v", ErrInvalidShieldedOutput, err)
	}
	if len(enc) != sapling.EncCiphertextSize && len(enc) != sapling.CompactCiphertextSize {
		return nil, fmt.Errorf("%w: encCiphertext length %d", ErrInvalidShieldedOutput, len(enc))
	}
	out.EncCiphertext = enc
	return out, nil
}

func decodeUint256(s string, dst *[32]byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("length %d", len(b))
	}
	for i := range b {
		dst[31-i] = b[i]
	}
	return nil
}

// RawTransactionResult is the verbose form of getrawtransaction.
type RawTransactionResult struct {
	Hex             string                 `json:"hex"`
	Txid            string                 `json:"txid"`
	Overwintered    bool                   `json:"overwintered"`
	Version         uint32                 `json:"version"`
	LockTime        uint32                 `json:"locktime"`
	ExpiryHeight    uint32                 `json:"expiryheight"`
	Vin             []Vin                  `json:"vin"`
	Vout            []Vout                 `json:"vout"`
	VShieldedOutput []ShieldedOutputResult `json:"vShieldedOutput"`
	BlockHash       string                 `json:"blockhash,omitempty"`
	Height          int64                  `json:"height,omitempty"`
	Confirmations   int64                  `json:"confirmations,omitempty"`
	Time            int64                  `json:"time,omitempty"`
	BlockTime       int64                  `json:"blocktime,omitempty"`
}

// Timestamp returns blocktime, falling back to time.
func (r *RawTransactionResult) Timestamp() int64 {
	if r.BlockTime != 0 {
		return r.BlockTime
	}
	return r.Time
}

// ScriptSigs returns the hex decoded scriptSig of each non-coinbase input.
// Inputs whose hex does not decode yield an empty script.
func (r *RawTransactionResult) ScriptSigs() [][]byte {
	scripts := make([][]byte, 0, len(r.Vin))
	for _, in := range r.Vin {
		if in.ScriptSig == nil {
			continue
		}
		b, err := hex.DecodeString(in.ScriptSig.Hex)
		if err != nil {
			b = nil
		}
		scripts = append(scripts, b)
	}
	return scripts
}

// BlockTx is an entry of getblock's tx array, which holds txids at
// verbosity 1 and full transactions at verbosity 2.
type BlockTx struct {
	Txid string
	Tx   *RawTransactionResult
}

func (b *BlockTx) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.Txid)
	}
	tx := &RawTransactionResult{}
	if err := json.Unmarshal(data, tx); err != nil {
		return err
	}
	b.Tx = tx
	b.Txid = tx.Txid
	return nil
}

func (b BlockTx) MarshalJSON() ([]byte, error) {
	if b.Tx != nil {
		return json.Marshal(b.Tx)
	}
	return json.Marshal(b.Txid)
}

// BlockResult is the getblock reply.
type BlockResult struct {
	Hash          string    `json:"hash"`
	Height        int64     `json:"height"`
	Confirmations int64     `json:"confirmations"`
	Time          int64     `json:"time"`
	PreviousHash  string    `json:"previousblockhash,omitempty"`
	Tx            []BlockTx `json:"tx"`
}

// AddressTxidsRequest is the argument object of getaddresstxids.
type AddressTxidsRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,dive,required"`
	Start     uint32   `json:"start,omitempty"`
	End       uint32   `json:"end,omitempty" validate:"omitempty,gtefield=Start"`
}

// WalletTransaction is an entry of listtransactions.
type WalletTransaction struct {
	Address       string `json:"address"`
	Category      string `json:"category"`
	Amount        Amount `json:"amount"`
	Txid          string `json:"txid"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash,omitempty"`
	BlockTime     int64  `json:"blocktime,omitempty"`
	Time          int64  `json:"time"`
}

// WalletTransactionDetail is the gettransaction reply.
type WalletTransactionDetail struct {
	Txid          string `json:"txid"`
	Amount        Amount `json:"amount"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash,omitempty"`
	BlockTime     int64  `json:"blocktime,omitempty"`
	Time          int64  `json:"time"`
	Hex           string `json:"hex"`
}
