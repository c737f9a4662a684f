package index

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/inscription-c/zins/internal/sapling"
	"github.com/stretchr/testify/require"
)

type txBuilder struct {
	bytes.Buffer
}

func (b *txBuilder) u32(v uint32) *txBuilder {
	_ = binary.Write(b, binary.LittleEndian, v)
	return b
}

func (b *txBuilder) u64(v uint64) *txBuilder {
	_ = binary.Write(b, binary.LittleEndian, v)
	return b
}

func (b *txBuilder) varInt(v uint64) *txBuilder {
	_ = wire.WriteVarInt(b, 0, v)
	return b
}

func (b *txBuilder) varBytes(p []byte) *txBuilder {
	_ = wire.WriteVarBytes(b, 0, p)
	return b
}

func (b *txBuilder) fill(n int, v byte) *txBuilder {
	b.Write(bytes.Repeat([]byte{v}, n))
	return b
}

func (b *txBuilder) transparent(scripts ...[]byte) *txBuilder {
	b.varInt(uint64(len(scripts)))
	for i, script := range scripts {
		b.fill(32, byte(i+1)).u32(uint32(i)).varBytes(script).u32(0xffffffff)
	}
	b.varInt(1).u64(50000).varBytes([]byte{0x76, 0xa9})
	return b
}

func (b *txBuilder) saplingOutput(cmu, epk byte, withProof bool) *txBuilder {
	b.fill(32, 0xcc).fill(32, cmu).fill(32, epk).fill(sapling.EncCiphertextSize, 0xee).fill(80, 0x0c)
	if withProof {
		b.fill(192, 0x9f)
	}
	return b
}

func TestParseRawTransactionV4(t *testing.T) {
	b := &txBuilder{}
	b.u32(4 | overwinterFlag).u32(0x892f2085)
	b.transparent([]byte{0x01, 0xaa}, mustHex(t, envelopeFixture))
	b.u32(0).u32(2000000)
	b.u64(uint64(0xfffffffffffffc18)) // -1000
	b.varInt(1).fill(saplingSpendV4Size, 0x55)
	b.varInt(2).saplingOutput(0x01, 0x02, true).saplingOutput(0x03, 0x04, true)
	b.varInt(0) // joinsplits, not decoded
	b.fill(64, 0x77)

	tx, err := ParseRawTransaction(b.Bytes())
	require.NoError(t, err)
	require.True(t, tx.Overwintered)
	require.Equal(t, uint32(4), tx.Version)
	require.Equal(t, uint32(0x892f2085), tx.VersionGroupId)
	require.Equal(t, uint32(2000000), tx.ExpiryHeight)
	require.Equal(t, int64(-1000), tx.ValueBalance)
	require.Len(t, tx.Inputs, 2)
	require.Equal(t, uint32(1), tx.Inputs[1].PreviousOutPoint.Index)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, int64(50000), tx.Outputs[0].Value)

	require.Len(t, tx.ShieldedOutputs, 2)
	require.Equal(t, bytes.Repeat([]byte{0x03}, 32), tx.ShieldedOutputs[1].Cmu[:])
	require.Equal(t, bytes.Repeat([]byte{0x04}, 32), tx.ShieldedOutputs[1].EphemeralKey[:])
	require.Len(t, tx.ShieldedOutputs[0].EncCiphertext, sapling.EncCiphertextSize)

	envelope := ExtractEnvelopes(tx.ScriptSigs())
	require.NotNil(t, envelope)
	require.Equal(t, 1, envelope.Input)
}

func TestParseRawTransactionV5(t *testing.T) {
	b := &txBuilder{}
	b.u32(5 | overwinterFlag).u32(0x26a7270a).u32(0xc2d6d0b4).u32(0).u32(3000000)
	b.transparent([]byte{0x51})
	b.varInt(2).fill(2*saplingSpendV5Size, 0x66)
	b.varInt(1).saplingOutput(0x0a, 0x0b, false)
	b.fill(100, 0x00)

	tx, err := ParseRawTransaction(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(5), tx.Version)
	require.Equal(t, uint32(0xc2d6d0b4), tx.ConsensusBranchId)
	require.Equal(t, uint32(3000000), tx.ExpiryHeight)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.ShieldedOutputs, 1)
	require.Equal(t, bytes.Repeat([]byte{0x0a}, 32), tx.ShieldedOutputs[0].Cmu[:])
}

func TestParseRawTransactionLegacy(t *testing.T) {
	b := &txBuilder{}
	b.u32(1).transparent([]byte{0x00}).u32(0)
	tx, err := ParseRawTransaction(b.Bytes())
	require.NoError(t, err)
	require.False(t, tx.Overwintered)
	require.Equal(t, uint32(1), tx.Version)
	require.Empty(t, tx.ShieldedOutputs)
	require.Equal(t, [][]byte{{0x00}}, tx.ScriptSigs())
}

func TestParseRawTransactionErrors(t *testing.T) {
	_, err := ParseRawTransaction(nil)
	require.Error(t, err)

	b := &txBuilder{}
	b.u32(6 | overwinterFlag).u32(0)
	_, err = ParseRawTransaction(b.Bytes())
	require.ErrorIs(t, err, ErrUnsupportedTxVersion)

	// A huge declared count with nothing behind it must fail, not allocate.
	b = &txBuilder{}
	b.u32(4 | overwinterFlag).u32(0x892f2085).varInt(0xffffffff)
	_, err = ParseRawTransaction(b.Bytes())
	require.Error(t, err)

	b = &txBuilder{}
	b.u32(5 | overwinterFlag).u32(0).u32(0).u32(0).u32(0).transparent().varInt(0).varInt(1 << 40)
	_, err = ParseRawTransaction(b.Bytes())
	require.Error(t, err)

	// Every truncation of a valid v4 transaction fails cleanly.
	full := &txBuilder{}
	full.u32(4 | overwinterFlag).u32(0x892f2085).transparent([]byte{0x51}).u32(0).u32(0)
	full.u64(0).varInt(0).varInt(1).saplingOutput(1, 2, true)
	raw := full.Bytes()
	for i := 0; i < len(raw); i++ {
		_, err := ParseRawTransaction(raw[:i])
		require.Error(t, err, "prefix %d", i)
	}
}
