package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/inscription-c/zins/internal/sapling"
)

const (
	// maxScriptSize bounds a single script read from a raw transaction.
	maxScriptSize = 10000

	overwinterFlag = 1 << 31

	saplingSpendV4Size  = 384
	saplingSpendV5Size  = 96
	saplingOutCipherLen = 80
	saplingProofSize    = 192
	saplingValueCommit  = 32
)

var (
	ErrUnsupportedTxVersion = errors.New("unsupported transaction version")
)

// TxInput is a transparent input.
type TxInput struct {
	PreviousOutPoint wire.OutPoint
	ScriptSig        []byte
	Sequence         uint32
}

// TxOutput is a transparent output.
type TxOutput struct {
	Value    int64
	PkScript []byte
}

// RawTransaction holds the parts of a serialized Zcash transaction the
// indexer reads. Parsing stops after the Sapling outputs; JoinSplits,
// Orchard actions and proofs that follow are not decoded.
type RawTransaction struct {
	Overwintered      bool
	Version           uint32
	VersionGroupId    uint32
	ConsensusBranchId uint32
	LockTime          uint32
	ExpiryHeight      uint32
	ValueBalance      int64
	Inputs            []*TxInput
	Outputs           []*TxOutput
	ShieldedOutputs   []*sapling.ShieldedOutput
}

// ParseRawTransaction decodes a v1 to v5 transaction.
func ParseRawTransaction(raw []byte) (*RawTransaction, error) {
	r := bytes.NewReader(raw)
	tx := &RawTransaction{}

	header, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	tx.Overwintered = header&overwinterFlag != 0
	tx.Version = header &^ overwinterFlag
	if tx.Version == 0 || tx.Version > 5 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxVersion, tx.Version)
	}
	if tx.Overwintered {
		if tx.VersionGroupId, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("version group id: %w", err)
		}
	}

	if tx.Version == 5 {
		err = tx.decodeV5(r)
	} else {
		err = tx.decodeV4(r)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ScriptSigs returns the unlocking script of every transparent input.
func (tx *RawTransaction) ScriptSigs() [][]byte {
	scripts := make([][]byte, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		scripts = append(scripts, in.ScriptSig)
	}
	return scripts
}

func (tx *RawTransaction) decodeV5(r *bytes.Reader) (err error) {
	if tx.ConsensusBranchId, err = readUint32(r); err != nil {
		return fmt.Errorf("branch id: %w", err)
	}
	if tx.LockTime, err = readUint32(r); err != nil {
		return fmt.Errorf("lock time: %w", err)
	}
	if tx.ExpiryHeight, err = readUint32(r); err != nil {
		return fmt.Errorf("expiry height: %w", err)
	}
	if err = tx.decodeTransparent(r); err != nil {
		return err
	}

	spends, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("sapling spends: %w", err)
	}
	if err = skip(r, spends, saplingSpendV5Size); err != nil {
		return fmt.Errorf("sapling spends: %w", err)
	}
	return tx.decodeSaplingOutputs(r, false)
}

func (tx *RawTransaction) decodeV4(r *bytes.Reader) (err error) {
	if err = tx.decodeTransparent(r); err != nil {
		return err
	}
	if tx.LockTime, err = readUint32(r); err != nil {
		return fmt.Errorf("lock time: %w", err)
	}
	if tx.Overwintered && tx.Version >= 3 {
		if tx.ExpiryHeight, err = readUint32(r); err != nil {
			return fmt.Errorf("expiry height: %w", err)
		}
	}
	if !tx.Overwintered || tx.Version < 4 {
		return nil
	}

	var balance [8]byte
	if _, err = io.ReadFull(r, balance[:]); err != nil {
		return fmt.Errorf("value balance: %w", err)
	}
	tx.ValueBalance = int64(binary.LittleEndian.Uint64(balance[:]))

	spends, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("sapling spends: %w", err)
	}
	if err = skip(r, spends, saplingSpendV4Size); err != nil {
		return fmt.Errorf("sapling spends: %w", err)
	}
	return tx.decodeSaplingOutputs(r, true)
}

func (tx *RawTransaction) decodeTransparent(r *bytes.Reader) error {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("input count: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		in := &TxInput{}
		if _, err := io.ReadFull(r, in.PreviousOutPoint.Hash[:]); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if in.PreviousOutPoint.Index, err = readUint32(r); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if in.ScriptSig, err = wire.ReadVarBytes(r, 0, maxScriptSize, "scriptSig"); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if in.Sequence, err = readUint32(r); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	count, err = wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("output count: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		out := &TxOutput{}
		var value [8]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		out.Value = int64(binary.LittleEndian.Uint64(value[:]))
		if out.PkScript, err = wire.ReadVarBytes(r, 0, maxScriptSize, "pkScript"); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}
	return nil
}

// decodeSaplingOutputs reads cv, cmu, ephemeralKey, encCiphertext and
// outCiphertext of each output, followed by the proof in v4.
func (tx *RawTransaction) decodeSaplingOutputs(r *bytes.Reader, withProof bool) error {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("sapling outputs: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		out := &sapling.ShieldedOutput{EncCiphertext: make([]byte, sapling.EncCiphertextSize)}
		if err := skip(r, 1, saplingValueCommit); err != nil {
			return fmt.Errorf("sapling output %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, out.Cmu[:]); err != nil {
			return fmt.Errorf("sapling output %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, out.EphemeralKey[:]); err != nil {
			return fmt.Errorf("sapling output %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, out.EncCiphertext); err != nil {
			return fmt.Errorf("sapling output %d: %w", i, err)
		}
		trailer := saplingOutCipherLen
		if withProof {
			trailer += saplingProofSize
		}
		if err := skip(r, 1, trailer); err != nil {
			return fmt.Errorf("sapling output %d: %w", i, err)
		}
		tx.ShieldedOutputs = append(tx.ShieldedOutputs, out)
	}
	return nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// skip discards count items of size bytes each.
func skip(r *bytes.Reader, count uint64, size int) error {
	if count > uint64(r.Len())/uint64(size) {
		return io.ErrUnexpectedEOF
	}
	_, err := r.Seek(int64(count)*int64(size), io.SeekCurrent)
	return err
}
