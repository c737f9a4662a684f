package inscription

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/inscription-c/zins/client"
	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index"
	"github.com/inscription-c/zins/inscription/index/model"
	"github.com/inscription-c/zins/internal/bech32"
	"github.com/inscription-c/zins/internal/sapling"
	"github.com/spf13/cobra"
)

// maxDiversifierSearch bounds the raw diversifier counter tried when no
// diversifier is given. About half of all diversifiers are valid.
const maxDiversifierSearch = 1 << 10

var (
	ErrNothingDecoded = errors.New("nothing decoded")

	decodeTestnet     bool
	decodeMemo        bool
	decodeDiversifier string
	noteKey           string
	noteCmu           string
	noteEpk           string
	noteCiphertext    string
)

var DecodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "offline decoders for scripts, contents, keys and shielded notes",
}

var scriptCmd = &cobra.Command{
	Use:   "script <hex>",
	Short: "extract and parse the inscription of an unlocking script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(DecodeScript(args[0]))
	},
}

var contentCmd = &cobra.Command{
	Use:   "content <text>",
	Short: "parse an inscription content string, or a memo with --memo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(DecodeContent(args[0], decodeMemo))
	},
}

var keyCmd = &cobra.Command{
	Use:   "key <viewing key>",
	Short: "decode a sapling viewing key and derive a payment address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(DecodeKey(args[0], decodeDiversifier, decodeTestnet))
	},
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "trial-decrypt one sapling output, fields as printed by getrawtransaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := &client.ShieldedOutputResult{
			Cmu:           noteCmu,
			EphemeralKey:  noteEpk,
			EncCiphertext: noteCiphertext,
		}
		return printResult(DecodeNote(noteKey, out, decodeTestnet))
	},
}

var bech32Cmd = &cobra.Command{
	Use:   "bech32 <string>",
	Short: "decode a bech32 or bech32m string",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(DecodeBech32(args[0]))
	},
}

func init() {
	contentCmd.Flags().BoolVarP(&decodeMemo, "memo", "m", false, "accept the shielded memo grammar too")
	keyCmd.Flags().StringVarP(&decodeDiversifier, "diversifier", "d", "", "11 byte diversifier in hex")
	keyCmd.Flags().BoolVarP(&decodeTestnet, "testnet", "t", false, "encode the address for testnet")
	noteCmd.Flags().StringVarP(&noteKey, "key", "k", "", "sapling viewing key")
	noteCmd.Flags().StringVarP(&noteCmu, "cmu", "", "", "cmu")
	noteCmd.Flags().StringVarP(&noteEpk, "epk", "", "", "ephemeralKey")
	noteCmd.Flags().StringVarP(&noteCiphertext, "enc", "", "", "encCiphertext")
	noteCmd.Flags().BoolVarP(&decodeTestnet, "testnet", "t", false, "encode the address for testnet")
	for _, name := range []string{"key", "cmu", "epk", "enc"} {
		if err := noteCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	DecodeCmd.AddCommand(scriptCmd, contentCmd, keyCmd, noteCmd, bech32Cmd)
}

func printResult(v interface{}, err error) error {
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

type ScriptResult struct {
	Source      string             `json:"source"`
	ContentType string             `json:"content_type"`
	Content     string             `json:"content"`
	Partial     bool               `json:"partial"`
	Inscription *model.Inscription `json:"inscription"`
}

// DecodeScript runs the envelope extractor and the content parser over a
// hex encoded script. Inscription is nil when the content does not parse.
func DecodeScript(script string) (*ScriptResult, error) {
	raw, err := hex.DecodeString(script)
	if err != nil {
		return nil, err
	}
	envelope := index.ExtractEnvelope(raw)
	if envelope == nil {
		return nil, ErrNothingDecoded
	}
	return &ScriptResult{
		Source:      envelope.Source.String(),
		ContentType: envelope.ContentType,
		Content:     envelope.Content,
		Partial:     envelope.Partial,
		Inscription: index.ParseContent(envelope.Content),
	}, nil
}

func DecodeContent(content string, memo bool) (*model.Inscription, error) {
	var ins *model.Inscription
	if memo {
		ins = index.ParseMemo(content)
	} else {
		ins = index.ParseContent(content)
	}
	if ins == nil {
		return nil, ErrNothingDecoded
	}
	return ins, nil
}

type KeyResult struct {
	HasDk          bool   `json:"has_dk"`
	Ak             string `json:"ak"`
	Nk             string `json:"nk"`
	Ovk            string `json:"ovk"`
	Ivk            string `json:"ivk"`
	Diversifier    string `json:"diversifier"`
	PaymentAddress string `json:"payment_address"`
}

// DecodeKey decodes a viewing key. The address uses the given diversifier,
// or the first valid one counting up from zero.
func DecodeKey(encoded, diversifier string, testnet bool) (*KeyResult, error) {
	fvk, err := sapling.DecodeFullViewingKey(encoded)
	if err != nil {
		return nil, err
	}
	ivk, err := fvk.IncomingViewingKey()
	if err != nil {
		return nil, err
	}

	var addr *sapling.PaymentAddress
	if diversifier != "" {
		raw, err := hex.DecodeString(diversifier)
		if err != nil {
			return nil, err
		}
		if len(raw) != sapling.DiversifierSize {
			return nil, fmt.Errorf("%w: %d bytes", sapling.ErrInvalidDiversifier, len(raw))
		}
		var d [sapling.DiversifierSize]byte
		copy(d[:], raw)
		if addr, err = ivk.Address(d); err != nil {
			return nil, err
		}
	} else {
		for i := uint64(0); i < maxDiversifierSearch && addr == nil; i++ {
			var d [sapling.DiversifierSize]byte
			binary.LittleEndian.PutUint64(d[:], i)
			addr, _ = ivk.Address(d)
		}
		if addr == nil {
			return nil, sapling.ErrInvalidDiversifier
		}
	}

	encodedAddr, err := addr.Encode(constants.PaymentAddressHRP(testnet))
	if err != nil {
		return nil, err
	}
	ivkBytes := ivk.Bytes()
	return &KeyResult{
		HasDk:          fvk.HasDk,
		Ak:             hex.EncodeToString(fvk.Ak[:]),
		Nk:             hex.EncodeToString(fvk.Nk[:]),
		Ovk:            hex.EncodeToString(fvk.Ovk[:]),
		Ivk:            hex.EncodeToString(ivkBytes[:]),
		Diversifier:    hex.EncodeToString(addr.Diversifier[:]),
		PaymentAddress: encodedAddr,
	}, nil
}

type NoteResult struct {
	Value       uint64             `json:"value"`
	Address     string             `json:"address"`
	HasMemo     bool               `json:"has_memo"`
	MemoText    string             `json:"memo_text,omitempty"`
	MemoHex     string             `json:"memo_hex,omitempty"`
	Inscription *model.Inscription `json:"inscription"`
}

// DecodeNote trial-decrypts out with a viewing key. out carries cmu and
// ephemeralKey in the byte order the node prints them.
func DecodeNote(key string, out *client.ShieldedOutputResult, testnet bool) (*NoteResult, error) {
	fvk, err := sapling.DecodeFullViewingKey(key)
	if err != nil {
		return nil, err
	}
	output, err := out.ShieldedOutput()
	if err != nil {
		return nil, err
	}
	note, err := sapling.DecryptNote(output, fvk)
	if err != nil {
		return nil, err
	}

	addr, err := note.Address.Encode(constants.PaymentAddressHRP(testnet))
	if err != nil {
		return nil, err
	}
	res := &NoteResult{
		Value:   note.Value,
		Address: addr,
		HasMemo: note.HasMemo,
	}
	if note.HasMemo {
		if text, ok := index.MemoText(note.Memo[:]); ok {
			res.MemoText = text
			res.Inscription = index.ParseMemo(text)
		} else {
			res.MemoHex = hex.EncodeToString(note.Memo[:])
		}
	}
	return res, nil
}

type Bech32Result struct {
	HRP     string `json:"hrp"`
	Variant string `json:"variant"`
	Valid   bool   `json:"valid"`
	Data    string `json:"data"`
}

func DecodeBech32(encoded string) (*Bech32Result, error) {
	decoded, err := bech32.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return &Bech32Result{
		HRP:     decoded.HRP,
		Variant: decoded.Variant.String(),
		Valid:   decoded.ChecksumValid(),
		Data:    hex.EncodeToString(decoded.Data),
	}, nil
}
