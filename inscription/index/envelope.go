package index

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/inscription-c/zins/constants"
)

// PushKind is the closed set of push opcode encodings an envelope field may use.
type PushKind int

const (
	// PushOther is any opcode that is not a data push.
	PushOther PushKind = iota
	// PushDirect is OP_DATA_1..OP_DATA_75, the opcode value is the length.
	PushDirect
	// PushData1 is OP_PUSHDATA1 followed by a one byte length.
	PushData1
	// PushData2 is OP_PUSHDATA2 followed by a two byte little-endian length.
	PushData2
)

func (k PushKind) String() string {
	switch k {
	case PushDirect:
		return "direct"
	case PushData1:
		return "pushdata1"
	case PushData2:
		return "pushdata2"
	default:
		return "other"
	}
}

// PushOpcode is a decoded push opcode. Len is only meaningful for PushDirect.
type PushOpcode struct {
	Kind PushKind
	Len  int
}

// decodePushOpcode classifies a raw opcode byte.
func decodePushOpcode(op byte) PushOpcode {
	switch {
	case op >= txscript.OP_DATA_1 && op <= txscript.OP_DATA_75:
		return PushOpcode{Kind: PushDirect, Len: int(op)}
	case op == txscript.OP_PUSHDATA1:
		return PushOpcode{Kind: PushData1}
	case op == txscript.OP_PUSHDATA2:
		return PushOpcode{Kind: PushData2}
	default:
		return PushOpcode{Kind: PushOther}
	}
}

// PushStatus tells whether a push field was read to its declared length.
type PushStatus int

const (
	PushComplete PushStatus = iota
	// PushPartial means the declared length ran past the end of the script
	// and Data holds only the bytes that were available.
	PushPartial
)

// PushResult is the outcome of reading one push field.
type PushResult struct {
	Data   []byte
	Status PushStatus
}

// EnvelopeSource tells which extraction path produced an envelope.
type EnvelopeSource int

const (
	EnvelopeStructured EnvelopeSource = iota
	EnvelopeMarker
)

func (s EnvelopeSource) String() string {
	if s == EnvelopeMarker {
		return "marker"
	}
	return "structured"
}

// Envelope is the content recovered from an unlocking script.
type Envelope struct {
	ContentType string
	Content     string
	// Partial is set when a PUSHDATA2 content field was truncated.
	Partial bool
	Source  EnvelopeSource
	// Input is the index of the transaction input the script belongs to.
	Input int
}

var (
	// envelopeMarker is a 3 byte push of the protocol id: 0x03 'o' 'r' 'd'.
	envelopeMarker = append([]byte{txscript.OP_DATA_3}, constants.ProtocolId...)

	// markerTerminators end a marker-scanned content string.
	markerTerminators = []byte{txscript.OP_0, txscript.OP_DROP, txscript.OP_CHECKSIG}

	contentMarkers = []string{constants.CurrentMarker, constants.LegacyMarker}
)

// ExtractEnvelopes runs ExtractEnvelope over the scriptSig of every input
// and returns the first match, or nil.
func ExtractEnvelopes(scriptSigs [][]byte) *Envelope {
	for i, script := range scriptSigs {
		if envelope := ExtractEnvelope(script); envelope != nil {
			envelope.Input = i
			return envelope
		}
	}
	return nil
}

// ExtractEnvelope recovers inscription content from a raw unlocking script.
// It first tries the structured walk:
//
//	OP_DATA_3 "ord" OP_1 <content-type> OP_0 <content>
//
// and accepts the result only when the content carries one of the known
// prefixes. Otherwise it falls back to scanning the script for the literal
// text markers. It returns nil when neither path matches and never reads
// beyond the end of script.
func ExtractEnvelope(script []byte) *Envelope {
	if envelope := walkEnvelope(script); envelope != nil && hasContentMarker(envelope.Content) {
		return envelope
	}
	return scanContentMarkers(script)
}

// walkEnvelope performs the structured walk starting at the first protocol
// marker in script.
func walkEnvelope(script []byte) *Envelope {
	// Locate the marker push
	start := bytes.Index(script, envelopeMarker)
	if start < 0 {
		return nil
	}
	pos := start + len(envelopeMarker)

	// The marker must be followed by OP_1, the content-type tag
	if pos >= len(script) || script[pos] != txscript.OP_1 {
		return nil
	}
	pos++

	// Read the content type, PUSHDATA2 is not allowed here
	contentType, pos, ok := readPush(script, pos, false)
	if !ok || contentType.Status != PushComplete {
		return nil
	}

	// OP_0 separates the header from the body
	if pos >= len(script) || script[pos] != txscript.OP_0 {
		return nil
	}
	pos++

	// Read the content, a truncated PUSHDATA2 field is salvaged
	content, _, ok := readPush(script, pos, true)
	if !ok {
		return nil
	}
	return &Envelope{
		ContentType: strings.ToValidUTF8(string(contentType.Data), "\uFFFD"),
		Content:     strings.ToValidUTF8(string(content.Data), "\uFFFD"),
		Partial:     content.Status == PushPartial,
		Source:      EnvelopeStructured,
	}
}

// readPush reads one push field at pos. It returns the field, the position
// after it and whether the read succeeded. Only a PUSHDATA2 field, and only
// when allowPushData2 is set, may come back PushPartial; every other overrun
// fails.
func readPush(script []byte, pos int, allowPushData2 bool) (*PushResult, int, bool) {
	if pos >= len(script) {
		return nil, pos, false
	}
	op := decodePushOpcode(script[pos])
	pos++

	var length int
	switch op.Kind {
	case PushDirect:
		length = op.Len
	case PushData1:
		if pos >= len(script) {
			return nil, pos, false
		}
		length = int(script[pos])
		pos++
	case PushData2:
		if !allowPushData2 || pos+2 > len(script) {
			return nil, pos, false
		}
		length = int(binary.LittleEndian.Uint16(script[pos : pos+2]))
		pos += 2
		if pos+length > len(script) {
			return &PushResult{Data: script[pos:], Status: PushPartial}, len(script), true
		}
	case PushOther:
		return nil, pos, false
	default:
		return nil, pos, false
	}

	if pos+length > len(script) {
		return nil, pos, false
	}
	return &PushResult{Data: script[pos : pos+length], Status: PushComplete}, pos + length, true
}

// scanContentMarkers is the fallback path. For every occurrence of a known
// marker it reads forward until a null byte, OP_DROP or OP_CHECKSIG, strips
// control characters and accepts the text when it contains both a field
// separator and an ACT tag.
func scanContentMarkers(script []byte) *Envelope {
	for _, marker := range contentMarkers {
		needle := []byte(marker)
		for offset := 0; offset < len(script); {
			i := bytes.Index(script[offset:], needle)
			if i < 0 {
				break
			}
			start := offset + i
			offset = start + 1

			end := start
			for end < len(script) && bytes.IndexByte(markerTerminators, script[end]) < 0 {
				end++
			}
			content := strings.TrimSpace(stripControl(script[start:end]))
			if strings.Contains(content, constants.FieldSeparator) && strings.Contains(content, "ACT") {
				return &Envelope{
					ContentType: constants.ContentTypeTextPlainUtf8.String(),
					Content:     content,
					Source:      EnvelopeMarker,
				}
			}
		}
	}
	return nil
}

// stripControl drops bytes 0x00-0x1f and replaces invalid UTF-8.
func stripControl(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c >= 0x20 {
			out = append(out, c)
		}
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func hasContentMarker(content string) bool {
	for _, marker := range contentMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
