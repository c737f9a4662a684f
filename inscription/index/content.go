package index

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index/model"
)

const (
	fieldAct   = "ACT:"
	fieldTag   = "E:"
	fieldScore = "MS:"
	fieldHash  = "H:"
	fieldRef   = "REF:"

	// minPayloadLen is the length, in UTF-16 code units, a bare field must
	// exceed to be taken as the payload of a current-format inscription.
	// Emoji outside the BMP count twice, as they do for other indexers of
	// the same inscriptions.
	minPayloadLen = 10
	minParts      = 4

	// memoNoText is the first byte of a memo that holds no text.
	memoNoText = 0xf6
	// memoMaxTextLead is the largest first byte of a UTF-8 text memo.
	memoMaxTextLead = 0xf4
)

var (
	versionRegexp     = regexp.MustCompile(`STM-rpp\[([^\]]+)\]`)
	legacyActRegexp   = regexp.MustCompile(`ACT:(\d+)`)
	leadingIntRegexp  = regexp.MustCompile(`^\s*[+-]?\d+`)
	leadingNumRegexp  = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	memoActRegexp     = regexp.MustCompile(`(?i)ACT:(\d+)\|(?:PROVERB:)?(.+)`)
	memoTagRegexp     = regexp.MustCompile(`^E:([^|]+)\|(.+)`)
	memoCompactRegexp = regexp.MustCompile(`(?i)ACT(\d+)\|(.+)`)
)

// ParseContent parses an inscription content string in either grammar:
//
//	STM-rpp[v01]|ACT:7|E:<tag>|<payload>|MS:0.9|H:<hash>|REF:<txid>
//	STS|v01|ACT:3|<payload, may contain |>
//
// It returns nil for anything else, for fewer than four fields, for act 0
// and for an empty payload.
func ParseContent(content string) *model.Inscription {
	isCurrent := strings.HasPrefix(content, constants.CurrentPrefix)
	isLegacy := strings.HasPrefix(content, constants.LegacyMarker)
	if !isCurrent && !isLegacy {
		return nil
	}

	parts := strings.Split(content, constants.FieldSeparator)
	if len(parts) < minParts {
		return nil
	}

	ins := &model.Inscription{Version: constants.DefaultVersion, Raw: content}
	if isCurrent {
		if m := versionRegexp.FindStringSubmatch(parts[0]); m != nil {
			ins.Version = m[1]
		}
		for _, part := range parts[1:] {
			switch {
			case strings.HasPrefix(part, fieldAct):
				ins.Act = leadingInt(part[len(fieldAct):])
			case strings.HasPrefix(part, fieldTag):
				ins.Tag = part[len(fieldTag):]
			case strings.HasPrefix(part, fieldScore):
				ins.Score = leadingFloat(part[len(fieldScore):])
			case strings.HasPrefix(part, fieldHash):
				ins.Hash = part[len(fieldHash):]
			case strings.HasPrefix(part, fieldRef):
				ins.Ref = part[len(fieldRef):]
			case !strings.Contains(part, ":") && utf16Len(part) > minPayloadLen:
				ins.Payload = part
			}
		}
	} else {
		if parts[1] != "" {
			ins.Version = parts[1]
		}
		if m := legacyActRegexp.FindStringSubmatch(parts[2]); m != nil {
			ins.Act = leadingInt(m[1])
		}
		ins.Payload = strings.Join(parts[3:], constants.FieldSeparator)
	}

	if !ins.Valid() {
		return nil
	}
	return ins
}

// ParseMemo parses the text of a shielded memo. Besides the inscription
// grammars it accepts "ACT:7|[PROVERB:][E:<tag>|]<text>" and the compact
// "ACT7|<text>". Text without an act number is not indexable.
func ParseMemo(text string) *model.Inscription {
	if ins := ParseContent(text); ins != nil {
		return ins
	}

	ins := &model.Inscription{Version: constants.DefaultVersion, Raw: text}
	if m := memoActRegexp.FindStringSubmatch(text); m != nil {
		ins.Act = leadingInt(m[1])
		rest := m[2]
		if tm := memoTagRegexp.FindStringSubmatch(rest); tm != nil {
			ins.Tag = strings.TrimSpace(tm[1])
			rest = tm[2]
		}
		ins.Payload = strings.TrimSpace(rest)
	} else if m := memoCompactRegexp.FindStringSubmatch(text); m != nil {
		ins.Act = leadingInt(m[1])
		ins.Payload = strings.TrimSpace(m[2])
	}

	if !ins.Valid() {
		return nil
	}
	return ins
}

// MemoText decodes a 512 byte memo field as text. It reports false for the
// "no memo" marker, for an all-zero memo, for the non-text memo formats and
// for invalid UTF-8.
func MemoText(memo []byte) (string, bool) {
	trimmed := bytes.TrimRight(memo, "\x00")
	if len(trimmed) == 0 || trimmed[0] == memoNoText || trimmed[0] > memoMaxTextLead {
		return "", false
	}
	if !utf8.Valid(trimmed) {
		return "", false
	}
	return string(trimmed), true
}

// leadingInt parses the leading integer of s, returning 0 when there is none.
func leadingInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(leadingIntRegexp.FindString(s)))
	if err != nil {
		return 0
	}
	return n
}

// leadingFloat parses the leading decimal number of s, returning 0 when
// there is none.
func leadingFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(leadingNumRegexp.FindString(s)), 64)
	if err != nil {
		return 0
	}
	return f
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
