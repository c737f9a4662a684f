package constants

import (
	"fmt"
	"regexp"
)

const (
	AppName    = "zins"
	ProtocolId = "ord"

	// CurrentPrefix opens a current-format content string, followed by the
	// bracketed version: STM-rpp[v01]|ACT:7|...
	CurrentPrefix = "STM-rpp["
	// CurrentMarker and LegacyMarker are the literal markers searched for by
	// the marker-scan fallback.
	CurrentMarker  = "STM-rpp"
	LegacyMarker   = "STS|"
	DefaultVersion = "v01"

	FieldSeparator = "|"

	TxidRegexpContent = `^[a-fA-F0-9]{64}$`
)

var TxidRegexp = regexp.MustCompile(TxidRegexpContent)

type ContentType string

func (t ContentType) Bytes() []byte {
	return []byte(t)
}

func (t ContentType) String() string {
	return string(t)
}

// IsText reports whether the content type declares text content.
func (t ContentType) IsText() bool {
	for _, v := range TextContentTypes {
		if v == t {
			return true
		}
	}
	return false
}

const (
	ContentTypeTextPlain     ContentType = "text/plain"
	ContentTypeTextPlainUtf8 ContentType = "text/plain;charset=utf-8"
	ContentTypeJson          ContentType = "application/json"
)

var TextContentTypes = []ContentType{
	ContentTypeTextPlain,
	ContentTypeTextPlainUtf8,
	ContentTypeJson,
}

// Source tells which decoding path produced an indexed record.
type Source string

const (
	SourceInscription Source = "inscription"
	SourceShielded    Source = "shielded"
)

func (s Source) String() string {
	return string(s)
}

func ActLabel(act int) string {
	return fmt.Sprintf("Act %d", act)
}
