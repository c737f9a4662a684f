package tables

import (
	"time"
	"unicode/utf8"

	"github.com/inscription-c/zins/constants"
	"github.com/shopspring/decimal"
)

// Column widths of the bounded payload columns, in characters.
const (
	VersionSize       = 16
	ActTitleSize      = 255
	EmojiSpellSize    = 64
	ContentHashSize   = 128
	RefTxidSize       = 64
	SourceAddressSize = 255
)

// MaxMatchScore is the largest magnitude decimal(4,3) holds.
var MaxMatchScore = decimal.RequireFromString("9.999")

// Inscription is one decoded proverb, keyed by the transaction that carried it.
// Payload columns are written once; confirmations and the block position are
// the only columns an upsert may change.
type Inscription struct {
	Id            uint64          `gorm:"column:id;primary_key;AUTO_INCREMENT;NOT NULL"`
	Txid          string          `gorm:"column:txid;type:varchar(64);uniqueIndex:uk_txid;NOT NULL"`
	BlockHeight   uint32          `gorm:"column:block_height;type:int unsigned;index:idx_block_height;default:0;NOT NULL"`
	BlockTime     int64           `gorm:"column:block_time;type:bigint;default:0;NOT NULL"`
	Version       string          `gorm:"column:version;type:varchar(16);default:'';NOT NULL"`
	ActNumber     int             `gorm:"column:act_number;type:int;index:idx_act_number;default:0;NOT NULL"`
	ActTitle      string          `gorm:"column:act_title;type:varchar(255);default:'';NOT NULL"`
	Proverb       string          `gorm:"column:proverb;type:text;NOT NULL"`
	EmojiSpell    string          `gorm:"column:emoji_spell;type:varchar(64);default:'';NOT NULL"`
	MatchScore    decimal.Decimal `gorm:"column:match_score;type:decimal(4,3);default:0;NOT NULL"`
	ContentHash   string          `gorm:"column:content_hash;type:varchar(128);default:'';NOT NULL"`
	RefTxid       string          `gorm:"column:ref_txid;type:varchar(64);default:'';NOT NULL"`
	RawContent    string          `gorm:"column:raw_content;type:text;NOT NULL"`
	SourceAddress string          `gorm:"column:source_address;type:varchar(255);default:'';NOT NULL"`
	Source        string          `gorm:"column:source;type:varchar(32);index:idx_source;default:'';NOT NULL"`
	Confirmations uint32          `gorm:"column:confirmations;type:int unsigned;default:0;NOT NULL"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;NOT NULL"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;NOT NULL"`
}

func (i *Inscription) TableName() string {
	return "proverb_inscriptions"
}

// FromShielded reports whether the record came out of a decrypted memo.
func (i *Inscription) FromShielded() bool {
	return i.Source == constants.SourceShielded.String()
}

// Fit clamps the bounded columns to their widths so that a strict mode
// server accepts the row. Inscription content is free text and any field
// may be longer than its column.
func (i *Inscription) Fit() {
	i.Version = truncate(i.Version, VersionSize)
	i.ActTitle = truncate(i.ActTitle, ActTitleSize)
	i.EmojiSpell = truncate(i.EmojiSpell, EmojiSpellSize)
	i.ContentHash = truncate(i.ContentHash, ContentHashSize)
	i.RefTxid = truncate(i.RefTxid, RefTxidSize)
	i.SourceAddress = truncate(i.SourceAddress, SourceAddressSize)
	if i.MatchScore.GreaterThan(MaxMatchScore) {
		i.MatchScore = MaxMatchScore
	} else if i.MatchScore.LessThan(MaxMatchScore.Neg()) {
		i.MatchScore = MaxMatchScore.Neg()
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
