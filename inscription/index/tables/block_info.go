package tables

import (
	"time"
)

// BlockInfo records the last block examined by the block-scan fallback.
type BlockInfo struct {
	Id        uint64    `gorm:"column:id;primary_key;AUTO_INCREMENT;NOT NULL"`
	Height    uint32    `gorm:"column:height;type:int unsigned;uniqueIndex:uk_height;default:0;NOT NULL"`
	Hash      string    `gorm:"column:hash;type:varchar(64);default:'';NOT NULL"`
	Timestamp int64     `gorm:"column:timestamp;type:bigint;default:0;NOT NULL"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;NOT NULL"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;NOT NULL"`
}

func (b *BlockInfo) TableName() string {
	return "block_info"
}
