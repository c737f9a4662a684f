package dao

import (
	"errors"

	"github.com/inscription-c/zins/inscription/index/tables"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockHeight retrieves the height of the last scanned block, 0 when none.
func (d *DB) BlockHeight() (height uint32, err error) {
	block := &tables.BlockInfo{}
	err = d.DB.Order("height desc").First(block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
		return
	}
	height = block.Height
	return
}

// SaveBlockInfo saves a block info to the database.
// If a block with the same height already exists, it updates the existing record.
func (d *DB) SaveBlockInfo(block *tables.BlockInfo) error {
	return d.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		DoUpdates: clause.AssignmentColumns([]string{"hash", "timestamp", "updated_at"}),
	}).Create(block).Error
}

// GetBlockInfo returns the block recorded at height, or nil.
func (d *DB) GetBlockInfo(height uint32) (*tables.BlockInfo, error) {
	block := &tables.BlockInfo{}
	err := d.Where("height = ?", height).First(block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return block, nil
}
