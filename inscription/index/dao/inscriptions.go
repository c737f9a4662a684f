package dao

import (
	"context"
	"errors"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index/tables"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActCount is the number of inscriptions recorded for one act.
type ActCount struct {
	ActNumber int   `gorm:"column:act_number" json:"act_number"`
	Count     int64 `gorm:"column:count" json:"count"`
}

// WithContext returns a DB bound to ctx.
func (d *DB) WithContext(ctx context.Context) *DB {
	return &DB{DB: d.DB.WithContext(ctx), driver: d.driver}
}

// UpsertInscription inserts ins, or when its txid is already recorded, keeps
// the stored payload and only raises confirmations and fills in a block
// height or time that was still unknown.
func (d *DB) UpsertInscription(ins *tables.Inscription) error {
	return d.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "txid"}},
		DoUpdates: d.upsertAssignments(),
	}).Create(ins).Error
}

func (d *DB) upsertAssignments() clause.Set {
	if d.driver == constants.DriverSqlite {
		return clause.Set{
			{Column: clause.Column{Name: "confirmations"}, Value: gorm.Expr("MAX(confirmations, excluded.confirmations)")},
			{Column: clause.Column{Name: "block_height"}, Value: gorm.Expr("CASE WHEN block_height = 0 THEN excluded.block_height ELSE block_height END")},
			{Column: clause.Column{Name: "block_time"}, Value: gorm.Expr("CASE WHEN block_time = 0 THEN excluded.block_time ELSE block_time END")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		}
	}
	return clause.Set{
		{Column: clause.Column{Name: "confirmations"}, Value: gorm.Expr("GREATEST(confirmations, VALUES(confirmations))")},
		{Column: clause.Column{Name: "block_height"}, Value: gorm.Expr("IF(block_height = 0, VALUES(block_height), block_height)")},
		{Column: clause.Column{Name: "block_time"}, Value: gorm.Expr("IF(block_time = 0, VALUES(block_time), block_time)")},
		{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("VALUES(updated_at)")},
	}
}

// GetInscriptionByTxid returns the inscription carried by txid, or nil.
func (d *DB) GetInscriptionByTxid(txid string) (*tables.Inscription, error) {
	ins := &tables.Inscription{}
	err := d.Where("txid = ?", txid).First(ins).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ins, nil
}

// InscriptionHeight returns the stored block height of txid. exists is
// false when txid is not indexed, and height is 0 while it is unmined.
func (d *DB) InscriptionHeight(txid string) (height uint32, exists bool, err error) {
	var heights []uint32
	err = d.Model(&tables.Inscription{}).Where("txid = ?", txid).Limit(1).Pluck("block_height", &heights).Error
	if err != nil || len(heights) == 0 {
		return
	}
	return heights[0], true, nil
}

// PendingTxids returns up to limit txids recorded before they were mined,
// oldest first.
func (d *DB) PendingTxids(limit int) (txids []string, err error) {
	db := d.Model(&tables.Inscription{}).Where("block_height = 0").Order("id asc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err = db.Pluck("txid", &txids).Error
	return
}

// ListInscriptions returns inscriptions ordered by act ascending and block
// height descending. A nil act lists every act. size <= 0 disables paging.
func (d *DB) ListInscriptions(act *int, page, size int) (list []*tables.Inscription, total int64, err error) {
	db := d.Model(&tables.Inscription{})
	if act != nil {
		db = db.Where("act_number = ?", *act)
	}
	if err = db.Count(&total).Error; err != nil {
		return
	}
	db = db.Order("act_number asc").Order("block_height desc").Order("id asc")
	if size > 0 {
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * size).Limit(size)
	}
	err = db.Find(&list).Error
	return
}

// CountByAct returns the number of inscriptions per act, ordered by act.
func (d *DB) CountByAct() (counts []ActCount, err error) {
	err = d.Model(&tables.Inscription{}).
		Select("act_number, count(*) as count").
		Group("act_number").
		Order("act_number asc").
		Scan(&counts).Error
	return
}

// RefreshConfirmations recomputes confirmations of every mined inscription
// against tip. Rows are only ever raised.
func (d *DB) RefreshConfirmations(tip uint32) (int64, error) {
	res := d.Model(&tables.Inscription{}).
		Where("block_height > 0 AND block_height <= ?", tip).
		Where("confirmations < ? - block_height + 1", tip).
		Update("confirmations", gorm.Expr("? - block_height + 1", tip))
	return res.RowsAffected, res.Error
}
