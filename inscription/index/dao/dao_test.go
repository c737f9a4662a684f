package dao

import (
	"fmt"
	"testing"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(
		WithDriver(constants.DriverSqlite),
		WithSqlitePath(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		WithAutoMigrateTables(tables.Tables...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testInscription(txid string, act int, height uint32, confirmations uint32) *tables.Inscription {
	return &tables.Inscription{
		Txid:          txid,
		BlockHeight:   height,
		Version:       constants.DefaultVersion,
		ActNumber:     act,
		ActTitle:      constants.ActTitle(act),
		Proverb:       fmt.Sprintf("proverb of %s", txid),
		MatchScore:    decimal.NewFromFloat(0.9),
		RawContent:    "raw",
		Source:        constants.SourceInscription.String(),
		Confirmations: confirmations,
	}
}

func TestNewDBUnknownDriver(t *testing.T) {
	_, err := NewDB(WithDriver("postgres"))
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestUpsertInscriptionIdempotent(t *testing.T) {
	db := newTestDB(t)

	first := testInscription("aa", 7, 0, 0)
	require.NoError(t, db.UpsertInscription(first))

	second := testInscription("aa", 7, 120, 5)
	second.Proverb = "a different payload"
	second.BlockTime = 1700000000
	require.NoError(t, db.UpsertInscription(second))

	got, err := db.GetInscriptionByTxid("aa")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "proverb of aa", got.Proverb)
	require.Equal(t, uint32(120), got.BlockHeight)
	require.Equal(t, int64(1700000000), got.BlockTime)
	require.Equal(t, uint32(5), got.Confirmations)
	require.True(t, decimal.NewFromFloat(0.9).Equal(got.MatchScore))

	// Confirmations never go down and a known height is kept.
	third := testInscription("aa", 7, 999, 2)
	require.NoError(t, db.UpsertInscription(third))
	got, err = db.GetInscriptionByTxid("aa")
	require.NoError(t, err)
	require.Equal(t, uint32(5), got.Confirmations)
	require.Equal(t, uint32(120), got.BlockHeight)

	list, total, err := db.ListInscriptions(nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, list, 1)
}

func TestGetInscriptionMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.GetInscriptionByTxid("missing")
	require.NoError(t, err)
	require.Nil(t, got)

	_, exists, err := db.InscriptionHeight("missing")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListAndCountByAct(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.UpsertInscription(testInscription("t1", 3, 100, 1)))
	require.NoError(t, db.UpsertInscription(testInscription("t2", 1, 50, 1)))
	require.NoError(t, db.UpsertInscription(testInscription("t3", 3, 200, 1)))
	require.NoError(t, db.UpsertInscription(testInscription("t4", 12, 10, 1)))

	_, exists, err := db.InscriptionHeight("t3")
	require.NoError(t, err)
	require.True(t, exists)

	list, total, err := db.ListInscriptions(nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	var order []string
	for _, ins := range list {
		order = append(order, ins.Txid)
	}
	require.Equal(t, []string{"t2", "t3", "t1", "t4"}, order)

	act := 3
	list, total, err = db.ListInscriptions(&act, 1, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, list, 1)
	require.Equal(t, "t3", list[0].Txid)

	list, _, err = db.ListInscriptions(&act, 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "t1", list[0].Txid)

	counts, err := db.CountByAct()
	require.NoError(t, err)
	require.Equal(t, []ActCount{{1, 1}, {3, 2}, {12, 1}}, counts)
}

func TestBlockInfo(t *testing.T) {
	db := newTestDB(t)
	height, err := db.BlockHeight()
	require.NoError(t, err)
	require.Zero(t, height)

	require.NoError(t, db.SaveBlockInfo(&tables.BlockInfo{Height: 10, Hash: "h10", Timestamp: 1}))
	require.NoError(t, db.SaveBlockInfo(&tables.BlockInfo{Height: 12, Hash: "h12", Timestamp: 2}))
	require.NoError(t, db.SaveBlockInfo(&tables.BlockInfo{Height: 10, Hash: "h10b", Timestamp: 3}))

	height, err = db.BlockHeight()
	require.NoError(t, err)
	require.Equal(t, uint32(12), height)

	block, err := db.GetBlockInfo(10)
	require.NoError(t, err)
	require.Equal(t, "h10b", block.Hash)

	block, err = db.GetBlockInfo(11)
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestTransaction(t *testing.T) {
	db := newTestDB(t)
	err := db.Transaction(func(tx *DB) error {
		if err := tx.UpsertInscription(testInscription("x1", 2, 1, 1)); err != nil {
			return err
		}
		return fmt.Errorf("rollback")
	})
	require.Error(t, err)
	_, exists, err := db.InscriptionHeight("x1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPendingInscriptions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.UpsertInscription(testInscription("p1", 1, 0, 0)))
	require.NoError(t, db.UpsertInscription(testInscription("m1", 1, 40, 2)))
	require.NoError(t, db.UpsertInscription(testInscription("p2", 2, 0, 0)))

	height, exists, err := db.InscriptionHeight("m1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, uint32(40), height)

	height, exists, err = db.InscriptionHeight("p1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Zero(t, height)

	pending, err := db.PendingTxids(0)
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, pending)
	pending, err = db.PendingTxids(1)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, pending)

	require.NoError(t, db.UpsertInscription(testInscription("p1", 1, 41, 1)))
	pending, err = db.PendingTxids(0)
	require.NoError(t, err)
	require.Equal(t, []string{"p2"}, pending)
}
