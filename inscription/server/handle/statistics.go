package handle

import (
	"net/http"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/server/handle/api"
	"golang.org/x/sync/errgroup"
)

type ActStatistic struct {
	Act       int    `json:"act"`
	Title     string `json:"title"`
	Address   string `json:"address"`
	Count     int64  `json:"count"`
	Inscribed bool   `json:"inscribed"`
}

type ActStatisticsResp struct {
	Total        int64           `json:"total"`
	TotalText    string          `json:"total_text"`
	ScannedBlock uint32          `json:"scanned_block"`
	ScannedAt    string          `json:"scanned_at"`
	Acts         []*ActStatistic `json:"acts"`
}

// ActStatistics counts inscriptions per act. Every act of the tale is
// listed, also those with no inscription yet.
func (h *Handler) ActStatistics(ctx *gin.Context) {
	apiResp := &api.Resp{}
	if err := h.doActStatistics(ctx, apiResp); err != nil {
		apiResp.ApiRespErr(api.CodeDbError, err.Error())
	}
	ctx.JSON(http.StatusOK, apiResp)
}

func (h *Handler) doActStatistics(ctx *gin.Context, apiResp *api.Resp) error {
	db := h.DB().WithContext(ctx.Request.Context())
	resp := &ActStatisticsResp{}
	counts := make(map[int]int64)

	errWg := &errgroup.Group{}
	errWg.Go(func() error {
		list, err := db.CountByAct()
		if err != nil {
			return err
		}
		for _, v := range list {
			counts[v.ActNumber] = v.Count
		}
		return nil
	})
	errWg.Go(func() error {
		height, err := db.BlockHeight()
		if err != nil {
			return err
		}
		resp.ScannedBlock = height
		if height == 0 {
			return nil
		}
		block, err := db.GetBlockInfo(height)
		if err != nil || block == nil {
			return err
		}
		resp.ScannedAt = humanize.Time(time.Unix(block.Timestamp, 0))
		return nil
	})
	if err := errWg.Wait(); err != nil {
		return err
	}

	for act := 1; act <= constants.MaxAct; act++ {
		resp.Acts = append(resp.Acts, &ActStatistic{
			Act:       act,
			Title:     constants.ActTitle(act),
			Address:   constants.ActAddress(act),
			Count:     counts[act],
			Inscribed: counts[act] > 0,
		})
	}
	for act, count := range counts {
		resp.Total += count
		if act < 1 || act > constants.MaxAct {
			resp.Acts = append(resp.Acts, &ActStatistic{Act: act, Title: constants.ActTitle(act), Count: count, Inscribed: true})
		}
	}
	sort.Slice(resp.Acts, func(i, j int) bool { return resp.Acts[i].Act < resp.Acts[j].Act })
	resp.TotalText = humanize.Comma(resp.Total)
	apiResp.ApiRespOK(resp)
	return nil
}
