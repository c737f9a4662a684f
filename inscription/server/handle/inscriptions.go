package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogf/gf/v2/util/gconv"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/inscription-c/zins/inscription/server/handle/api"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// InscriptionEntry is the API view of an indexed inscription.
type InscriptionEntry struct {
	Txid          string `json:"txid"`
	BlockHeight   uint32 `json:"block_height"`
	BlockTime     int64  `json:"block_time"`
	Version       string `json:"version"`
	Act           int    `json:"act"`
	ActTitle      string `json:"act_title"`
	Proverb       string `json:"proverb"`
	EmojiSpell    string `json:"emoji_spell"`
	MatchScore    string `json:"match_score"`
	ContentHash   string `json:"content_hash"`
	RefTxid       string `json:"ref_txid"`
	RawContent    string `json:"raw_content"`
	SourceAddress string `json:"source_address"`
	Source        string `json:"source"`
	Confirmations uint32 `json:"confirmations"`
}

// NewInscriptionEntry renders a stored row for the API.
func NewInscriptionEntry(ins *tables.Inscription) *InscriptionEntry {
	return &InscriptionEntry{
		Txid:          ins.Txid,
		BlockHeight:   ins.BlockHeight,
		BlockTime:     ins.BlockTime,
		Version:       ins.Version,
		Act:           ins.ActNumber,
		ActTitle:      ins.ActTitle,
		Proverb:       ins.Proverb,
		EmojiSpell:    ins.EmojiSpell,
		MatchScore:    ins.MatchScore.StringFixed(3),
		ContentHash:   ins.ContentHash,
		RefTxid:       ins.RefTxid,
		RawContent:    ins.RawContent,
		SourceAddress: ins.SourceAddress,
		Source:        ins.Source,
		Confirmations: ins.Confirmations,
	}
}

type InscriptionsResp struct {
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
	Total int64               `json:"total"`
	List  []*InscriptionEntry `json:"list"`
}

// Inscriptions lists indexed inscriptions, act ascending then newest first.
// Query: act (optional), page (from 1), size (up to 500).
func (h *Handler) Inscriptions(ctx *gin.Context) {
	apiResp := &api.Resp{}

	var act *int
	if v, ok := ctx.GetQuery("act"); ok {
		n := gconv.Int(v)
		if n <= 0 {
			apiResp.ApiRespErr(api.CodeParamsInvalid, "act must be a positive number")
			ctx.JSON(http.StatusOK, apiResp)
			return
		}
		act = &n
	}
	page := gconv.Int(ctx.DefaultQuery("page", "1"))
	size := gconv.Int(ctx.DefaultQuery("size", gconv.String(defaultPageSize)))
	if page <= 0 || size <= 0 || size > maxPageSize {
		apiResp.ApiRespErr(api.CodeParamsInvalid, "invalid page or size")
		ctx.JSON(http.StatusOK, apiResp)
		return
	}

	if err := h.doInscriptions(ctx, act, page, size, apiResp); err != nil {
		apiResp.ApiRespErr(api.CodeDbError, err.Error())
	}
	ctx.JSON(http.StatusOK, apiResp)
}

func (h *Handler) doInscriptions(ctx *gin.Context, act *int, page, size int, apiResp *api.Resp) error {
	list, total, err := h.DB().WithContext(ctx.Request.Context()).ListInscriptions(act, page, size)
	if err != nil {
		return err
	}
	resp := &InscriptionsResp{
		Page:  page,
		Size:  size,
		Total: total,
		List:  make([]*InscriptionEntry, 0, len(list)),
	}
	for _, ins := range list {
		resp.List = append(resp.List, NewInscriptionEntry(ins))
	}
	apiResp.ApiRespOK(resp)
	return nil
}
