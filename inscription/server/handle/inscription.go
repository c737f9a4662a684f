package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/inscription-c/zins/inscription/server/handle/api"
)

func txidParam(ctx *gin.Context) (string, bool) {
	txid := strings.ToLower(strings.TrimSpace(ctx.Param("txid")))
	return txid, constants.TxidRegexp.MatchString(txid)
}

// Inscription returns the inscription carried by a transaction.
func (h *Handler) Inscription(ctx *gin.Context) {
	apiResp := &api.Resp{}
	txid, ok := txidParam(ctx)
	if !ok {
		apiResp.ApiRespErr(api.CodeParamsInvalid, "invalid txid")
		ctx.JSON(http.StatusOK, apiResp)
		return
	}

	ins, err := h.DB().WithContext(ctx.Request.Context()).GetInscriptionByTxid(txid)
	if err != nil {
		apiResp.ApiRespErr(api.CodeDbError, err.Error())
		ctx.JSON(http.StatusOK, apiResp)
		return
	}
	if ins == nil {
		apiResp.ApiRespErr(api.CodeNotFound, "inscription not found")
		ctx.JSON(http.StatusOK, apiResp)
		return
	}
	apiResp.ApiRespOK(NewInscriptionEntry(ins))
	ctx.JSON(http.StatusOK, apiResp)
}

// IndexInscription scans a transaction now and returns what was recorded.
func (h *Handler) IndexInscription(ctx *gin.Context) {
	apiResp := &api.Resp{}
	txid, ok := txidParam(ctx)
	if !ok {
		apiResp.ApiRespErr(api.CodeParamsInvalid, "invalid txid")
		ctx.JSON(http.StatusOK, apiResp)
		return
	}

	ins, err := h.options.indexer.IndexTransaction(ctx.Request.Context(), txid)
	if err != nil {
		log.Api.Warnf("index %s: %v", txid, err)
		apiResp.ApiRespErr(api.CodeRpcError, err.Error())
		ctx.JSON(http.StatusOK, apiResp)
		return
	}
	if ins == nil {
		apiResp.ApiRespErr(api.CodeNotFound, "no inscription in transaction")
		ctx.JSON(http.StatusOK, apiResp)
		return
	}
	apiResp.ApiRespOK(NewInscriptionEntry(ins))
	ctx.JSON(http.StatusOK, apiResp)
}

type ScanResp struct {
	Started bool `json:"started"`
}

// Scan asks the runner for a scan cycle. Started is false when a cycle was
// already pending.
func (h *Handler) Scan(ctx *gin.Context) {
	apiResp := &api.Resp{}
	apiResp.ApiRespOK(&ScanResp{Started: h.options.trigger()})
	ctx.JSON(http.StatusOK, apiResp)
}
