package handle

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) InitRouter() {
	if h.options.enablePProf {
		pprof.Register(h.Engine())
	}
	if h.options.gatherer != nil {
		h.Engine().GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.options.gatherer, promhttp.HandlerOpts{})))
	}
	h.Engine().GET("/inscriptions", h.Inscriptions)
	h.Engine().GET("/inscriptions/:txid", h.Inscription)
	h.Engine().GET("/statistics/acts", h.ActStatistics)
	if h.options.indexer != nil {
		h.Engine().POST("/inscriptions/:txid", h.IndexInscription)
	}
	if h.options.trigger != nil {
		h.Engine().POST("/scan", h.Scan)
	}
}
