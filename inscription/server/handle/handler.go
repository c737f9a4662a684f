package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inscription-c/zins/inscription/index/dao"
	"github.com/inscription-c/zins/inscription/index/tables"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/inscription-c/zins/inscription/server/handle/middlewares"
	"github.com/inscription-c/zins/internal/signal"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	mainnetAddr = ":8335"
	testnetAddr = ":18335"

	shutdownTimeout = 10 * time.Second
)

var ErrNoDB = errors.New("handler: db is nil")

// TxIndexer indexes a single transaction on request.
type TxIndexer interface {
	IndexTransaction(ctx context.Context, txid string) (*tables.Inscription, error)
}

type Options struct {
	addr        string
	testnet     bool
	enablePProf bool
	engine      *gin.Engine
	db          *dao.DB
	indexer     TxIndexer
	trigger     func() bool
	gatherer    prometheus.Gatherer
}

type Option func(*Options)

func WithAddr(addr string) func(*Options) {
	return func(options *Options) {
		options.addr = addr
	}
}

func WithEngine(g *gin.Engine) func(*Options) {
	return func(options *Options) {
		options.engine = g
	}
}

func WithDB(db *dao.DB) func(*Options) {
	return func(options *Options) {
		options.db = db
	}
}

func WithTestNet(testnet bool) func(*Options) {
	return func(options *Options) {
		options.testnet = testnet
	}
}

func WithEnablePProf(enable bool) func(*Options) {
	return func(options *Options) {
		options.enablePProf = enable
	}
}

// WithIndexer enables POST /inscriptions/:txid.
func WithIndexer(indexer TxIndexer) func(*Options) {
	return func(options *Options) {
		options.indexer = indexer
	}
}

// WithTrigger enables POST /scan, which asks for a scan cycle now.
func WithTrigger(trigger func() bool) func(*Options) {
	return func(options *Options) {
		options.trigger = trigger
	}
}

// WithGatherer serves the gatherer's metrics on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) func(*Options) {
	return func(options *Options) {
		options.gatherer = gatherer
	}
}

type Handler struct {
	options *Options
}

func New(opts ...Option) (*Handler, error) {
	h := &Handler{}
	h.options = &Options{}
	for _, opt := range opts {
		opt(h.options)
	}
	if h.options.addr == "" {
		h.options.addr = mainnetAddr
		if h.options.testnet {
			h.options.addr = testnetAddr
		}
	}
	if h.options.db == nil {
		return nil, ErrNoDB
	}
	if h.options.engine == nil {
		h.options.engine = gin.New()
		h.options.engine.Use(middlewares.Logger(), gin.Recovery())
	}
	h.InitRouter()
	return h, nil
}

func (h *Handler) Engine() *gin.Engine {
	return h.options.engine
}

func (h *Handler) DB() *dao.DB {
	return h.options.db
}

// Run serves the API in the background until shutdown. A listener failure
// starts the shutdown sequence.
func (h *Handler) Run() error {
	srv := &http.Server{
		Addr:              h.options.addr,
		Handler:           h.options.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	signal.AddInterruptHandler(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Api.Errorf("srv.Shutdown: %v", err)
		}
	})
	go func() {
		log.Api.Infof("api listening on %s", h.options.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Api.Errorf("srv.ListenAndServe: %v", err)
			signal.SimulateInterrupt()
		}
	}()
	return nil
}
