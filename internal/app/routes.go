package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/handler"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/service"
)

// NewEngine mounts every route. Audit and metrics sit outside ErrorHandler
// so they observe rendered errors.
func NewEngine(cfg *config.Config, d *Deps, auditSvc *service.AuditService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CORS))
	if auditSvc != nil {
		r.Use(middleware.AuditMiddleware(auditSvc))
	}
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())

	r.GET("/health", handler.Health(handler.Upstreams{
		Clob:       d.Clob.BaseURL(),
		Proxy:      d.Router.HasProxy(),
		RPCs:       d.Ladder.Len(),
		L1Signer:   d.Clob.HasL1Signer(),
		SafeSubmit: d.Safe != nil,
		Cloud:      d.Cloud.Enabled(),
		Agent:      d.Agent.Enabled(),
		ReadOnly:   cfg.Server.ReadOnly,
	}))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	blocked := cfg.Proxy.BlockedStatuses
	if len(blocked) == 0 {
		blocked = dispatch.DefaultBlockedStatuses
	}
	idem := middleware.IdempotencyMiddleware(middleware.NewInMemIdempotencyStore(time.Duration(cfg.Idempotency.TTLSeconds)*time.Second), blocked...)

	clobH := handler.NewClobHandler(d.Clob)
	balanceH := handler.NewBalanceHandler(d.Balances)
	walletH := handler.NewWalletHandler(d.Safe, d.Balances.DeriveSafe)
	swapH := handler.NewSwapHandler(d.Swap)
	cloudH := handler.NewCloudHandler(d.Cloud)
	agentH := handler.NewAgentHandler(d.Agent)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.Auth))
	v1.Use(middleware.RateLimitMiddleware(middleware.NewLimiterRegistry(cfg.RateLimit.QPS, cfg.RateLimit.Burst)))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	{
		v1.GET("/clob/time", clobH.Time)
		v1.POST("/clob/api-key", clobH.CreateAPIKey)
		v1.GET("/clob/api-key/derive", clobH.DeriveAPIKey)
		v1.DELETE("/clob/api-key", clobH.DeleteAPIKey)
		v1.POST("/clob/api-key/ensure", clobH.EnsureAPIKey)
		v1.POST("/clob/l1-headers", clobH.L1Headers)
		v1.POST("/clob/order", idem, clobH.PostOrder)
		v1.GET("/clob/balance-allowance", clobH.BalanceAllowance)

		v1.GET("/balances/:address", balanceH.Get)
		v1.POST("/wallet/exec", idem, walletH.Exec)

		v1.GET("/swap/prices", swapH.Prices)
		v1.POST("/swap/transaction", swapH.Transaction)

		v1.POST("/cloud/chat", cloudH.Chat)
		v1.POST("/cloud/tts", cloudH.TTS)
		v1.POST("/cloud/stt", cloudH.STT)
		v1.POST("/cloud/image", cloudH.Image)

		v1.GET("/agent/status", agentH.Status)
		v1.GET("/agent/markets", agentH.Markets)
		v1.GET("/agent/proxy/*path", agentH.Proxy)
	}

	if auditSvc != nil && cfg.Auth.AdminKey != "" {
		admin := r.Group("/v1/admin")
		admin.Use(middleware.AdminMiddleware(cfg.Auth.AdminKey))
		admin.GET("/audit", handler.NewAuditHandler(auditSvc).List)
	}
	return r
}
