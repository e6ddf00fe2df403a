package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	ch "antigravity2api-go/internal/handlers/claude"
	"antigravity2api-go/internal/handlers/common"
	gh "antigravity2api-go/internal/handlers/gemini"
	mh "antigravity2api-go/internal/handlers/management"
	oh "antigravity2api-go/internal/handlers/openai"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/quota"
	"antigravity2api-go/internal/signature"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Dependencies are the runtime services the engine routes against.
// Everything is constructed explicitly in cmd/server and handed in.
type Dependencies struct {
	Config     *config.Config
	Store      *credential.Store
	Pool       *credential.Pool
	Quotas     *quota.Cache
	Signatures *signature.Cache
	Requester  *upstream.Requester
	Regulator  *memory.Regulator
}

// BuildEngine assembles the gin engine with all three chat surfaces and
// the management routes.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(),
	)

	started := time.Now()
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatDeps := &common.Deps{
		Config:     cfg,
		Pool:       deps.Pool,
		Builder:    translator.NewBuilder(deps.Signatures, cfg.Upstream.SystemInstruction),
		Requester:  deps.Requester,
		Signatures: deps.Signatures,
		Quotas:     deps.Quotas,
	}
	openaiHandler := oh.New(chatDeps)
	geminiHandler := gh.New(chatDeps)
	claudeHandler := ch.New(chatDeps)
	mgmt := mh.New(cfg, deps.Store, deps.Pool, deps.Quotas, deps.Requester, deps.Regulator,
		oauth.NewFlow(""))

	auth := middleware.Auth(config.APIKeyValidator(cfg))

	v1 := engine.Group("/v1", auth)
	{
		v1.GET("/models", openaiHandler.ListModels)
		v1.GET("/models/:id", openaiHandler.GetModel)
		v1.POST("/chat/completions", openaiHandler.ChatCompletions)
		v1.POST("/messages", claudeHandler.Messages)

		v1.GET("/memory", mgmt.Memory)
		v1.GET("/quotas", mgmt.Quotas)
		v1.POST("/quotas/refresh", mgmt.RefreshQuotas)
		v1.GET("/credentials", mgmt.Credentials)
		v1.PATCH("/credentials", mgmt.ToggleCredential)
		v1.GET("/oauth/url", mgmt.OAuthURL)
		v1.POST("/oauth/callback", mgmt.OAuthCallback)
		v1.POST("/rotation", mgmt.Rotation)
		v1.GET("/logs/stream", mgmt.LogStream)
	}

	v1beta := engine.Group("/v1beta", auth)
	{
		v1beta.GET("/models", geminiHandler.ListModels)
		v1beta.GET("/models/:model", geminiHandler.GetModel)
		v1beta.POST("/models/*action", geminiHandler.Dispatch)
	}

	return engine
}
