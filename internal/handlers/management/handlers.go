package management

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/quota"
	"antigravity2api-go/internal/upstream"
)

// Handler serves the thin management surface: credential listing and
// toggling, rotation hot-swap, quota view/refresh, memory report and
// the live log tail.
type Handler struct {
	cfg       *config.Config
	store     *credential.Store
	pool      *credential.Pool
	quotas    *quota.Cache
	requester *upstream.Requester
	regulator *memory.Regulator
	flow      *oauth.Flow
	upgrader  websocket.Upgrader
}

func New(cfg *config.Config, store *credential.Store, pool *credential.Pool,
	quotas *quota.Cache, requester *upstream.Requester, regulator *memory.Regulator,
	flow *oauth.Flow) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		pool:      pool,
		quotas:    quotas,
		requester: requester,
		regulator: regulator,
		flow:      flow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 管理面已有 API key 门禁，来源不再限制
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Memory GET /v1/memory
func (h *Handler) Memory(c *gin.Context) {
	c.JSON(http.StatusOK, h.regulator.Report())
}

// Quotas GET /v1/quotas
func (h *Handler) Quotas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"quotas": h.quotas.Snapshot()})
}

// RefreshQuotas POST /v1/quotas/refresh
//
// Pulls fetchAvailableModels for every enabled credential that holds a
// usable access token and folds the result into the quota cache.
func (h *Handler) RefreshQuotas(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	updated, skipped := 0, 0
	for _, cred := range h.store.Snapshot() {
		if !cred.Enable || cred.IsExpired(now) || cred.ProjectID == "" {
			skipped++
			continue
		}
		quotas, err := h.requester.FetchAvailableModels(ctx, cred.AccessToken, cred.ProjectID)
		if err != nil {
			log.WithError(err).WithField("email", cred.Email).Warn("quota refresh failed")
			skipped++
			continue
		}
		h.quotas.Update(ctx, cred.RefreshToken, quotas)
		for _, mq := range quotas {
			if mq.Remaining > 0 {
				h.pool.RestoreQuota(ctx, &cred)
				break
			}
		}
		updated++
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "skipped": skipped})
}

// Credentials GET /v1/credentials
func (h *Handler) Credentials(c *gin.Context) {
	creds := h.store.Snapshot()
	out := make([]map[string]any, 0, len(creds))
	for _, cred := range creds {
		out = append(out, cred.Redacted())
	}
	c.JSON(http.StatusOK, gin.H{"credentials": out, "count": len(out)})
}

// ToggleCredential PATCH /v1/credentials
func (h *Handler) ToggleCredential(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
		Enable       *bool  `json:"enable"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" || req.Enable == nil {
		common.WriteError(c, common.ValidationError("refresh_token and enable are required"))
		return
	}
	err := h.store.Update(c.Request.Context(), req.RefreshToken, func(cred *credential.Credential) {
		cred.Enable = *req.Enable
		if *req.Enable {
			cred.HasQuota = true
		}
	})
	if err != nil {
		common.WriteError(c, apperrors.New(http.StatusNotFound, "not_found", "invalid_request_error",
			"credential not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"refresh_token": req.RefreshToken, "enable": *req.Enable})
}

// OAuthURL GET /v1/oauth/url
//
// Hands the admin the consent page URL. The code Google returns to the
// redirect page is pasted back into POST /v1/oauth/callback.
func (h *Handler) OAuthURL(c *gin.Context) {
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{
		"url":   h.flow.AuthCodeURL(state),
		"state": state,
	})
}

// OAuthCallback POST /v1/oauth/callback
func (h *Handler) OAuthCallback(c *gin.Context) {
	var req struct {
		Code      string `json:"code"`
		ProjectID string `json:"project_id"`
		Email     string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		common.WriteError(c, common.ValidationError("code is required"))
		return
	}

	tok, err := h.flow.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		log.WithError(err).Warn("authorization code exchange failed")
		common.WriteError(c, apperrors.New(http.StatusBadGateway, "oauth_exchange_failed", "api_error",
			"authorization code exchange failed"))
		return
	}
	if tok.RefreshToken == "" {
		common.WriteError(c, apperrors.New(http.StatusBadGateway, "oauth_exchange_failed", "api_error",
			"token endpoint returned no refresh_token"))
		return
	}

	expiresIn := int64(3600)
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	cred := &credential.Credential{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresIn:    expiresIn,
		Timestamp:    time.Now().UnixMilli(),
		Enable:       true,
		HasQuota:     true,
		ProjectID:    req.ProjectID,
		Email:        req.Email,
	}
	if err := h.store.Add(c.Request.Context(), cred); err != nil {
		common.WriteError(c, common.ValidationError(err.Error()))
		return
	}
	log.WithField("email", cred.Email).Info("credential imported via oauth flow")
	c.JSON(http.StatusOK, cred.Redacted())
}

// Rotation POST /v1/rotation
func (h *Handler) Rotation(c *gin.Context) {
	var req struct {
		Strategy             string `json:"strategy"`
		RequestCountPerToken int    `json:"request_count_per_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Strategy == "" {
		common.WriteError(c, common.ValidationError("strategy is required"))
		return
	}
	switch req.Strategy {
	case config.StrategyRoundRobin, config.StrategyQuotaExhausted, config.StrategyRequestCount:
	default:
		common.WriteError(c, common.ValidationError("unknown strategy: "+req.Strategy))
		return
	}
	h.pool.UpdateRotationConfig(credential.RotationConfig{
		Strategy:             req.Strategy,
		RequestCountPerToken: req.RequestCountPerToken,
	})
	applied := h.pool.Config()
	c.JSON(http.StatusOK, gin.H{
		"strategy":                applied.Strategy,
		"request_count_per_token": applied.RequestCountPerToken,
	})
}

// LogStream GET /v1/logs/stream
//
// 新订阅先把 ?cursor= 之后的历史补发完，再挂到实时广播上。
// 补发发生在 Attach 之前，连接上不会出现并发写。
func (h *Handler) LogStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时 gorilla 已经写了响应
		log.WithError(err).Debug("websocket upgrade rejected")
		return
	}

	hub := logging.GetLogHub()
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	for {
		records, next, more := hub.History(cursor, 0)
		for _, rec := range records {
			if err := conn.WriteJSON(rec); err != nil {
				_ = conn.Close()
				return
			}
		}
		cursor = next
		if !more {
			break
		}
	}

	if err := hub.Attach(conn); err != nil {
		_ = conn.Close()
	}
}
