package gemini

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Handler serves the Gemini-native surface under /v1beta.
type Handler struct {
	deps *common.Deps
}

func New(deps *common.Deps) *Handler {
	return &Handler{deps: deps}
}

// ListModels GET /v1beta/models
func (h *Handler) ListModels(c *gin.Context) {
	out := make([]gin.H, 0, len(models.Catalog()))
	for _, m := range models.Catalog() {
		out = append(out, modelResource(m))
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

// GetModel GET /v1beta/models/:model
func (h *Handler) GetModel(c *gin.Context) {
	id := models.Resolve(c.Param("model"))
	m, ok := models.Lookup(id)
	if !ok {
		common.WriteError(c, apperrors.New(http.StatusNotFound, "NOT_FOUND", "NOT_FOUND",
			"Model "+c.Param("model")+" not found"))
		return
	}
	c.JSON(http.StatusOK, modelResource(m))
}

// Dispatch POST /v1beta/models/*action
//
// Gin 不支持同一段内混合路径参数与字面冒号，整段捕获后在这里
// 拆出 model:verb 再分发。
func (h *Handler) Dispatch(c *gin.Context) {
	raw := strings.TrimPrefix(c.Param("action"), "/")
	model, verb, found := strings.Cut(raw, ":")
	if !found {
		common.WriteError(c, apperrors.New(http.StatusNotFound, "NOT_FOUND", "NOT_FOUND",
			"Unknown method on models/"+raw))
		return
	}
	switch verb {
	case "generateContent":
		h.generate(c, model, c.Query("alt") == "sse")
	case "streamGenerateContent":
		h.generate(c, model, true)
	default:
		common.WriteError(c, apperrors.New(http.StatusNotFound, "NOT_FOUND", "NOT_FOUND",
			"Unknown method "+verb))
	}
}

func (h *Handler) generate(c *gin.Context, model string, stream bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.WriteError(c, common.ValidationError("failed to read request body"))
		return
	}
	req, err := translator.ParseGeminiRequest(model, stream, body)
	if err != nil {
		common.WriteError(c, common.ValidationError(err.Error()))
		return
	}

	passSig := h.deps.Config.Streaming.PassSignatureToClient
	if stream {
		h.deps.ExecuteStream(c, req, translator.NewGeminiStream(req.RawModel, passSig))
		return
	}
	h.deps.ExecuteUnary(c, req, func(res *upstream.UnaryResult) []byte {
		return translator.GeminiUnary(req.RawModel, res, passSig)
	})
}

func modelResource(m models.Info) gin.H {
	return gin.H{
		"name":        "models/" + m.ID,
		"version":     "001",
		"displayName": m.DisplayName,
		"supportedGenerationMethods": []string{
			"generateContent",
			"streamGenerateContent",
		},
	}
}
