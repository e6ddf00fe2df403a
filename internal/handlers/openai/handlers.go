package openai

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Handler serves the OpenAI-compatible surface.
type Handler struct {
	deps *common.Deps
}

func New(deps *common.Deps) *Handler {
	return &Handler{deps: deps}
}

// ListModels GET /v1/models
func (h *Handler) ListModels(c *gin.Context) {
	created := time.Now().Unix()
	data := make([]gin.H, 0, len(models.Catalog()))
	for _, m := range models.Catalog() {
		data = append(data, gin.H{
			"id":       m.ID,
			"object":   "model",
			"created":  created,
			"owned_by": "antigravity",
		})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

// GetModel GET /v1/models/:id
func (h *Handler) GetModel(c *gin.Context) {
	id := models.Resolve(c.Param("id"))
	m, ok := models.Lookup(id)
	if !ok {
		common.WriteError(c, apperrors.New(http.StatusNotFound, "model_not_found", "invalid_request_error",
			"The model '"+c.Param("id")+"' does not exist"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       m.ID,
		"object":   "model",
		"created":  time.Now().Unix(),
		"owned_by": "antigravity",
	})
}

// ChatCompletions POST /v1/chat/completions
func (h *Handler) ChatCompletions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.WriteError(c, common.ValidationError("failed to read request body"))
		return
	}
	req, err := translator.ParseOpenAIRequest(body)
	if err != nil {
		common.WriteError(c, common.ValidationError(err.Error()))
		return
	}

	if req.Stream {
		h.deps.ExecuteStream(c, req, translator.NewOpenAIStream(req.RawModel))
		return
	}
	h.deps.ExecuteUnary(c, req, func(res *upstream.UnaryResult) []byte {
		return translator.OpenAIUnary(req.RawModel, res)
	})
}
