package claude

import (
	"io"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Handler serves the Anthropic Messages surface.
type Handler struct {
	deps *common.Deps
}

func New(deps *common.Deps) *Handler {
	return &Handler{deps: deps}
}

// Messages POST /v1/messages
func (h *Handler) Messages(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		common.WriteError(c, common.ValidationError("failed to read request body"))
		return
	}
	req, err := translator.ParseClaudeRequest(body)
	if err != nil {
		common.WriteError(c, common.ValidationError(err.Error()))
		return
	}

	passSig := h.deps.Config.Streaming.PassSignatureToClient
	if req.Stream {
		h.deps.ExecuteStream(c, req, translator.NewClaudeStream(req.RawModel, passSig))
		return
	}
	h.deps.ExecuteUnary(c, req, func(res *upstream.UnaryResult) []byte {
		return translator.ClaudeUnary(req.RawModel, res, passSig)
	})
}
