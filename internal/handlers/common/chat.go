package common

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/credential"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// StreamRenderer 响应翻译器的流式状态机。
type StreamRenderer interface {
	Chunk(d upstream.Delta) []byte
	Finish() []byte
}

// inbandErrorer renderers that define their own in-stream error event.
type inbandErrorer interface {
	ErrorEvent(message string) []byte
}

// ExecuteStream runs the full streaming chat path: credential, upstream
// body, 429-retried SSE call, per-delta translation. The SSE response
// is opened lazily on the first delta so a request that never produced
// a byte can still fail with a real HTTP status.
func (d *Deps) ExecuteStream(c *gin.Context, req *translator.Request, renderer StreamRenderer) {
	ctx := c.Request.Context()
	c.Set("model", req.RawModel)

	cred, err := d.Pool.GetToken(ctx)
	if err != nil {
		WriteError(c, NoTokenError())
		return
	}
	body, err := d.Builder.UpstreamBody(req, cred.ProjectID, cred.SessionID)
	if err != nil {
		WriteError(c, ValidationError(err.Error()))
		return
	}

	surface := string(httpformat.DetectFromContext(c))
	interval := time.Duration(d.Config.Streaming.HeartbeatSeconds) * time.Second

	var sse *SSEWriter
	var writeErr error
	attempt := func() error {
		return d.Requester.Stream(ctx, cred.AccessToken, body, func(delta upstream.Delta) {
			d.recordDelta(req.Model, delta)
			if writeErr != nil {
				return
			}
			if sse == nil {
				sse = NewSSEWriter(c, interval, surface)
			}
			writeErr = sse.Write(renderer.Chunk(delta))
		})
	}
	err = upstream.WithRetry(ctx, d.Config.Rotation.RetryTimes, attempt)
	defer func() {
		if sse != nil {
			sse.Close()
		}
	}()

	if err != nil {
		d.noteRateLimit(ctx, cred, req.Model, err)
		apiErr := MapUpstreamError(err)
		if sse == nil {
			WriteError(c, apiErr)
			return
		}
		log.WithError(err).WithField("model", req.Model).Warn("stream aborted midway")
		_ = sse.Write(inbandErrorFrame(httpformat.DetectFromContext(c), renderer, apiErr))
		return
	}
	if writeErr != nil {
		monitoring.SSEDisconnectsTotal.WithLabelValues(surface, "client_gone").Inc()
		return
	}
	if sse == nil {
		// 上游一个增量都没给，仍然要把终止帧完整发出去
		sse = NewSSEWriter(c, interval, surface)
	}
	_ = sse.Write(renderer.Finish())
}

// ExecuteUnary runs the non-streaming chat path and writes the
// surface-specific projection of the assembled result.
func (d *Deps) ExecuteUnary(c *gin.Context, req *translator.Request, project func(*upstream.UnaryResult) []byte) {
	ctx := c.Request.Context()
	c.Set("model", req.RawModel)

	cred, err := d.Pool.GetToken(ctx)
	if err != nil {
		WriteError(c, NoTokenError())
		return
	}
	body, err := d.Builder.UpstreamBody(req, cred.ProjectID, cred.SessionID)
	if err != nil {
		WriteError(c, ValidationError(err.Error()))
		return
	}

	var res *upstream.UnaryResult
	err = upstream.WithRetry(ctx, d.Config.Rotation.RetryTimes, func() error {
		r, e := d.Requester.Generate(ctx, cred.AccessToken, body)
		if e == nil {
			res = r
		}
		return e
	})
	if err != nil {
		d.noteRateLimit(ctx, cred, req.Model, err)
		WriteError(c, MapUpstreamError(err))
		return
	}

	d.recordUnary(req.Model, res)
	c.Data(http.StatusOK, "application/json", project(res))
}

// recordDelta threads signatures into the cache and counts tokens.
func (d *Deps) recordDelta(model string, delta upstream.Delta) {
	switch delta.Kind {
	case upstream.DeltaReasoning:
		if delta.ThoughtSignature != "" {
			d.Signatures.StoreText(model, delta.ThoughtSignature)
		}
	case upstream.DeltaToolCalls:
		for _, call := range delta.ToolCalls {
			if call.ThoughtSignature != "" {
				d.Signatures.StoreTool(model, call.ThoughtSignature)
			}
		}
	case upstream.DeltaUsage:
		if u := delta.Usage; u != nil {
			monitoring.TokensUsed.WithLabelValues(model, "prompt").Add(float64(u.PromptTokens))
			monitoring.TokensUsed.WithLabelValues(model, "completion").Add(float64(u.CompletionTokens))
			if u.ThoughtsTokens > 0 {
				monitoring.TokensUsed.WithLabelValues(model, "thoughts").Add(float64(u.ThoughtsTokens))
			}
		}
	}
}

func (d *Deps) recordUnary(model string, res *upstream.UnaryResult) {
	if res.ReasoningSignature != "" {
		d.Signatures.StoreText(model, res.ReasoningSignature)
	}
	for _, call := range res.ToolCalls {
		if call.ThoughtSignature != "" {
			d.Signatures.StoreTool(model, call.ThoughtSignature)
		}
	}
	if res.Usage != nil {
		d.recordDelta(model, upstream.Delta{Kind: upstream.DeltaUsage, Usage: res.Usage})
	}
}

// noteRateLimit flags quota exhaustion when the 429 carried the
// QUOTA_EXHAUSTED detail; a bare 429 never penalizes the credential.
func (d *Deps) noteRateLimit(ctx context.Context, cred *credential.Credential, model string, err error) {
	var upErr *upstream.Error
	if !errors.As(err, &upErr) || !upErr.RateLimited() {
		return
	}
	reset := upErr.QuotaExhaustedReset()
	if reset == "" {
		return
	}
	monitoring.QuotaExhaustedTotal.WithLabelValues(model).Inc()
	d.Pool.MarkQuotaExhausted(ctx, cred)
	d.Quotas.MarkExhausted(ctx, cred.RefreshToken, model, reset)
}

func inbandErrorFrame(format apperrors.ErrorFormat, renderer StreamRenderer, apiErr *apperrors.APIError) []byte {
	switch format {
	case apperrors.FormatClaude:
		if e, ok := renderer.(inbandErrorer); ok {
			return e.ErrorEvent(apiErr.Message)
		}
		return nil
	case apperrors.FormatGemini:
		payload, _ := apiErr.ToJSON(apperrors.FormatGemini)
		frame := make([]byte, 0, len(payload)+8)
		frame = append(frame, "data: "...)
		frame = append(frame, payload...)
		frame = append(frame, '\n', '\n')
		return frame
	default:
		// OpenAI 流没有带内错误事件，直接结束
		return nil
	}
}
