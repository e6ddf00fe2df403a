package upstream

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/monitoring/tracing"
)

// Requester performs the HTTPS calls against the code-assist backend.
// The overall client timeout stays 0: generations may stream for
// minutes, truncation is decided by the upstream finishReason.
type Requester struct {
	baseURL string
	cli     *http.Client
}

// NewRequester builds a requester from the upstream configuration.
func NewRequester(cfg *config.Config) *Requester {
	tr := &http.Transport{
		Proxy: proxyFunc(cfg.Upstream.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   constants.DefaultDialTimeout,
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   constants.DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: constants.DefaultResponseHeaderTimeout,
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          constants.UpstreamMaxIdleConns,
		MaxIdleConnsPerHost:   constants.UpstreamMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.UpstreamIdleConnTimeout,
		WriteBufferSize:       constants.UpstreamWriteBufferSize,
		ReadBufferSize:        constants.UpstreamReadBufferSize,
	}
	return &Requester{
		baseURL: cfg.Upstream.BaseURL,
		cli:     &http.Client{Transport: tr, Timeout: 0},
	}
}

func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsed)
		}
	}
	return http.ProxyFromEnvironment
}

// Stream POSTs the streaming endpoint and invokes fn for every parsed
// delta, in arrival order, until EOS or error.
func (r *Requester) Stream(ctx context.Context, accessToken string, body []byte, fn DeltaFunc) error {
	ctx, span := tracing.StartSpan(ctx, "upstream", "streamGenerateContent")
	defer span.End()

	resp, err := r.post(ctx, constants.MethodStreamGenerateContent+"?"+constants.AltSSEQuery, accessToken, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if err := parseSSE(resp.Body, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Generate POSTs the unary endpoint and assembles the whole result.
func (r *Requester) Generate(ctx context.Context, accessToken string, body []byte) (*UnaryResult, error) {
	ctx, span := tracing.StartSpan(ctx, "upstream", "generateContent")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, constants.UpstreamUnaryTimeout)
	defer cancel()

	resp, err := r.post(ctx, constants.MethodGenerateContent, accessToken, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "read upstream response: " + err.Error()}
	}
	result := parseUnary(raw)
	span.SetAttributes(attribute.Int("upstream.tool_calls", len(result.ToolCalls)))
	return result, nil
}

// post issues one call and maps non-2xx statuses to *Error. The caller
// owns resp.Body on success.
func (r *Requester) post(ctx context.Context, method, accessToken string, body []byte) (*http.Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+method, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("X-Goog-Api-Client", constants.APIClientHeader)
	req.Header.Set("Client-Metadata", constants.ClientMetadataJSON)

	rpc := rpcLabel(method)
	resp, err := r.cli.Do(req)
	if err != nil {
		monitoring.UpstreamRequestsTotal.WithLabelValues(rpc, "network_error").Inc()
		return nil, &Error{Message: err.Error()}
	}

	monitoring.UpstreamRequestsTotal.WithLabelValues(rpc, monitoring.StatusClass(resp.StatusCode)).Inc()
	monitoring.UpstreamRequestDuration.WithLabelValues(rpc).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, newAPIError(resp.StatusCode, raw)
	}
	return resp, nil
}

func rpcLabel(method string) string {
	for i := 0; i < len(method); i++ {
		if method[i] == '?' {
			return method[:i]
		}
	}
	return method
}
