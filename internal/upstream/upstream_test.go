package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRequester mirrors the real base URL shape: the RPC method name is
// appended after a path segment, not directly after the host:port.
func testRequester(baseURL string) *Requester {
	return &Requester{baseURL: baseURL + "/v1internal", cli: &http.Client{}}
}

func TestStreamParsesTypedDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Client-Metadata"))

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"response":{"candidates":[{"content":{"parts":[{"text":"pondering","thought":true,"thoughtSignature":"sig-a"}]}}]}}`,
			`: keepalive`,
			`data: {"response":{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"world"}]}}]}}`,
			`data: {"response":{"candidates":[{"content":{"parts":[{"functionCall":{"id":"call-1","name":"get_weather","args":{"city":"Oslo"}},"thoughtSignature":"sig-b"}]}}]}}`,
			`data: {"response":{"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":7,"totalTokenCount":19,"thoughtsTokenCount":3}}}`,
		}
		for _, f := range frames {
			_, _ = w.Write([]byte(f + "\n\n"))
		}
	}))
	defer srv.Close()

	var got []Delta
	err := testRequester(srv.URL).Stream(context.Background(), "tok-1", []byte(`{}`), func(d Delta) {
		got = append(got, d)
	})
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, DeltaReasoning, got[0].Kind)
	assert.Equal(t, "pondering", got[0].Reasoning)
	assert.Equal(t, "sig-a", got[0].ThoughtSignature)

	assert.Equal(t, DeltaContent, got[1].Kind)
	assert.Equal(t, "Hello ", got[1].Content)
	assert.Equal(t, "world", got[2].Content)

	require.Equal(t, DeltaToolCalls, got[3].Kind)
	require.Len(t, got[3].ToolCalls, 1)
	call := got[3].ToolCalls[0]
	assert.Equal(t, "call-1", call.ID)
	assert.Equal(t, "get_weather", call.Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, call.Arguments)
	assert.Equal(t, "sig-b", call.ThoughtSignature)

	require.Equal(t, DeltaUsage, got[4].Kind)
	assert.Equal(t, 19, got[4].Usage.TotalTokens)
	assert.Equal(t, 3, got[4].Usage.ThoughtsTokens)
}

func TestGenerateAssemblesUnaryResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"candidates":[{"content":{"parts":[
			{"text":"step one","thought":true,"thoughtSignature":"sig-u"},
			{"text":"answer"},
			{"functionCall":{"name":"lookup","args":{"q":1}}}
		]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2,"totalTokenCount":6}}}`))
	}))
	defer srv.Close()

	res, err := testRequester(srv.URL).Generate(context.Background(), "tok", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Content)
	assert.Equal(t, "step one", res.ReasoningContent)
	assert.Equal(t, "sig-u", res.ReasoningSignature)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "lookup", res.ToolCalls[0].Name)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 6, res.Usage.TotalTokens)
}

func TestToolCallWithoutArgsDefaultsToEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"candidates":[{"content":{"parts":[{"functionCall":{"name":"ping"}}]}}]}}`))
	}))
	defer srv.Close()

	res, err := testRequester(srv.URL).Generate(context.Background(), "tok", []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "{}", res.ToolCalls[0].Arguments)
}

func TestUpstreamErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied on project"}}`))
	}))
	defer srv.Close()

	_, err := testRequester(srv.URL).Generate(context.Background(), "tok", []byte(`{}`))
	require.Error(t, err)
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, upErr.Status)
	assert.Equal(t, "permission denied on project", upErr.Message)
	assert.True(t, upErr.APIReported)
	assert.False(t, upErr.RateLimited())
}

func TestQuotaExhaustedResetExtraction(t *testing.T) {
	body := `{"error":{"code":429,"message":"quota","details":[
		{"reason":"RATE_LIMITED"},
		{"reason":"QUOTA_EXHAUSTED","metadata":{"quotaResetTimeStamp":"2026-08-27T00:00:00Z"}}
	]}}`
	e := newAPIError(http.StatusTooManyRequests, []byte(body))
	assert.True(t, e.RateLimited())
	assert.Equal(t, "2026-08-27T00:00:00Z", e.QuotaExhaustedReset())

	plain := newAPIError(http.StatusTooManyRequests, []byte(`{"error":{"message":"slow down"}}`))
	assert.Empty(t, plain.QuotaExhaustedReset())
}

func TestWithRetryOnlyRetriesRateLimit(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return &Error{Status: http.StatusTooManyRequests, Message: "quota"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(context.Background(), 3, func() error {
		calls++
		return &Error{Status: http.StatusInternalServerError, Message: "boom"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-429 must not be retried")

	calls = 0
	err = WithRetry(context.Background(), 2, func() error {
		calls++
		return &Error{Status: http.StatusTooManyRequests, Message: "quota"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "first attempt plus retry budget")
}

func TestFetchAvailableModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":{
			"gemini-3-pro-high":{"quotaInfo":{"remainingFraction":0.42,"resetTime":"2026-08-27T01:00:00Z"}},
			"gemini-3-flash":{"quotaInfo":{"remainingFraction":1,"resetTime":""}},
			"no-quota-model":{}
		}}`))
	}))
	defer srv.Close()

	quotas, err := testRequester(srv.URL).FetchAvailableModels(context.Background(), "tok", "proj-1")
	require.NoError(t, err)
	require.Len(t, quotas, 2)
	assert.Equal(t, 42, quotas["gemini-3-pro-high"].Remaining)
	assert.Equal(t, "2026-08-27T01:00:00Z", quotas["gemini-3-pro-high"].ResetTime)
	assert.Equal(t, 100, quotas["gemini-3-flash"].Remaining)
}
