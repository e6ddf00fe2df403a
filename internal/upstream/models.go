package upstream

import (
	"context"
	"io"
	"math"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring/tracing"
	"antigravity2api-go/internal/quota"
)

// FetchAvailableModels queries the per-credential model quota table and
// projects it into cache entries. remainingFraction arrives as 0..1 and
// is stored as a whole percentage.
func (r *Requester) FetchAvailableModels(ctx context.Context, accessToken, projectID string) (map[string]quota.ModelQuota, error) {
	ctx, span := tracing.StartSpan(ctx, "upstream", "fetchAvailableModels")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, constants.QuotaFetchTimeout)
	defer cancel()

	body, _ := sjson.SetBytes([]byte(`{}`), "project", projectID)
	resp, err := r.post(ctx, constants.MethodFetchAvailableModels, accessToken, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "read models response: " + err.Error()}
	}

	quotas := make(map[string]quota.ModelQuota)
	gjson.GetBytes(raw, "models").ForEach(func(id, model gjson.Result) bool {
		info := model.Get("quotaInfo")
		if !info.Exists() {
			return true
		}
		quotas[id.String()] = quota.ModelQuota{
			Remaining: int(math.Round(info.Get("remainingFraction").Float() * 100)),
			ResetTime: info.Get("resetTime").String(),
		}
		return true
	})
	return quotas, nil
}
