package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
)

// ErrIneligible 账号无 code-assist 资格，轮换器应当禁用该凭证。
var ErrIneligible = errors.New("account not eligible for code assist")

// ProjectDetector resolves the cloud companion project id a credential
// must carry on every generate call.
type ProjectDetector struct {
	baseURL string
	client  *http.Client
}

// NewProjectDetector creates a detector against the configured upstream.
func NewProjectDetector(baseURL string) *ProjectDetector {
	if baseURL == "" {
		baseURL = constants.UpstreamBaseURL
	}
	return &ProjectDetector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: constants.ProjectDiscoveryTimeout},
	}
}

type loadCodeAssistResponse struct {
	CloudAICompanionProject string `json:"cloudaicompanionProject"`
	CurrentTier             *struct {
		ID string `json:"id"`
	} `json:"currentTier"`
	AllowedTiers []struct {
		ID        string `json:"id"`
		IsDefault bool   `json:"isDefault"`
	} `json:"allowedTiers"`
}

type onboardUserResponse struct {
	Done     bool `json:"done"`
	Response struct {
		CloudAICompanionProject struct {
			ID string `json:"id"`
		} `json:"cloudaicompanionProject"`
	} `json:"response"`
}

// ResolveProject discovers the companion project for an access token.
// Accounts that have never onboarded are walked through onboardUser
// first. A response that offers no tier at all means the account cannot
// use code assist, reported as ErrIneligible.
func (pd *ProjectDetector) ResolveProject(ctx context.Context, accessToken string) (string, error) {
	load, err := pd.loadCodeAssist(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if load.CloudAICompanionProject != "" {
		return load.CloudAICompanionProject, nil
	}
	if load.CurrentTier == nil && len(load.AllowedTiers) == 0 {
		return "", ErrIneligible
	}

	tierID := "free-tier"
	for _, t := range load.AllowedTiers {
		if t.IsDefault {
			tierID = t.ID
			break
		}
	}
	return pd.onboardUser(ctx, accessToken, tierID)
}

func (pd *ProjectDetector) loadCodeAssist(ctx context.Context, accessToken string) (*loadCodeAssistResponse, error) {
	body := map[string]any{
		"metadata": map[string]any{
			"ideType":    constants.IdeTypeAntigravity,
			"platform":   constants.PlatformWindows,
			"pluginType": constants.PluginTypeGemini,
		},
	}
	var out loadCodeAssistResponse
	if err := pd.post(ctx, constants.MethodLoadCodeAssist, accessToken, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// onboardUser 是一个 LRO，done=false 时轮询直到分配好项目。
func (pd *ProjectDetector) onboardUser(ctx context.Context, accessToken, tierID string) (string, error) {
	body := map[string]any{
		"tierId": tierID,
		"metadata": map[string]any{
			"ideType":    constants.IdeTypeAntigravity,
			"platform":   constants.PlatformWindows,
			"pluginType": constants.PluginTypeGemini,
		},
	}

	for attempt := 0; attempt < 5; attempt++ {
		var out onboardUserResponse
		if err := pd.post(ctx, constants.MethodOnboardUser, accessToken, body, &out); err != nil {
			return "", err
		}
		if out.Done {
			if out.Response.CloudAICompanionProject.ID == "" {
				return "", ErrIneligible
			}
			return out.Response.CloudAICompanionProject.ID, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return "", fmt.Errorf("onboardUser did not complete")
}

func (pd *ProjectDetector) post(ctx context.Context, method, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pd.baseURL+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", constants.UserAgent)

	resp, err := pd.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Debugf("%s returned %d: %s", method, resp.StatusCode, string(raw))
		return fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SynthesizeProjectID fabricates a plausible project id for deployments
// configured to skip discovery.
func SynthesizeProjectID() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("useful-%s-%05d", string(b), rand.Intn(100000))
}
