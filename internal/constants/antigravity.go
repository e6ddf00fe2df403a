package constants

// 上游 Code Assist 接口配置
const (
	// UpstreamBaseURL is the antigravity code-assist API root.
	UpstreamBaseURL = "https://daily-cloudcode-pa.sandbox.googleapis.com/v1internal"

	// RPC 方法名（拼接在 UpstreamBaseURL 之后）
	MethodStreamGenerateContent = ":streamGenerateContent"
	MethodGenerateContent       = ":generateContent"
	MethodFetchAvailableModels  = ":fetchAvailableModels"
	MethodLoadCodeAssist        = ":loadCodeAssist"
	MethodOnboardUser           = ":onboardUser"

	// AltSSEQuery selects the SSE response framing for streaming calls.
	AltSSEQuery = "alt=sse"
)

// UserAgent is sent verbatim on every upstream request. The backend
// rejects clients it does not recognize, so the value is pinned rather
// than derived from runtime.GOOS.
const UserAgent = "antigravity/1.16.5 windows/amd64"

// APIClientHeader mirrors the value the Antigravity IDE sends.
const APIClientHeader = "google-cloud-sdk vscode_cloudshelleditor/0.1"

// ClientMetadata enum values from
// google.internal.cloud.code.v1internal.ClientMetadata.
const (
	IdeTypeAntigravity = 6
	PlatformWindows    = 1
	PluginTypeGemini   = 2
)

// ClientMetadataJSON is the Client-Metadata header payload. Platform is
// pinned to Windows to stay consistent with UserAgent.
const ClientMetadataJSON = `{"ideType":6,"platform":1,"pluginType":2}`

// OAuth 凭据（Antigravity IDE 内置的公开 client）
const (
	OAuthClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	OAuthClientSecret = "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"
	OAuthTokenURL     = "https://oauth2.googleapis.com/token"
	OAuthAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"

	// OAuthRedirectURI 授权完成后浏览器跳转地址；code 由管理员粘贴回导入接口
	OAuthRedirectURI = "http://localhost:51121/oauth-callback"
)

// OAuthScopes 授权范围
var OAuthScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/cclog",
	"https://www.googleapis.com/auth/experimentsandconfigs",
}

// PlaceholderThoughtSignature is accepted by the upstream signature
// validator when the real signature for a thought part is unknown.
const PlaceholderThoughtSignature = "skip_thought_signature_validator"

// DefaultSystemInstruction is injected as the first systemInstruction
// part on every upstream request. Client-supplied system text is
// appended after it.
const DefaultSystemInstruction = `You are Antigravity, a powerful agentic AI coding assistant designed by the Google Deepmind team working on Advanced Agentic Coding.You are pair programming with a USER to solve their coding task. The task may require creating a new codebase, modifying or debugging an existing codebase, or simply answering a question.**Absolute paths only****Proactiveness**`
