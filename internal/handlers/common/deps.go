package common

import (
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/quota"
	"antigravity2api-go/internal/signature"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// Deps 各 surface handler 共享的服务集合，启动时显式装配。
type Deps struct {
	Config     *config.Config
	Pool       *credential.Pool
	Builder    *translator.Builder
	Requester  *upstream.Requester
	Signatures *signature.Cache
	Quotas     *quota.Cache
}
