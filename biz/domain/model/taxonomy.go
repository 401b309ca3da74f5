package model

import (
	"strings"

	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

// Category 模型调用失败的原因分类, 与具体服务商的报错措辞无关
type Category int

const (
	CategoryGeneric Category = iota
	CategoryRateLimit
	CategoryTooLarge
	CategoryConfig
	CategoryTimeout
)

// 按顺序匹配, 先命中者优先
var taxonomy = []struct {
	category Category
	patterns []string
}{
	{CategoryRateLimit, []string{"rate limit exceeded", "rate_limit_exceeded"}},
	{CategoryTooLarge, []string{"request too large", "tokens per minute", "tokens-per-minute"}},
	{CategoryConfig, []string{"invalid api key", "incorrect api key", "invalid_api_key", "configuration"}},
	{CategoryTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
}

// Classify 根据错误信息的子串确定分类
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneric
	}
	msg := strings.ToLower(err.Error())
	for _, t := range taxonomy {
		for _, p := range t.patterns {
			if strings.Contains(msg, p) {
				return t.category
			}
		}
	}
	return CategoryGeneric
}

// Code 分类对应的错误码
func (c Category) Code() int32 {
	switch c {
	case CategoryRateLimit:
		return errno.ProviderRateLimitErrCode
	case CategoryTooLarge:
		return errno.ProviderTooLargeErrCode
	case CategoryConfig:
		return errno.ProviderConfigErrCode
	case CategoryTimeout:
		return errno.ProviderTimeoutErrCode
	default:
		return errno.ProviderErrCode
	}
}

// UserMessage 面向用户的提示, 不包含服务商原始报错
func UserMessage(err error) string {
	d, _ := code.Lookup(Classify(err).Code())
	return d.Message
}
