package errno

import (
	"net/http"

	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
)

// 模型调用失败的错误码按照失败原因细分, 信息即为展示给用户的文案
const (
	CompletionsErrCode       = 70001
	ProviderRateLimitErrCode = 70002
	ProviderTooLargeErrCode  = 70003
	ProviderConfigErrCode    = 70004
	ProviderTimeoutErrCode   = 70005
	ProviderErrCode          = 70006
	AttachArchiveErrCode     = 70007
)

func init() {
	code.Register(
		CompletionsErrCode,
		"I'm experiencing technical difficulties. Please try again later.",
		code.WithAffectStability(true),
	)
	code.Register(
		ProviderRateLimitErrCode,
		"The AI service is experiencing high demand. Please try again in a moment.",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusTooManyRequests),
	)
	code.Register(
		ProviderTooLargeErrCode,
		"The file is too large to analyze or the service is under high demand. Please try a smaller file or try again later.",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusTooManyRequests),
	)
	code.Register(
		ProviderConfigErrCode,
		"The AI service is not configured correctly. Please contact support.",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusUnprocessableEntity),
	)
	code.Register(
		ProviderTimeoutErrCode,
		"The request timed out. Please try again.",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusUnprocessableEntity),
	)
	code.Register(
		ProviderErrCode,
		"I'm experiencing technical difficulties. Please try again later.",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusUnprocessableEntity),
	)
	code.Register(
		AttachArchiveErrCode,
		"Failed to archive attachment",
		code.WithAffectStability(false),
	)
}
