package errno

import (
	"net/http"

	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
)

const (
	UnAuthErrCode      = 1000
	ValidationErrCode  = 1001
	UnImplementErrCode = 888
	InternalErrCode    = 999
)

func init() {
	code.Register(
		UnAuthErrCode,
		"Authentication failed",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusUnauthorized),
	)
	code.Register(
		ValidationErrCode,
		"{reason}",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusBadRequest),
	)
	code.Register(
		UnImplementErrCode,
		"{feature} is not implemented",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusNotImplemented),
	)
	code.Register(
		InternalErrCode,
		"Internal server error",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusInternalServerError),
	)
}
