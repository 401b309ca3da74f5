package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError 将校验失败转换为ValidationError, 只暴露字段名与规则
func validationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return errorx.WrapByCode(err, errno.ValidationErrCode, errorx.KV("reason", fmt.Sprintf("invalid %s: %s", lowerFirst(fe.Field()), fe.Tag())))
	}
	return errorx.WrapByCode(err, errno.ValidationErrCode, errorx.KV("reason", "invalid request"))
}

func invalid(reason string) error {
	return errorx.New(errno.ValidationErrCode, errorx.KV("reason", reason))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
