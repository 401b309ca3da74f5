package util

import (
	"net/url"

	"github.com/xh-polaris/chatstream-core-api/biz/application/dto/basic"
)

// Success 返回成功的basic.Response指针
func Success() *basic.Response {
	return &basic.Response{
		Code: 0,
		Msg:  "success",
	}
}

// Str2URL 解析配置中的地址, 非法时返回nil
func Str2URL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		return nil
	}
	return u
}
