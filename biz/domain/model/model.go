package model

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

type getModelFunc func(ctx context.Context, c *config.Provider, name string) (model.BaseChatModel, error)

var models = map[string]getModelFunc{}

// RegisterModel 注册模型服务实现, name与配置中的Backend对应
func RegisterModel(name string, f getModelFunc) {
	models[name] = f
}

// getModel 获取模型
func getModel(ctx context.Context, c *config.Provider, name string) (model.BaseChatModel, error) {
	f, ok := models[c.Backend]
	if !ok {
		return nil, errorx.New(errno.UnImplementErrCode, errorx.KV("feature", "provider backend "+c.Backend))
	}
	return f(ctx, c, name)
}
