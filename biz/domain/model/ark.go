package model

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util/httpx"
)

func init() {
	RegisterModel(ARK, NewARKChatModel)
}

const (
	ARK        = "ark"
	ARKBeijing = "https://ark.cn-beijing.volces.com/api/v3"
)

// NewARKChatModel 火山方舟模型服务, 未配置地址时使用北京区域
func NewARKChatModel(ctx context.Context, c *config.Provider, name string) (model.BaseChatModel, error) {
	baseURL, region := c.BaseURL, c.Region
	if baseURL == "" {
		baseURL = ARKBeijing
	}
	if region == "" {
		region = "cn-beijing"
	}
	cli, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:    baseURL,
		Region:     region,
		APIKey:     c.APIKey,
		Model:      name,
		HTTPClient: httpx.GetHttpClient().Client,
	})
	if err != nil {
		return nil, err
	}
	return cli, nil
}
