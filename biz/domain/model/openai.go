package model

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util/httpx"
)

func init() {
	RegisterModel(OpenAI, NewOpenAIChatModel)
}

const OpenAI = "openai"

// NewOpenAIChatModel 兼容OpenAI协议的模型服务
func NewOpenAIChatModel(ctx context.Context, c *config.Provider, name string) (model.BaseChatModel, error) {
	cli, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      name,
		HTTPClient: httpx.GetHttpClient().Client,
	})
	if err != nil {
		return nil, err
	}
	return cli, nil
}
