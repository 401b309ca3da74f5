package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
)

// Gateway 模型调用入口, 两种调用方式共用一个重试策略
type Gateway struct {
	chat        model.BaseChatModel
	file        model.BaseChatModel
	retrier     *Retrier
	fileTimeout time.Duration
}

// NewGateway 按配置构建对话模型与文件分析模型
func NewGateway(c *config.Config) (*Gateway, error) {
	ctx := context.Background()
	chat, err := getModel(ctx, &c.Provider, c.Provider.Model)
	if err != nil {
		return nil, err
	}
	file := chat
	if c.Provider.FileModel != "" && c.Provider.FileModel != c.Provider.Model {
		if file, err = getModel(ctx, &c.Provider, c.Provider.FileModel); err != nil {
			return nil, err
		}
	}
	return New(chat, file, NewRetrier(c.Stream.MaxAttempts, c.Stream.BaseBackoff), c.Stream.FileTimeout), nil
}

func New(chat, file model.BaseChatModel, retrier *Retrier, fileTimeout time.Duration) *Gateway {
	if fileTimeout <= 0 {
		fileTimeout = 3 * time.Minute
	}
	return &Gateway{chat: chat, file: file, retrier: retrier, fileTimeout: fileTimeout}
}

// StreamCompletion 基于历史消息的流式对话
// 重试只覆盖建立流的过程, 已开始输出后的失败由调用方作为最终失败处理
func (g *Gateway) StreamCompletion(ctx context.Context, history []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	var sr *schema.StreamReader[*schema.Message]
	err := g.retrier.Do(ctx, OpStream, func(ctx context.Context) (err error) {
		sr, err = g.chat.Stream(ctx, history)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sr, nil
}

// FileCompletion 单次文件分析, 每次尝试有独立的超时
func (g *Gateway) FileCompletion(ctx context.Context, instruction, filename, mimeType, base64Payload string) (string, error) {
	in := []*schema.Message{FileMessage(instruction, filename, mimeType, base64Payload)}
	var out string
	err := g.retrier.Do(ctx, OpFile, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, g.fileTimeout)
		defer cancel()
		m, err := g.file.Generate(actx, in)
		if err != nil {
			if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("file completion timeout after %s: %w", g.fileTimeout, err)
			}
			return err
		}
		out = m.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// FileMessage 构建携带文件的用户消息, 图片以图片形式传入
func FileMessage(instruction, filename, mimeType, base64Payload string) *schema.Message {
	common := schema.MessagePartCommon{
		Base64Data: &base64Payload,
		MIMEType:   mimeType,
		Extra:      map[string]any{"filename": filename},
	}
	part := schema.MessageInputPart{Type: schema.ChatMessagePartTypeFileURL, File: &schema.MessageInputFile{MessagePartCommon: common}}
	if strings.HasPrefix(mimeType, "image/") {
		part = schema.MessageInputPart{Type: schema.ChatMessagePartTypeImageURL, Image: &schema.MessageInputImage{MessagePartCommon: common}}
	}
	return &schema.Message{
		Role: schema.User,
		UserInputMultiContent: []schema.MessageInputPart{
			{Type: schema.ChatMessagePartTypeText, Text: instruction},
			part,
		},
	}
}
