package flow

import (
	"context"
	"errors"
	"io"

	"github.com/xh-polaris/chatstream-core-api/biz/domain/interaction"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/model"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/msg"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/state"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

// loadHistory 按创建时间正序加载历史, 包含本次的用户消息
func (f *Flow) loadHistory(ctx context.Context, r *state.RelayContext) (*state.RelayContext, error) {
	msgs, err := f.his.RetrieveMessage(ctx, r.Conversation.ConversationId)
	if err != nil {
		logs.CtxErrorf(ctx, "[flow] [load-history] err: %s", errorx.ErrorWithoutStack(err))
		return r, r.Fail(errorx.WrapByCode(err, errno.ConversationGetErrCode))
	}
	r.History = msg.MMsgsToEMsgs(msgs)
	return r, nil
}

// streamCompletion 转发模型的每个片段并累积
func (f *Flow) streamCompletion(_ context.Context, r *state.RelayContext) (*state.RelayContext, error) {
	sr, err := f.provider.StreamCompletion(r.Ctx, r.History)
	if err != nil {
		return r, r.Fail(err)
	}
	defer sr.Close()

	for {
		if r.Emitter.Broken() || r.Ctx.Err() != nil {
			return r, r.Fail(ErrInterrupted)
		}
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			r.Complete = true
			return r, nil
		} else if err != nil {
			if r.Ctx.Err() != nil {
				return r, r.Fail(ErrInterrupted)
			}
			// 已有输出时不再重试, 避免重复片段
			return r, r.Fail(&model.ProviderError{Op: model.OpStream, Attempts: 1, Err: err})
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		r.Text.WriteString(chunk.Content)
		err = r.Emitter.Chunk(chunk.Content)
		logs.CondErrorf(err != nil, "[flow] [stream-completion] emit chunk err: %s", errorx.ErrorWithoutStack(err))
	}
}

// fileCompletion 单次调用得到完整回复后模拟流式输出
func (f *Flow) fileCompletion(ctx context.Context, r *state.RelayContext) (*state.RelayContext, error) {
	instruction := r.Content
	if instruction == "" {
		instruction = cst.DefaultFilePrompt
	}
	text, err := f.provider.FileCompletion(r.Ctx, instruction, r.Attach.Filename, r.Attach.MimeType, r.Attach.Base64Payload)
	if err != nil {
		if r.Ctx.Err() != nil {
			return r, r.Fail(ErrInterrupted)
		}
		return r, r.Fail(err)
	}
	r.Text.WriteString(text)
	r.Complete = true

	// 回复已完整, 对端断开只停止输出, 仍然持久化
	if _, err = interaction.Simulate(r.Ctx, r.Emitter, text, f.chunkDelay, f.sleep); err != nil {
		logs.CtxInfof(ctx, "[flow] [file-completion] simulate stopped: %s", errorx.ErrorWithoutStack(err))
	}
	return r, nil
}

// storeAssistant 持久化完整回复并刷新对话更新时间, ctx不随请求取消
func (f *Flow) storeAssistant(ctx context.Context, r *state.RelayContext) (*state.RelayContext, error) {
	if !r.Complete {
		return r, r.Fail(ErrInterrupted)
	}
	cid, uid := r.Conversation.ConversationId, r.UserMessage.UserId

	m := msg.AssistantMMsg(cid, uid, r.Text.String())
	if err := f.his.AddMessage(ctx, m); err != nil {
		logs.CtxErrorf(ctx, "[flow] [store-assistant] add message err: %s", errorx.ErrorWithoutStack(err))
		return r, r.Fail(errorx.WrapByCode(err, errno.MessagePersistErrCode))
	}
	r.AssistantMessage = m

	if err := f.conversations.Touch(ctx, cid); err != nil {
		logs.CtxErrorf(ctx, "[flow] [store-assistant] touch conversation %s err: %s", cid.Hex(), errorx.ErrorWithoutStack(err))
	}
	return r, nil
}
