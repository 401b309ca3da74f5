package errno

import (
	"net/http"

	"github.com/xh-polaris/chatstream-core-api/pkg/errorx/code"
)

const (
	ConversationCreateErrCode   = 30001
	ConversationNotFoundErrCode = 30002
	ConversationGetErrCode      = 30003
	ConversationDeleteErrCode   = 30004
	MessagePersistErrCode       = 30005
)

func init() {
	code.Register(
		ConversationCreateErrCode,
		"Failed to create conversation",
		code.WithAffectStability(true),
	)
	code.Register(
		ConversationNotFoundErrCode,
		"Conversation not found",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusNotFound),
	)
	code.Register(
		ConversationGetErrCode,
		"Failed to load conversation history",
		code.WithAffectStability(true),
	)
	code.Register(
		ConversationDeleteErrCode,
		"Failed to delete conversation",
		code.WithAffectStability(true),
	)
	code.Register(
		MessagePersistErrCode,
		"Failed to save message",
		code.WithAffectStability(true),
	)
}
