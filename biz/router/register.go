package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/xh-polaris/chatstream-core-api/biz/adaptor/controller/core_api"
)

// GeneratedRegister 注册全部路由
func GeneratedRegister(r *server.Hertz) {
	root := r.Group("/")
	{
		_completions := root.Group("/completions")
		_completions.GET("/stream", core_api.CompletionsSSE)
		_completions.POST("/stream", core_api.CompletionsNDJSON)
	}
	{
		_conversation := root.Group("/conversation")
		_conversation.GET("/messages", core_api.GetConversationMessages)
		_conversation.DELETE("", core_api.DeleteConversation)
	}
}
