package core_api

// CompletionsReq 发起一轮流式对话
// GET 通过query传参, 不支持附件; POST 通过json body传参
type CompletionsReq struct {
	ConversationId string `query:"conversationId" json:"conversationId,omitempty" validate:"omitempty,mongodb"`
	Content        string `query:"content" json:"content"`
	File           *File  `json:"file,omitempty"`
	Token          string `query:"token" json:"-"`
}

// File 附件, base64编码
type File struct {
	Filename      string `json:"filename" validate:"required"`
	MimeType      string `json:"mimeType" validate:"required"`
	Base64Payload string `json:"base64Payload" validate:"required,base64"`
}
