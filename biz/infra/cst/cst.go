package cst

const (
	// Assistant is the role of an assistant, means the message is returned by ChatModel.
	Assistant = "assistant"
	// User is the role of a user, means the message is a user message.
	User = "user"
)

// 消息角色在存储中的枚举值
var (
	RoleStoI = map[string]int32{User: 1, Assistant: 2}
	RoleItoS = map[int32]string{1: User, 2: Assistant}
)

// 对话标题
const (
	TitleMaxRunes     = 50
	TitleEllipsis     = "…"
	DefaultTitle      = "New Conversation"
	DefaultFilePrompt = "Please analyze this file."
)

// 鉴权
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	TokenQuery          = "token"
	ClaimUserId         = "userId"
)

// mapper层字段枚举
const (
	Id             = "_id"
	ConversationId = "conversation_id"
	UserId         = "user_id"
	CreateTime     = "create_time"
	UpdateTime     = "update_time"
	DeleteTime     = "delete_time"

	Status        = "status"
	ActiveStatus  = 0
	DeletedStatus = -1

	NE  = "$ne"
	Set = "$set"
)
