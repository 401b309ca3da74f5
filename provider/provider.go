package provider

import (
	"github.com/google/wire"
	"github.com/xh-polaris/chatstream-core-api/biz/application/service"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/flow"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/memory/history"
	"github.com/xh-polaris/chatstream-core-api/biz/domain/model"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/auth"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/message"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/user"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/storage"
	"github.com/xh-polaris/chatstream-core-api/pkg/ac"
)

var provider *Provider

func Init() {
	var err error
	provider, err = NewProvider()
	if err != nil {
		panic(err)
	}
}

// Provider 提供controller依赖的对象
type Provider struct {
	Config              *config.Config
	CompletionsService  service.ICompletionsService
	ConversationService service.IConversationService
}

func Get() *Provider {
	return provider
}

// NewSensitiveFilter 未配置敏感词时返回nil过滤器
func NewSensitiveFilter(c *config.Config) (*ac.Filter, error) {
	return ac.New(c.Sensitive.Words)
}

var ApplicationSet = wire.NewSet(
	service.CompletionsServiceSet,
	service.ConversationServiceSet,
	service.NewValidator,
)

var DomainSet = wire.NewSet(
	history.NewHistoryManager,
	wire.Bind(new(flow.History), new(*history.HistoryManager)),
	wire.Bind(new(service.Invalidator), new(*history.HistoryManager)),
	model.NewGateway,
	flow.NewCompletionFlow,
)

var InfraSet = wire.NewSet(
	config.NewConfig,
	conversation.NewConversationMongoMapper,
	message.NewMessageMongoMapper,
	user.NewUserMongoMapper,
	storage.NewCOS,
	storage.NewArchiver,
	auth.NewJWTResolver,
	wire.Bind(new(auth.Resolver), new(*auth.JWTResolver)),
	NewSensitiveFilter,
)

var AllProvider = wire.NewSet(
	ApplicationSet,
	DomainSet,
	InfraSet,
)
