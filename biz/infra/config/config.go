package config

import (
	"os"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/core/stores/cache"
)

var config *Config

type Auth struct {
	SecretKey    string `json:",optional"`
	PublicKey    string `json:",optional"`
	AccessExpire int64  `json:",optional"`
}

type Mongo struct {
	URL string
	DB  string
}

// Provider 模型服务配置, Backend对应model包中注册的实现
type Provider struct {
	Backend   string `json:",default=openai,options=openai|ark"`
	APIKey    string
	BaseURL   string `json:",optional"`
	Region    string `json:",optional"`
	Model     string
	FileModel string `json:",optional"` // 文件分析使用的模型, 为空时与Model相同
}

// Stream 流式对话相关参数
type Stream struct {
	KeepAlive        time.Duration `json:",default=30s"`
	ChunkDelay       time.Duration `json:",default=50ms"`
	FileTimeout      time.Duration `json:",default=3m"`
	MaxAttempts      int           `json:",default=3"`
	BaseBackoff      time.Duration `json:",default=1s"`
	MaxContentLength int           `json:",default=10000"`
	HistoryTTL       time.Duration `json:",default=6h"`
}

type COS struct {
	AppID     string `json:",optional"`
	BucketURL string
	CDN       string `json:",optional"`
	SecretID  string
	SecretKey string
}

type Sensitive struct {
	Words []string `json:",optional"`
}

type Metrics struct {
	Addr string `json:",default=:9091"`
	Path string `json:",default=/metrics"`
}

type Config struct {
	service.ServiceConf
	ListenOn  string `json:",default=0.0.0.0:8080"`
	Auth      Auth
	Cache     cache.CacheConf
	Mongo     Mongo
	Provider  Provider
	Stream    Stream
	COS       *COS      `json:",optional"`
	Sensitive Sensitive
	Metrics   Metrics
}

func NewConfig() (*Config, error) {
	c := new(Config)
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "etc/config.yaml"
	}
	err := conf.Load(path, c)
	if err != nil {
		return nil, err
	}
	err = c.SetUp()
	if err != nil {
		return nil, err
	}
	config = c
	return config, nil
}

func GetConfig() *Config {
	return config
}

// IsDev 开发模式下同步错误响应会携带内部错误信息
func (c *Config) IsDev() bool {
	return c.Mode == service.DevMode
}
