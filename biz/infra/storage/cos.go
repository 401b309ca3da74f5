package storage

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/util/httpx"
)

var _ COS = (*cosClient)(nil)

// COS 附件归档使用的对象存储
type COS interface {
	Upload(ctx context.Context, key string, r io.Reader, opt *cos.ObjectPutOptions) (*cos.Response, error)
	GetPermanentAccessURL(key string) string
}

type cosClient struct {
	Conf   *config.COS
	Client *cos.Client
}

// NewCOS 未配置COS时返回nil, 附件不做归档
func NewCOS(c *config.Config) COS {
	if c.COS == nil || c.COS.BucketURL == "" {
		return nil
	}
	return newcosClient(c)
}

// Upload 上传对象
// key 对象键 应为attach/{user_id}/{conversation_id}/{时间戳}-{文件名}
// opt 上传配置 允许为空
func (c *cosClient) Upload(ctx context.Context, key string, r io.Reader, opt *cos.ObjectPutOptions) (*cos.Response, error) {
	if opt == nil {
		opt = &cos.ObjectPutOptions{}
	}
	return c.Client.Object.Put(ctx, key, r, opt)
}

// GetPermanentAccessURL 配置了CDN时优先返回CDN地址
func (c *cosClient) GetPermanentAccessURL(key string) string {
	if c.Conf.CDN != "" {
		return strings.TrimSuffix(c.Conf.CDN, "/") + "/" + strings.TrimPrefix(key, "/")
	}
	return c.Client.Object.GetObjectURL(key).String()
}

func newcosClient(c *config.Config) *cosClient {
	b := &cos.BaseURL{
		BucketURL: util.Str2URL(c.COS.BucketURL), // 访问 bucket, object 相关 API 的基础 URL（不包含 path 部分）
	}
	client := cos.NewClient(b, mustNewCOSHTTPClient(c))
	return &cosClient{
		Conf:   c.COS,
		Client: client,
	}
}

func mustNewCOSHTTPClient(c *config.Config) *http.Client {
	// 鉴权transport包装全局单例客户端的transport
	gCli := httpx.GetHttpClient()

	authTransport := &cos.AuthorizationTransport{
		SecretID:  c.COS.SecretID,
		SecretKey: c.COS.SecretKey,
		Transport: gCli.Client.Transport,
	}

	return &http.Client{
		Transport: authTransport,
	}
}
