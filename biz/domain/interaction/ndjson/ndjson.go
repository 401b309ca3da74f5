package ndjson

import (
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/http1/resp"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
)

const ContentType = "application/x-ndjson"

// Stream 以分块传输写出事件, 每行一条带标签的json记录
type Stream struct {
	c *app.RequestContext
}

// NewStream 劫持响应写入, 此后响应头不可再修改
func NewStream(c *app.RequestContext) *Stream {
	c.SetStatusCode(http.StatusOK)
	c.SetContentType(ContentType)
	c.Response.Header.Set("Cache-Control", "no-cache")
	c.Response.HijackWriter(resp.NewChunkedBodyWriter(&c.Response, c.GetWriter()))
	return &Stream{c: c}
}

func (s *Stream) Write(e *chatevent.Event) (err error) {
	data, err := chatevent.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err = s.c.Write(data); err == nil {
		err = s.c.Flush()
	}
	if err != nil {
		logs.Errorf("write ndjson err: %s", errorx.ErrorWithoutStack(err))
	}
	return err
}

// Close 分块结束标记由hertz在handler返回后写出
func (s *Stream) Close() error {
	return nil
}
