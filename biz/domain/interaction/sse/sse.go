package sse

import (
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/sse"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
)

// SSEStream 事件流, event字段为事件类型, data字段为带标签的json记录
type SSEStream struct {
	id int
	w  *sse.Writer
}

// NewSSEStream 创建事件流
func NewSSEStream(c *app.RequestContext) *SSEStream {
	return &SSEStream{id: -1, w: sse.NewWriter(c)}
}

func (s *SSEStream) Write(e *chatevent.Event) (err error) {
	data, err := chatevent.Marshal(e)
	if err != nil {
		return err
	}
	if err = s.w.Write(&sse.Event{ID: s.getID(), Type: e.Type, Data: data}); err != nil {
		logs.Errorf("write sse err: %s", errorx.ErrorWithoutStack(err))
	}
	return err
}

func (s *SSEStream) Close() error {
	return s.w.Close()
}

func (s *SSEStream) getID() string {
	s.id++
	return strconv.Itoa(s.id)
}
