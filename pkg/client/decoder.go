package client

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
)

const (
	ContentTypeSSE    = "text/event-stream"
	ContentTypeNDJSON = "application/x-ndjson"
)

// Decoder 从响应体中逐个解析事件, 支持SSE与ndjson两种分帧
type Decoder struct {
	r   *bufio.Reader
	sse bool
}

func NewDecoder(r io.Reader, contentType string) *Decoder {
	return &Decoder{r: bufio.NewReader(r), sse: strings.HasPrefix(contentType, ContentTypeSSE)}
}

// Next 返回下一个事件, 流结束时返回io.EOF
// 无法解析的记录被跳过
func (d *Decoder) Next() (*chatevent.Event, error) {
	for {
		data, err := d.frame()
		if data != "" {
			if e, uerr := chatevent.Unmarshal([]byte(data)); uerr == nil {
				return e, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// frame 读取一帧的数据部分
func (d *Decoder) frame() (string, error) {
	if !d.sse {
		line, err := d.readLine()
		return strings.TrimSpace(line), err
	}
	var data []string
	for {
		line, err := d.readLine()
		switch {
		case line == "":
			if len(data) > 0 || err != nil {
				return strings.Join(data, "\n"), err
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// event, id, retry 与注释行不影响解析
		if err != nil {
			return strings.Join(data, "\n"), err
		}
	}
}

// readLine 末尾没有换行的最后一行照常返回, 下一次调用返回io.EOF
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}
