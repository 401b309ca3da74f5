// Package client 流式对话接口的Go客户端, 将事件序列折叠为本地消息列表
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Request 一轮对话, File不为空时使用POST+ndjson, 否则使用GET+SSE
type Request struct {
	ConversationId string `json:"conversationId,omitempty"`
	Content        string `json:"content"`
	File           *File  `json:"file,omitempty"`
}

type File struct {
	Filename      string `json:"filename"`
	MimeType      string `json:"mimeType"`
	Base64Payload string `json:"base64Payload"`
}

// APIError 事件流打开前的同步错误
type APIError struct {
	Status int    `json:"-"`
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status=%d code=%d msg=%s", e.Status, e.Code, e.Msg)
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

type Option func(c *Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.HTTP = h
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream 发起请求并逐个回调事件, 终止事件之后返回
// 流在终止事件之前结束时返回io.ErrUnexpectedEOF
func (c *Client) Stream(ctx context.Context, req *Request, fn func(e *chatevent.Event)) error {
	hreq, err := c.newStreamRequest(ctx, req)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	dec := NewDecoder(resp.Body, resp.Header.Get("Content-Type"))
	for {
		e, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		} else if err != nil {
			return err
		}
		fn(e)
		if e.Terminal() {
			return nil
		}
	}
}

// Send 通过Reconstructor提交一轮对话, 传输层失败同样以本地错误消息结束
// observers 在事件被折叠之后依次收到该事件
func (c *Client) Send(ctx context.Context, r *Reconstructor, req *Request, observers ...func(e *chatevent.Event)) error {
	var attachment *chatevent.Attachment
	if req.File != nil {
		attachment = &chatevent.Attachment{Filename: req.File.Filename, MimeType: req.File.MimeType}
	}
	t, err := r.Submit(req.Content, attachment)
	if err != nil {
		return err
	}
	req.ConversationId = r.ConversationId()
	err = c.Stream(ctx, req, func(e *chatevent.Event) {
		r.Apply(t, e)
		for _, o := range observers {
			o(e)
		}
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			r.Fail(t, apiErr.Msg)
		} else {
			r.Fail(t, ConnectionLostMessage)
		}
	}
	return err
}

// Messages 读取对话历史
func (c *Client) Messages(ctx context.Context, conversationId string) ([]*chatevent.Message, error) {
	q := url.Values{"conversationId": {conversationId}}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/conversation/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(hreq)
	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var body struct {
		Data struct {
			Messages []*chatevent.Message `json:"messages"`
		} `json:"data"`
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err = sonic.Unmarshal(b, &body); err != nil {
		return nil, err
	}
	return body.Data.Messages, nil
}

func (c *Client) newStreamRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var (
		hreq *http.Request
		err  error
	)
	if req.File != nil {
		body, merr := sonic.Marshal(req)
		if merr != nil {
			return nil, merr
		}
		hreq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/completions/stream", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Content-Type", "application/json")
		hreq.Header.Set("Accept", ContentTypeNDJSON)
	} else {
		q := url.Values{"content": {req.Content}}
		if req.ConversationId != "" {
			q.Set("conversationId", req.ConversationId)
		}
		hreq, err = http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/completions/stream?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Accept", ContentTypeSSE)
	}
	c.authorize(hreq)
	return hreq, nil
}

func (c *Client) authorize(hreq *http.Request) {
	if c.Token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := sonic.Unmarshal(b, apiErr); err != nil || apiErr.Msg == "" {
		apiErr.Msg = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
