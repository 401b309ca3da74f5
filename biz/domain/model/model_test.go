package model

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
)

// fakeModel 前failures次调用失败, 之后返回reply
type fakeModel struct {
	failures int
	err      error
	reply    string
	block    bool
	calls    int
	in       [][]*schema.Message
}

func (m *fakeModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	m.in = append(m.in, in)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.calls <= m.failures {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.calls++
	m.in = append(m.in, in)
	if m.calls <= m.failures {
		return nil, m.err
	}
	var chunks []*schema.Message
	for _, tok := range strings.SplitAfter(m.reply, " ") {
		chunks = append(chunks, schema.AssistantMessage(tok, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func recordingRetrier(waits *[]time.Duration) *Retrier {
	r := NewRetrier(3, time.Second)
	r.Sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return r
}

func TestRetryBound(t *testing.T) {
	var waits []time.Duration
	cause := errors.New("429 Rate limit exceeded for gpt-4o-mini")
	m := &fakeModel{failures: 100, err: cause}
	g := New(m, m, recordingRetrier(&waits), time.Minute)

	sr, err := g.StreamCompletion(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Nil(t, sr)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, waits)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CategoryRateLimit, Classify(err))
}

func TestRetryRecovers(t *testing.T) {
	var waits []time.Duration
	m := &fakeModel{failures: 1, err: errors.New("connection reset by peer"), reply: "2 + 2 = 4"}
	g := New(m, m, recordingRetrier(&waits), time.Minute)

	sr, err := g.StreamCompletion(context.Background(), []*schema.Message{schema.UserMessage("2+2?")})
	require.NoError(t, err)
	defer sr.Close()
	var sb strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(chunk.Content)
	}
	assert.Equal(t, "2 + 2 = 4", sb.String())
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, []time.Duration{time.Second}, waits)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &fakeModel{failures: 100, err: errors.New("boom")}
	r := NewRetrier(3, time.Second)
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	g := New(m, m, r, time.Minute)
	_, err := g.StreamCompletion(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 1, m.calls)
}

func TestFileCompletion(t *testing.T) {
	var waits []time.Duration
	m := &fakeModel{reply: "The report covers Q3 revenue."}
	g := New(nil, m, recordingRetrier(&waits), time.Minute)

	out, err := g.FileCompletion(context.Background(), "Please analyze this file.", "report.pdf", "application/pdf", "JVBERi0xLjQ=")
	require.NoError(t, err)
	assert.Equal(t, "The report covers Q3 revenue.", out)

	require.Len(t, m.in, 1)
	msg := m.in[0][0]
	require.Len(t, msg.UserInputMultiContent, 2)
	assert.Equal(t, "Please analyze this file.", msg.UserInputMultiContent[0].Text)
	file := msg.UserInputMultiContent[1]
	assert.Equal(t, schema.ChatMessagePartTypeFileURL, file.Type)
	require.NotNil(t, file.File)
	assert.Equal(t, "JVBERi0xLjQ=", *file.File.Base64Data)
	assert.Equal(t, "report.pdf", file.File.Extra["filename"])
}

func TestFileCompletionTimeout(t *testing.T) {
	var waits []time.Duration
	m := &fakeModel{block: true}
	g := New(nil, m, recordingRetrier(&waits), 5*time.Millisecond)

	_, err := g.FileCompletion(context.Background(), "x", "a.txt", "text/plain", "eA==")
	require.Error(t, err)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, CategoryTimeout, Classify(err))
	assert.Equal(t, int32(errno.ProviderTimeoutErrCode), Classify(err).Code())
}

func TestImageFileMessage(t *testing.T) {
	msg := FileMessage("describe", "cat.png", "image/png", "iVBORw0KGgo=")
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, msg.UserInputMultiContent[1].Type)
	assert.NotNil(t, msg.UserInputMultiContent[1].Image)
}

func TestClassify(t *testing.T) {
	cases := map[string]Category{
		"error, status code: 429, message: Rate limit exceeded":                       CategoryRateLimit,
		"Request too large for gpt-4o on tokens per minute (TPM): Limit 30000":        CategoryTooLarge,
		"Incorrect API key provided: sk-***":                                          CategoryConfig,
		"Invalid API key":                                                             CategoryConfig,
		"missing base url, check configuration":                                       CategoryConfig,
		"file completion timeout after 3m0s: context deadline exceeded":               CategoryTimeout,
		"net/http: request canceled (Client.Timeout exceeded while awaiting headers)": CategoryTimeout,
		"unexpected EOF":                                                              CategoryGeneric,
	}
	for msg, want := range cases {
		assert.Equal(t, want, Classify(errors.New(msg)), msg)
	}
	assert.Equal(t, CategoryGeneric, Classify(nil))
}

func TestUserMessageHidesProviderText(t *testing.T) {
	err := &ProviderError{Op: OpStream, Attempts: 3, Err: errors.New("Rate limit exceeded: org-abc123")}
	msg := UserMessage(err)
	assert.NotContains(t, msg, "org-abc123")
	assert.Contains(t, msg, "high demand")
	assert.Contains(t, UserMessage(errors.New("weird")), "technical difficulties")
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewGateway(&config.Config{Provider: config.Provider{Backend: "nope", Model: "m"}})
	se, ok := errorx.FromError(err)
	require.True(t, ok)
	assert.Equal(t, int32(errno.UnImplementErrCode), se.Code())
	assert.Contains(t, se.Msg(), "provider backend nope")
}
