package interaction

import (
	"context"
	"regexp"
	"time"
)

// 每个token包含一段非空白字符及其后的空白, 首个token额外包含开头的空白
var tokenRe = regexp.MustCompile(`\S+\s*`)

// Tokenize 按空白切分文本, 拼接结果与原文完全一致
func Tokenize(text string) []string {
	locs := tokenRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	tokens := make([]string, len(locs))
	for i, loc := range locs {
		start := loc[0]
		if i == 0 {
			start = 0
		}
		tokens[i] = text[start:loc[1]]
	}
	return tokens
}

// Sleep 可被ctx打断的等待
type Sleep func(ctx context.Context, d time.Duration) error

func CtxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Simulate 将完整文本以固定间隔逐token写出, 用于单次返回的文件分析结果
// ctx取消或对端断开时停止, 返回已写出的token数
func Simulate(ctx context.Context, e *Emitter, text string, delay time.Duration, sleep Sleep) (int, error) {
	if sleep == nil {
		sleep = CtxSleep
	}
	tokens := Tokenize(text)
	for i, tok := range tokens {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return i, err
			}
		}
		if e.Broken() {
			return i, context.Canceled
		}
		if err := e.Chunk(tok); err != nil {
			return i, err
		}
	}
	return len(tokens), nil
}
