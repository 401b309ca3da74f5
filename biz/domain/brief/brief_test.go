package brief

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	assert.Equal(t, "Explain quantum computing in simple terms for a fi…",
		Derive("Explain quantum computing in simple terms for a five year old"))
	assert.Equal(t, "Hi", Derive("Hi"))
	assert.Equal(t, "2+2?", Derive("  2+2?\n"))
	assert.Equal(t, "New Conversation", Derive(""))
	assert.Equal(t, "New Conversation", Derive(" \t "))

	// 按字符而非字节截断
	long := "量子计算是一种利用量子力学原理进行信息处理的计算方式它与经典计算有本质区别在某些问题上具有指数级的加速潜力值得深入了解"
	got := Derive(long)
	assert.Equal(t, 51, len([]rune(got)))
	assert.Equal(t, "…", string([]rune(got)[50:]))
}
