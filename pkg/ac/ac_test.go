package ac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	f, err := New([]string{"forbidden", "  Secret  ", "违禁"})
	require.NoError(t, err)

	hit, words := f.Search("this is a SECRET plan", false)
	assert.True(t, hit)
	assert.Equal(t, []string{"secret"}, words)

	hit, words = f.Search("包含违禁内容", true)
	assert.True(t, hit)
	assert.Equal(t, []string{"违禁"}, words)

	hit, _ = f.Search("what is 2+2?", false)
	assert.False(t, hit)
}

func TestNilFilter(t *testing.T) {
	f, err := New([]string{" ", ""})
	require.NoError(t, err)
	assert.Nil(t, f)

	hit, words := f.Search("anything", false)
	assert.False(t, hit)
	assert.Nil(t, words)
}
