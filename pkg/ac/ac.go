package ac

import (
	"bytes"
	"strings"

	ahocorasick "github.com/anknown/ahocorasick"
)

// Filter 基于Aho-Corasick自动机的敏感词过滤, 大小写不敏感
type Filter struct {
	m *ahocorasick.Machine
}

// readRunes 将字符串字典转换为rune切片数组, 用于Aho-Corasick算法的输入格式要求
func readRunes(dict []string) (runes [][]rune) {
	for _, word := range dict {
		l := bytes.TrimSpace([]byte(strings.ToLower(word)))
		if len(l) == 0 {
			continue
		}
		runes = append(runes, bytes.Runes(l))
	}
	return runes
}

// New 根据关键词字典构建过滤器, 字典为空时返回nil, nil过滤器不命中任何文本
func New(dict []string) (*Filter, error) {
	runes := readRunes(dict)
	if len(runes) == 0 {
		return nil, nil
	}
	m := new(ahocorasick.Machine)
	if err := m.Build(runes); err != nil {
		return nil, err
	}
	return &Filter{m: m}, nil
}

// Search 多模式串搜索
// stopImmediately: 是否找到第一个匹配就停止搜索
// 返回是否命中以及命中的关键词
func (f *Filter) Search(text string, stopImmediately bool) (bool, []string) {
	if f == nil || len(text) == 0 {
		return false, nil
	}

	hits := f.m.MultiPatternSearch([]rune(strings.ToLower(text)), stopImmediately)
	if len(hits) == 0 {
		return false, nil
	}
	words := make([]string, 0, len(hits))
	for _, hit := range hits {
		words = append(words, string(hit.Word))
	}
	return true, words
}
