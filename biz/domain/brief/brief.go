package brief

import (
	"strings"

	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
)

// Derive 由首条消息生成对话标题, 超过长度时截断并追加省略号
// 内容为空(仅上传文件)时使用默认标题
func Derive(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return cst.DefaultTitle
	}
	runes := []rune(content)
	if len(runes) <= cst.TitleMaxRunes {
		return content
	}
	return string(runes[:cst.TitleMaxRunes]) + cst.TitleEllipsis
}
