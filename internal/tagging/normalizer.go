// Package tagging 实现了异步 AI 打标管道：
// 上传完成后入队，由单消费者后台协程调用视觉模型生成标签并写回存储。
package tagging

import (
	"strings"
	"unicode"
)

// Normalize 将原始标签文本归一化为标准形式：
// 去除两端空白与引号、井号，内部换行折叠为空格，空白串合并为单个 '-'，全部转小写。
// 空白或无效输入返回空字符串，调用方应将空结果视为丢弃。
func Normalize(raw string) string {
	trimmed := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\'' || r == '#'
	})
	if trimmed == "" {
		return ""
	}

	trimmed = strings.NewReplacer("\r", " ", "\n", " ").Replace(trimmed)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, "-"))
}
