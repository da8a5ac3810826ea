package tagging

import (
	"encoding/json"
	"strings"
)

// Result 是一次打标调用的解析结果。
// Selected 按模型给出的重要性排序，直接应用到图片；
// Suggested 是置信度较低的候选标签，留待用户确认。
type Result struct {
	Selected  []string
	Suggested []string
}

// Empty 报告结果是否不含任何标签。
func (r Result) Empty() bool {
	return len(r.Selected) == 0 && len(r.Suggested) == 0
}

// freeTextSeparators 是自由文本降级模式下的切分字符（含全角逗号、顿号）。
const freeTextSeparators = ",\n;|，、"

// ParseResponse 将视觉模型的原始回复解析为标签结果。
// 模型输出不可靠，解析按严格的降级顺序尝试：
//  1. 结构化模式：取首个 '{' 与末个 '}' 之间的片段，按 {"selected":[],"suggested":[]} 解析。
//     片段是合法 JSON 即为终态：空对象（提示词允许模型以 {} 表示无可识别主体）
//     返回空结果，绝不降级去切分 JSON 文本本身；只有解析失败才继续向下。
//  2. 裸数组模式：取首个 '[' 与末个 ']' 之间的片段，按 JSON 数组解析，全部视为 selected；
//  3. 自由文本模式：按逗号、换行、分号、竖线及全角分隔符切分，全部视为 selected；
//  4. 全部失败则返回空结果。
//
// 该函数是全函数：无论输入多畸形都不会返回错误，只会返回逐级更空的结果。
func ParseResponse(raw string, maxTags, suggestionLimit int) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{}
	}

	// 1. 结构化模式（合法 JSON 即终态，含空对象）
	if fragment, ok := sliceBetween(raw, '{', '}'); ok {
		if result, ok := parseStructured(fragment, maxTags, suggestionLimit); ok {
			return result
		}
	}

	// 2. 裸数组模式
	if fragment, ok := sliceBetween(raw, '[', ']'); ok {
		if selected, ok := parseBareArray(fragment, maxTags); ok && len(selected) > 0 {
			return Result{Selected: selected}
		}
	}

	// 3. 自由文本模式：存在中括号对时只取括号内的内容
	fragment := raw
	if f, ok := sliceBetween(raw, '[', ']'); ok {
		fragment = f[1 : len(f)-1]
	}
	if selected := splitFreeText(fragment, maxTags); len(selected) > 0 {
		return Result{Selected: selected}
	}

	// 4. 空结果
	return Result{}
}

// sliceBetween 返回 raw 中首个 open 与末个 close 之间（含两端）的子串。
func sliceBetween(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// structuredReply 对应模型被要求输出的 JSON 形状。
// 元素可能是字符串或数字，用 json.RawMessage 延迟解析以兼容两者。
type structuredReply struct {
	Selected  []json.RawMessage `json:"selected"`
	Suggested []json.RawMessage `json:"suggested"`
}

func parseStructured(fragment string, maxTags, suggestionLimit int) (Result, bool) {
	var reply structuredReply
	if err := json.Unmarshal([]byte(fragment), &reply); err != nil {
		return Result{}, false
	}
	return Result{
		Selected:  collectTags(reply.Selected, maxTags),
		Suggested: collectTags(reply.Suggested, suggestionLimit),
	}, true
}

func parseBareArray(fragment string, maxTags int) ([]string, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &elements); err != nil {
		return nil, false
	}
	return collectTags(elements, maxTags), true
}

// collectTags 将 JSON 元素归一化为标签列表：
// 接受字符串与数字元素，丢弃空值，去重（归一化后全小写，天然大小写不敏感），
// 保持原有顺序并截断到 limit。
func collectTags(elements []json.RawMessage, limit int) []string {
	if limit <= 0 || len(elements) == 0 {
		return nil
	}

	collected := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(elements))
	for _, element := range elements {
		text, ok := elementText(element)
		if !ok {
			continue
		}
		normalized := Normalize(text)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		collected = append(collected, normalized)
		if len(collected) >= limit {
			break
		}
	}
	return collected
}

// elementText 把一个 JSON 元素转成文本：字符串原样返回，数字保留字面形式。
func elementText(element json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(element, &text); err == nil {
		return text, true
	}
	var number json.Number
	if err := json.Unmarshal(element, &number); err == nil {
		return number.String(), true
	}
	return "", false
}

// splitFreeText 是最后的降级：按分隔符切分自由文本。
func splitFreeText(fragment string, maxTags int) []string {
	if maxTags <= 0 {
		return nil
	}

	parts := strings.FieldsFunc(fragment, func(r rune) bool {
		return strings.ContainsRune(freeTextSeparators, r)
	})

	collected := make([]string, 0, maxTags)
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		normalized := Normalize(part)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		collected = append(collected, normalized)
		if len(collected) >= maxTags {
			break
		}
	}
	return collected
}
