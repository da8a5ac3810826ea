package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponseStructured(t *testing.T) {
	raw := `{"selected":["日落","海滩"],"suggested":["金门大桥"]}`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"日落", "海滩"}, result.Selected)
	assert.Equal(t, []string{"金门大桥"}, result.Suggested)
}

func TestParseResponseStructuredWithMarkdownFence(t *testing.T) {
	// 模型经常把 JSON 包在 markdown 代码块里
	raw := "```json\n{\"selected\":[\"日落\"],\"suggested\":[]}\n```"
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"日落"}, result.Selected)
	assert.Empty(t, result.Suggested)
}

func TestParseResponseStructuredTruncates(t *testing.T) {
	raw := `{"selected":["a","b","c","d","e"],"suggested":["f","g","h","i","j","k","l"]}`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"a", "b", "c"}, result.Selected)
	assert.Equal(t, []string{"f", "g", "h", "i", "j"}, result.Suggested)
}

func TestParseResponseStructuredDedupCaseInsensitive(t *testing.T) {
	raw := `{"selected":["Sunset","sunset","SUNSET","beach"],"suggested":[]}`
	result := ParseResponse(raw, 5, 5)
	assert.Equal(t, []string{"sunset", "beach"}, result.Selected)
}

func TestParseResponseStructuredNormalizesElements(t *testing.T) {
	raw := `{"selected":["  San Francisco ","#日落"],"suggested":["\"snow\nmountain\""]}`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"san-francisco", "日落"}, result.Selected)
	assert.Equal(t, []string{"snow-mountain"}, result.Suggested)
}

func TestParseResponseStructuredAcceptsNumbers(t *testing.T) {
	raw := `{"selected":["日落",2024],"suggested":[]}`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"日落", "2024"}, result.Selected)
}

func TestParseResponseBareArray(t *testing.T) {
	raw := `这是结果：["日落","海滩","城市","夜景"] 请查收`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"日落", "海滩", "城市"}, result.Selected)
	assert.Empty(t, result.Suggested)
}

func TestParseResponseFreeText(t *testing.T) {
	raw := "夕阳, 海滩\n城市; 夜景|人像，美食、建筑"
	result := ParseResponse(raw, 5, 5)
	assert.Equal(t, []string{"夕阳", "海滩", "城市", "夜景", "人像"}, result.Selected)
	assert.Empty(t, result.Suggested)
}

func TestParseResponseFreeTextDedup(t *testing.T) {
	raw := "日落, 日落, 海滩"
	result := ParseResponse(raw, 5, 5)
	assert.Equal(t, []string{"日落", "海滩"}, result.Selected)
}

func TestParseResponseStructuredDedupSameTag(t *testing.T) {
	raw := `{"selected":["日落","日落","雪山"],"suggested":[]}`
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"日落", "雪山"}, result.Selected)
}

func TestParseResponseFreeTextMixedSeparatorsDedup(t *testing.T) {
	raw := "夕阳, 海滩; 海滩"
	result := ParseResponse(raw, 3, 5)
	assert.Equal(t, []string{"夕阳", "海滩"}, result.Selected)
}

func TestParseResponseFallbackLadder(t *testing.T) {
	t.Run("畸形对象降级到裸数组", func(t *testing.T) {
		raw := `{broken json} 但是这里有 ["日落","海滩"]`
		result := ParseResponse(raw, 3, 5)
		assert.Equal(t, []string{"日落", "海滩"}, result.Selected)
	})

	t.Run("畸形数组降级到自由文本切分", func(t *testing.T) {
		raw := `[日落, 海滩]`
		result := ParseResponse(raw, 3, 5)
		assert.Equal(t, []string{"日落", "海滩"}, result.Selected)
	})
}

func TestParseResponseTotalFunction(t *testing.T) {
	// 无论输入多畸形都不应 panic，只会返回空结果
	for _, raw := range []string{"", "   ", "{", "}", "[]", "{}", "{{{{", "]]]]", "\x00\xff", "###,,,"} {
		assert.NotPanics(t, func() {
			result := ParseResponse(raw, 3, 5)
			_ = result.Empty()
		}, "输入: %q", raw)
	}
}

func TestParseResponseEmptyObjectIsTerminal(t *testing.T) {
	// 提示词允许模型在无可识别主体时回复 {}：合法 JSON 对象是解析终态，
	// 空结果不得降级到自由文本切分，否则 JSON 文本碎片会被当成真实标签落库
	result := ParseResponse("{}", 3, 5)
	assert.True(t, result.Empty())
	assert.Empty(t, result.Selected)

	result = ParseResponse(`{"selected":[],"suggested":[]}`, 3, 5)
	assert.True(t, result.Empty())
	assert.Empty(t, result.Selected)

	// 空对象周围的附带文字同样不产生标签
	assert.True(t, ParseResponse("{} 图中没有可识别的主体", 3, 5).Empty())
}

func TestParseResponseEmptyInputs(t *testing.T) {
	assert.True(t, ParseResponse("", 3, 5).Empty())
	assert.True(t, ParseResponse("   \n ", 3, 5).Empty())
	assert.True(t, ParseResponse("{}", 3, 5).Empty())
	assert.True(t, ParseResponse(`{"selected":[],"suggested":[]}`, 3, 5).Empty())
}

func TestResultEmpty(t *testing.T) {
	assert.True(t, Result{}.Empty())
	assert.False(t, Result{Selected: []string{"日落"}}.Empty())
	assert.False(t, Result{Suggested: []string{"日落"}}.Empty())
}
