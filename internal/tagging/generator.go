package tagging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pai-photo-go/pkg/log"
	"pai-photo-go/pkg/vision"
)

const (
	// DefaultModel 是用户未指定模型时使用的视觉模型。
	DefaultModel = "gpt-4o-mini"
	// DefaultProvider 是默认的服务商标识。
	DefaultProvider = "OpenAI"
	// DefaultMaxTags 是直接应用标签数量的默认上限。
	DefaultMaxTags = 3
	// DefaultSuggestionLimit 是候选标签数量的默认上限。
	DefaultSuggestionLimit = 5
)

// Options 是一次打标调用的完整配置。
// 每个任务从用户持久化配置现场构造，经 normalized 补齐默认值后不再修改。
type Options struct {
	Provider        string
	APIKey          string
	Model           string
	Endpoint        string
	MaxTags         int
	SuggestionLimit int
	Vocabulary      []string
}

// normalized 返回一份补齐了默认值的配置副本：
// 字符串去除空白，模型/服务商为空时落默认值，数量上限不足 1 时落 3/5，
// 词表大小写不敏感去重。业务逻辑只消费归一化后的配置，不再做空值判断。
func (o Options) normalized() Options {
	normalized := Options{
		Provider:        strings.TrimSpace(o.Provider),
		APIKey:          strings.TrimSpace(o.APIKey),
		Model:           strings.TrimSpace(o.Model),
		Endpoint:        strings.TrimSpace(o.Endpoint),
		MaxTags:         o.MaxTags,
		SuggestionLimit: o.SuggestionLimit,
	}
	if normalized.Provider == "" {
		normalized.Provider = DefaultProvider
	}
	if normalized.Model == "" {
		normalized.Model = DefaultModel
	}
	if normalized.MaxTags < 1 {
		normalized.MaxTags = DefaultMaxTags
	}
	if normalized.SuggestionLimit < 1 {
		normalized.SuggestionLimit = DefaultSuggestionLimit
	}

	seen := make(map[string]struct{}, len(o.Vocabulary))
	for _, word := range o.Vocabulary {
		trimmed := strings.TrimSpace(word)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized.Vocabulary = append(normalized.Vocabulary, trimmed)
	}
	return normalized
}

// Generator 封装了对外部视觉模型的一次打标调用。
type Generator interface {
	// GenerateTags 对指定绝对路径的图片生成标签。
	// 任何失败（缺配置、文件缺失、网络/模型错误、畸形输出）都只记日志并
	// 返回空结果，绝不向调用方抛错——打标是尽力而为的可选增强。
	GenerateTags(ctx context.Context, absoluteFilePath string, options Options) Result
}

// visionGenerator 是 Generator 的默认实现，调用 OpenAI 兼容的视觉接口。
type visionGenerator struct {
	client vision.Client
}

// NewGenerator 创建一个新的 Generator 实例。
func NewGenerator(client vision.Client) Generator {
	return &visionGenerator{client: client}
}

// GenerateTags 执行一次完整的打标调用。
func (g *visionGenerator) GenerateTags(ctx context.Context, absoluteFilePath string, options Options) Result {
	// 前置短路：未配置 API Key 表示用户未开启打标
	if strings.TrimSpace(options.APIKey) == "" {
		log.Debugf("[TagGenerator] 跳过打标：未配置 API Key")
		return Result{}
	}
	if _, err := os.Stat(absoluteFilePath); err != nil {
		log.Warnf("[TagGenerator] 跳过打标：文件不存在 %s", absoluteFilePath)
		return Result{}
	}

	opts := options.normalized()

	imageData, err := os.ReadFile(absoluteFilePath)
	if err != nil {
		log.Warnf("[TagGenerator] 读取图片失败: %s, err=%v", absoluteFilePath, err)
		return Result{}
	}
	mimeType := mimeTypeFor(filepath.Ext(absoluteFilePath))

	messages := buildPrompt(opts, mimeType, imageData)

	text, err := g.client.Complete(ctx, vision.Credentials{
		APIKey:   opts.APIKey,
		Model:    opts.Model,
		Endpoint: opts.Endpoint,
	}, messages)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// 停机取消不是故障
			return Result{}
		}
		log.Errorw("[TagGenerator] 视觉模型调用失败",
			"provider", opts.Provider,
			"model", opts.Model,
			"path", absoluteFilePath,
			"error", err,
		)
		return Result{}
	}

	return ParseResponse(text, opts.MaxTags, opts.SuggestionLimit)
}

// buildPrompt 构造两条消息：系统指令（输出契约 + 词表引导）与用户消息（任务说明 + 图片）。
func buildPrompt(opts Options, mimeType string, imageData []byte) []vision.Message {
	var system strings.Builder
	system.WriteString("你是一位资深图片策展人与视觉分类专家。请只输出能够精确描述主要主体、关键场景元素或鲜明情绪的中文名词标签，每个标签不超过 6 个汉字，避免如自然、风景等泛泛词汇。")
	system.WriteString(fmt.Sprintf(
		"请输出 JSON 对象，格式为 {\"selected\":[],\"suggested\":[]}：selected 为按重要性排列的 1 到 %d 个最有把握的标签，suggested 为最多 %d 个供用户确认的新标签。不得包含解释、序号或额外文本。",
		opts.MaxTags, opts.SuggestionLimit,
	))
	if len(opts.Vocabulary) > 0 {
		system.WriteString("已知标签词表：")
		system.WriteString(strings.Join(opts.Vocabulary, "、"))
		system.WriteString("。selected 中请优先复用词表里的既有标签，不要生成近义的新词；suggested 中只放词表之外的新标签。")
	} else {
		system.WriteString("当前没有历史标签词表，可自行生成标签。")
	}

	return []vision.Message{
		{
			Role:    "system",
			Content: []vision.ContentPart{vision.TextPart(system.String())},
		},
		{
			Role: "user",
			Content: []vision.ContentPart{
				vision.TextPart("Inspect this image and return only that JSON object of concise tags; reply {} if no meaningful subject is visible."),
				vision.ImagePart(mimeType, imageData),
			},
		},
	}
}

// mimeTypeFor 按文件扩展名推断 MIME 类型，未识别的一律按 JPEG 处理。
func mimeTypeFor(extension string) string {
	switch strings.ToLower(extension) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
