package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"pai-photo-go/internal/model"
	"pai-photo-go/internal/repository"
	"pai-photo-go/pkg/log"
)

// defaultVocabulary 是内置的候选词表：约 50 个常见中文场景/主体名词。
// 词表随提示词下发，引导模型复用既有标签而不是发明近义的新标签。
var defaultVocabulary = []string{
	"日落", "日出", "雪山", "海滩", "森林", "城市", "夜景", "人像", "美食", "建筑",
	"街拍", "花卉", "动物", "宠物", "猫", "狗", "鸟", "天空", "云彩", "湖泊",
	"河流", "瀑布", "草原", "沙漠", "星空", "月亮", "彩虹", "雨天", "雪景", "秋叶",
	"樱花", "桥梁", "古镇", "寺庙", "灯光", "倒影", "山峰", "海岛", "港口", "地铁",
	"咖啡", "旅行", "合影", "婚礼", "生日", "运动", "演出", "烟花", "博物馆", "公园",
}

// personalTagLimit 是并入词表的用户高频标签数量上限。
const personalTagLimit = 50

// DefaultVocabulary 返回内置词表的副本。
func DefaultVocabulary() []string {
	vocab := make([]string, len(defaultVocabulary))
	copy(vocab, defaultVocabulary)
	return vocab
}

// VocabularyBuilder 为每个用户构建候选标签词表：
// 内置默认词表在前，用户历史上最常用的 Manual/Exif 标签在后，
// 大小写不敏感去重并保持先见顺序（默认词表优先）。
type VocabularyBuilder struct {
	store repository.TaggingStore
	rdb   *redis.Client // 可为 nil，词表缓存是纯优化
	ttl   time.Duration
}

// NewVocabularyBuilder 创建一个新的 VocabularyBuilder 实例。
func NewVocabularyBuilder(store repository.TaggingStore, rdb *redis.Client, ttl time.Duration) *VocabularyBuilder {
	return &VocabularyBuilder{store: store, rdb: rdb, ttl: ttl}
}

// Build 返回用户的候选词表。词表是建议性数据，
// 历史标签查询或缓存失败时降级为仅默认词表，不阻断打标。
func (b *VocabularyBuilder) Build(ctx context.Context, userID uint) []string {
	if cached, ok := b.fromCache(ctx, userID); ok {
		return cached
	}

	vocab := make([]string, 0, len(defaultVocabulary)+personalTagLimit)
	seen := make(map[string]struct{}, len(defaultVocabulary)+personalTagLimit)
	appendUnique := func(name string) {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		vocab = append(vocab, trimmed)
	}

	for _, name := range defaultVocabulary {
		appendUnique(name)
	}

	personal, err := b.store.TopTagNames(userID, []model.TagType{model.TagTypeManual, model.TagTypeExif}, personalTagLimit)
	if err != nil {
		log.Warnf("[Vocabulary] 查询用户高频标签失败, userId=%d, err=%v", userID, err)
		return vocab
	}
	for _, name := range personal {
		appendUnique(name)
	}

	b.toCache(ctx, userID, vocab)
	return vocab
}

func vocabularyCacheKey(userID uint) string {
	return fmt.Sprintf("tagging:vocab:%d", userID)
}

func (b *VocabularyBuilder) fromCache(ctx context.Context, userID uint) ([]string, bool) {
	if b.rdb == nil {
		return nil, false
	}
	raw, err := b.rdb.Get(ctx, vocabularyCacheKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debugf("[Vocabulary] 读取词表缓存失败, userId=%d, err=%v", userID, err)
		}
		return nil, false
	}
	var vocab []string
	if err := json.Unmarshal([]byte(raw), &vocab); err != nil {
		return nil, false
	}
	return vocab, true
}

func (b *VocabularyBuilder) toCache(ctx context.Context, userID uint, vocab []string) {
	if b.rdb == nil || b.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(vocab)
	if err != nil {
		return
	}
	if err := b.rdb.Set(ctx, vocabularyCacheKey(userID), raw, b.ttl).Err(); err != nil {
		log.Debugf("[Vocabulary] 写入词表缓存失败, userId=%d, err=%v", userID, err)
	}
}
