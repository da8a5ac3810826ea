package tagging

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"pai-photo-go/internal/repository"
	"pai-photo-go/pkg/log"
)

// Worker 是打标队列的唯一消费者。
// 串行处理保证同一时刻至多一个打标任务在执行，标签的 find-or-create
// 与关联重建因此不存在并发竞争。
type Worker struct {
	queue      *Queue
	store      repository.TaggingStore
	vocabulary *VocabularyBuilder
	generator  Generator

	maxTags         int
	suggestionLimit int
	callTimeout     time.Duration
}

// NewWorker 创建一个新的 Worker 实例。
// callTimeout 限制单次视觉模型调用的时长：单消费者队列中一次挂起的
// 调用会阻塞所有后续任务，必须有界。
func NewWorker(
	queue *Queue,
	store repository.TaggingStore,
	vocabulary *VocabularyBuilder,
	generator Generator,
	maxTags, suggestionLimit int,
	callTimeout time.Duration,
) *Worker {
	if maxTags < 1 {
		maxTags = DefaultMaxTags
	}
	if suggestionLimit < 1 {
		suggestionLimit = DefaultSuggestionLimit
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Worker{
		queue:           queue,
		store:           store,
		vocabulary:      vocabulary,
		generator:       generator,
		maxTags:         maxTags,
		suggestionLimit: suggestionLimit,
		callTimeout:     callTimeout,
	}
}

// Run 按 FIFO 顺序消费打标任务，直到 ctx 被取消。
// 通常以 go worker.Run(ctx) 在进程启动时拉起，停机时取消 ctx 即可干净退出。
func (w *Worker) Run(ctx context.Context) {
	log.Info("AI 打标后台消费者已启动")
	for {
		job, ok := w.next(ctx)
		if !ok {
			log.Info("AI 打标后台消费者已退出")
			return
		}
		w.process(ctx, job)
	}
}

// next 阻塞等待下一个任务；ctx 取消时返回 false。
// 取消检查先于出队：停机只送完手上正在处理的任务，积压任务直接放弃，
// 不允许带着已死的 ctx 把整个积压跑一遍。
func (w *Worker) next(ctx context.Context) (Job, bool) {
	for {
		if ctx.Err() != nil {
			return Job{}, false
		}
		if job, ok := w.queue.tryPop(); ok {
			return job, true
		}
		select {
		case <-ctx.Done():
			return Job{}, false
		case <-w.queue.wake:
		}
	}
}

// process 处理单个任务。任何一个任务的失败都不会中断消费循环，
// 也不会影响其他任务的状态：错误在这里被记录并吞掉。
func (w *Worker) process(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("[TaggingWorker] 处理打标任务时发生 panic", "photoId", job.PhotoID, "panic", r)
		}
	}()

	// 1. 加载图片及其当前标签；图片在排队期间被删除属于正常的过期任务
	photo, err := w.store.GetPhotoWithTags(job.PhotoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[TaggingWorker] 图片 %d 已不存在，放弃打标", job.PhotoID)
		} else {
			log.Errorw("[TaggingWorker] 加载图片失败", "photoId", job.PhotoID, "error", err)
		}
		return
	}

	// 2. 加载用户 AI 配置；未配置或无 Key 表示用户未开启打标
	setting, err := w.store.GetUserAiSettings(photo.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debugf("[TaggingWorker] 用户 %d 未配置 AI，跳过图片 %d", photo.UserID, photo.ID)
		} else {
			log.Errorw("[TaggingWorker] 加载用户 AI 配置失败", "userId", photo.UserID, "error", err)
		}
		return
	}
	if strings.TrimSpace(setting.ApiKey) == "" {
		log.Debugf("[TaggingWorker] 用户 %d 未配置 API Key，跳过图片 %d", photo.UserID, photo.ID)
		return
	}

	// 3. 构建词表
	vocabulary := w.vocabulary.Build(ctx, photo.UserID)

	// 4. 组装本次调用的配置
	options := Options{
		Provider:        setting.Provider,
		APIKey:          setting.ApiKey,
		Model:           setting.Model,
		MaxTags:         w.maxTags,
		SuggestionLimit: w.suggestionLimit,
		Vocabulary:      vocabulary,
	}
	if setting.Endpoint != nil {
		options.Endpoint = *setting.Endpoint
	}

	// 5. 调用生成器（有界超时，防止单个任务卡死队列）
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	result := w.generator.GenerateTags(callCtx, job.AbsoluteFilePath, options)
	cancel()

	if ctx.Err() != nil {
		// 停机取消：干净放弃，不按错误记录
		return
	}

	// 6. 空结果无需落库
	if result.Empty() {
		log.Debugf("[TaggingWorker] 图片 %d 未生成任何标签", photo.ID)
		return
	}

	// 7-9. 单事务落库：替换 Ai 标签关联 + 插入新的候选标签
	applied, pending, err := w.store.Reconcile(ctx, photo, result.Selected, result.Suggested)
	if err != nil {
		log.Errorw("[TaggingWorker] 打标结果落库失败", "photoId", photo.ID, "error", err)
		return
	}

	log.Infow("AI 标签已应用",
		"photoId", photo.ID,
		"tags", strings.Join(applied, ", "),
		"suggestions", strings.Join(pending, ", "),
	)
}
