package tagging

import (
	"strings"
	"sync"

	"pai-photo-go/pkg/log"
)

// Job 是一个打标任务：一张等待生成 AI 标签的图片。
// 任务不落库，出队后只处理一次，无论成败都随即丢弃。
type Job struct {
	PhotoID          uint
	AbsoluteFilePath string
}

// Queue 是多生产者/单消费者的无界 FIFO 队列。
// 上传/编辑请求在持久化成功后入队即返回，绝不等待打标完成，
// 因此 Enqueue 必须永不阻塞——容量无界是有意为之。
type Queue struct {
	mu     sync.Mutex
	jobs   []Job
	closed bool
	// wake 是容量为 1 的信号通道：入队时非阻塞地捅一下消费者。
	// 消费者每次被唤醒后都会把积压全部排空，信号合并不会丢任务。
	wake chan struct{}
}

// NewQueue 创建一个新的打标队列。
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue 提交一个打标任务。路径为空的任务直接丢弃（只记日志），
// 这是上传方未落盘成功等异常场景的防御。
func (q *Queue) Enqueue(photoID uint, absoluteFilePath string) {
	if strings.TrimSpace(absoluteFilePath) == "" {
		log.Debugf("[TaggingQueue] 跳过入队：图片 %d 的文件路径为空", photoID)
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Debugf("[TaggingQueue] 队列已关闭，丢弃图片 %d 的打标任务", photoID)
		return
	}
	q.jobs = append(q.jobs, Job{PhotoID: photoID, AbsoluteFilePath: absoluteFilePath})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	log.Debugf("[TaggingQueue] 图片 %d 的打标任务已入队", photoID)
}

// Close 停止接收新任务。已入队但未处理的任务会被消费者继续排空。
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len 返回当前积压的任务数。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// tryPop 非阻塞地取出队头任务。
func (q *Queue) tryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}
