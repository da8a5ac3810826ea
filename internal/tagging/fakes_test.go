package tagging

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"pai-photo-go/internal/model"
	"pai-photo-go/pkg/vision"
)

// fakeStore 是 repository.TaggingStore 的内存假实现。
type fakeStore struct {
	mu       sync.Mutex
	photos   map[uint]*model.Photo
	settings map[uint]*model.UserAiSetting
	topTags  []string

	topTagsErr   error
	reconcileErr error

	reconciled []reconcileCall
}

type reconcileCall struct {
	photoID   uint
	selected  []string
	suggested []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		photos:   make(map[uint]*model.Photo),
		settings: make(map[uint]*model.UserAiSetting),
	}
}

func (s *fakeStore) GetPhotoWithTags(photoID uint) (*model.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	photo, ok := s.photos[photoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return photo, nil
}

func (s *fakeStore) GetUserAiSettings(userID uint) (*model.UserAiSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return setting, nil
}

func (s *fakeStore) TopTagNames(userID uint, types []model.TagType, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topTagsErr != nil {
		return nil, s.topTagsErr
	}
	if limit < len(s.topTags) {
		return s.topTags[:limit], nil
	}
	return s.topTags, nil
}

func (s *fakeStore) Reconcile(ctx context.Context, photo *model.Photo, selected, suggested []string) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconcileErr != nil {
		return nil, nil, s.reconcileErr
	}
	s.reconciled = append(s.reconciled, reconcileCall{
		photoID:   photo.ID,
		selected:  append([]string(nil), selected...),
		suggested: append([]string(nil), suggested...),
	})
	return selected, suggested, nil
}

func (s *fakeStore) reconcileCalls() []reconcileCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconcileCall(nil), s.reconciled...)
}

// fakeGenerator 是 Generator 的假实现，按调用顺序记录路径并返回固定结果。
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	result  Result
	panicOn string // 路径等于该值时 panic，用于验证消费循环的隔离性
}

func (g *fakeGenerator) GenerateTags(ctx context.Context, absoluteFilePath string, options Options) Result {
	g.mu.Lock()
	g.calls = append(g.calls, absoluteFilePath)
	panicOn := g.panicOn
	g.mu.Unlock()

	if panicOn != "" && absoluteFilePath == panicOn {
		panic("simulated generator failure")
	}
	return g.result
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGenerator) calledPaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// fakeVisionClient 是 vision.Client 的假实现。
type fakeVisionClient struct {
	mu       sync.Mutex
	calls    int
	messages [][]vision.Message
	creds    []vision.Credentials
	reply    string
	err      error
}

func (c *fakeVisionClient) Complete(ctx context.Context, creds vision.Credentials, messages []vision.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.creds = append(c.creds, creds)
	c.messages = append(c.messages, messages)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *fakeVisionClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
