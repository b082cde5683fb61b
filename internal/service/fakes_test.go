package service

import (
	"context"
	"errors"
	"fmt"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeTests struct {
	tests map[string]*model.Test
}

func newFakeTests(tests ...*model.Test) *fakeTests {
	f := &fakeTests{tests: make(map[string]*model.Test)}
	for _, t := range tests {
		f.tests[t.ID] = t
	}
	return f
}

func (f *fakeTests) FindTestByID(_ context.Context, id string) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

type fakeResults struct {
	mu      sync.Mutex
	results []model.Result
	creates int

	// failures 次写入返回错误
	failures int
	// gate 非空时 CreateResult 阻塞直到关闭
	gate chan struct{}
	// entered 每次进入 CreateResult 时发送
	entered chan struct{}
}

func (f *fakeResults) CreateResult(_ context.Context, result *model.Result) (*model.Result, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("write timeout")
	}
	for _, r := range f.results {
		if result.IdempotencyKey != "" && r.IdempotencyKey == result.IdempotencyKey {
			existing := r
			return &existing, repository.ErrDuplicateResult
		}
	}
	if result.ID == "" {
		result.ID = model.GenerateUUID()
	}
	f.results = append(f.results, *result)
	return result, nil
}

func (f *fakeResults) FindByID(_ context.Context, id string) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.ID == id {
			found := r
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResults) FindByIdempotencyKey(_ context.Context, key string) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.IdempotencyKey == key {
			found := r
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResults) ListByTest(_ context.Context, testID string) ([]model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Result
	for _, r := range f.results {
		if r.TestID == testID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) ListByTaker(_ context.Context, takerKey string) ([]model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Result
	for _, r := range f.results {
		if r.TakerKey == takerKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func (f *fakeResults) all() []model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Result(nil), f.results...)
}

// fakeIdentity 练习按账号取姓名，正式考试按报名号取姓名
type fakeIdentity struct {
	users         map[uint]string
	registrations map[string]model.Registration
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		users:         map[uint]string{1: "Alice", 2: "Bob"},
		registrations: map[string]model.Registration{},
	}
}

func (f *fakeIdentity) ResolveTaker(_ context.Context, userID uint, testID, registrationNo string) (model.Taker, error) {
	if registrationNo == "" {
		return model.PracticeTaker(userID), nil
	}
	reg, ok := f.registrations[registrationNo]
	if !ok || reg.UserID != userID || (testID != "" && reg.TestID != testID) {
		return model.Taker{}, ErrRegistrationMismatch
	}
	return model.OfficialTaker(userID, registrationNo), nil
}

func (f *fakeIdentity) DisplayName(_ context.Context, taker model.Taker) (string, error) {
	if taker.Kind == model.TakerOfficial {
		reg, ok := f.registrations[taker.RegistrationNo]
		if !ok {
			return "", gorm.ErrRecordNotFound
		}
		return reg.StudentName, nil
	}
	name, ok := f.users[taker.UserID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return name, nil
}

// manualTicker 由测试逐个发送节拍
type manualTicker struct {
	ch     chan time.Time
	active atomic.Int32
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) source(time.Duration) (<-chan time.Time, func()) {
	m.active.Add(1)
	return m.ch, func() { m.active.Add(-1) }
}

// idle 没有计时 goroutine 存活
func (m *manualTicker) idle() bool {
	return m.active.Load() == 0
}

// tick 返回 false 表示没有计时任务在接收
func (m *manualTicker) tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

// failingBackend fail 为 true 时 Set 返回错误，failDelete 为 true 时 Delete 返回错误
type failingBackend struct {
	*repository.MemorySessionStateRepository
	mu         sync.Mutex
	fail       bool
	failDelete bool
}

func (b *failingBackend) setFailDelete(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDelete = v
}

func (b *failingBackend) Delete(ctx context.Context, keys ...model.SessionKey) error {
	b.mu.Lock()
	fail := b.failDelete
	b.mu.Unlock()
	if fail {
		return errors.New("redis: i/o timeout")
	}
	return b.MemorySessionStateRepository.Delete(ctx, keys...)
}

func (b *failingBackend) setFail(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = v
}

func (b *failingBackend) Set(ctx context.Context, key model.SessionKey, value string) error {
	b.mu.Lock()
	fail := b.fail
	b.mu.Unlock()
	if fail {
		return errors.New("redis: connection refused")
	}
	return b.MemorySessionStateRepository.Set(ctx, key, value)
}

func intPtr(v int) *int {
	return &v
}

// newExamTest 每题 4 个选项，正确答案为第 0 项
func newExamTest(id string, questions, durationMinutes int) *model.Test {
	t := &model.Test{
		Title:           "Test " + id,
		DurationMinutes: durationMinutes,
		IsPublished:     true,
	}
	t.ID = id
	for i := 0; i < questions; i++ {
		q := model.Question{
			TestID:        id,
			Text:          fmt.Sprintf("Q%d", i+1),
			Options:       model.StringList{"a", "b", "c", "d"},
			CorrectOption: 0,
			Marks:         1,
			Order:         i + 1,
		}
		q.ID = fmt.Sprintf("%s-q%d", id, i+1)
		t.Questions = append(t.Questions, q)
	}
	return t
}

type examFixture struct {
	svc      *ExamService
	results  *fakeResults
	identity *fakeIdentity
	backend  repository.SessionStateBackend
	ticker   *manualTicker
}

func newExamFixture(t *testing.T, backend repository.SessionStateBackend, tests ...*model.Test) *examFixture {
	t.Helper()
	if backend == nil {
		backend = repository.NewMemorySessionStateRepository()
	}
	results := &fakeResults{}
	identity := newFakeIdentity()
	pipeline := NewSubmissionPipeline(results, identity, nil)
	pipeline.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	svc := NewExamService(newFakeTests(tests...), results, identity, backend, pipeline, time.Second)
	ticker := newManualTicker()
	svc.TickSource = ticker.source
	t.Cleanup(svc.Shutdown)

	return &examFixture{svc: svc, results: results, identity: identity, backend: backend, ticker: ticker}
}
