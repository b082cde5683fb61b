package service

import (
	"context"
	"errors"
	"fmt"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"institute_backend/pkg/logger"
	"institute_backend/pkg/monitoring"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

func sessionMapKey(testID, takerKey string) string {
	return url.QueryEscape(testID) + "|" + url.QueryEscape(takerKey)
}

// closedSession 已提交会话的记录，重复提交或恢复时据此返回成绩 ID
type closedSession struct {
	resultID string
	at       time.Time
}

// ExamService 管理进程内的活动作答会话
type ExamService struct {
	Tests    TestSource
	Results  ResultStore
	Identity IdentityResolver
	Backend  repository.SessionStateBackend
	Pipeline *SubmissionPipeline

	TickInterval time.Duration
	TickSource   TickSource
	Now          func() time.Time
	// ClosedRetention 提交后保留成绩 ID 的时长
	ClosedRetention time.Duration

	mu       sync.Mutex
	sessions map[string]*ExamSession
	closed   map[string]closedSession
	opening  singleflight.Group
}

func NewExamService(tests TestSource, results ResultStore, identity IdentityResolver, backend repository.SessionStateBackend, pipeline *SubmissionPipeline, tickInterval time.Duration) *ExamService {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &ExamService{
		Tests:           tests,
		Results:         results,
		Identity:        identity,
		Backend:         backend,
		Pipeline:        pipeline,
		TickInterval:    tickInterval,
		TickSource:      RealTickSource,
		Now:             time.Now,
		ClosedRetention: 30 * time.Minute,
		sessions:        make(map[string]*ExamSession),
		closed:          make(map[string]closedSession),
	}
}

func (s *ExamService) ResolveTaker(ctx context.Context, userID uint, testID, registrationNo string) (model.Taker, error) {
	return s.Identity.ResolveTaker(ctx, userID, testID, registrationNo)
}

func (s *ExamService) loadTest(ctx context.Context, testID string) (*model.Test, error) {
	test, err := s.Tests.FindTestByID(ctx, testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTestUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load test %s: %w", testID, err)
	}
	if !test.IsPublished || test.Validate() != nil {
		return nil, ErrTestUnavailable
	}
	return test, nil
}

// closedResult 保留期内已提交会话的成绩 ID
func (s *ExamService) closedResult(testID, takerKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.closed[sessionMapKey(testID, takerKey)]
	if !ok || s.Now().Sub(c.at) > s.ClosedRetention {
		return "", false
	}
	return c.resultID, true
}

func (s *ExamService) lookup(testID, takerKey string) (*ExamSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionMapKey(testID, takerKey)]
	return sess, ok
}

// Open 开始或恢复作答。同一考生同一试卷并发打开只会创建一个会话
func (s *ExamService) Open(ctx context.Context, testID string, taker model.Taker) (*SessionView, error) {
	if sess, ok := s.lookup(testID, taker.Key); ok {
		return sess.View(), nil
	}

	v, err, _ := s.opening.Do(sessionMapKey(testID, taker.Key), func() (interface{}, error) {
		if sess, ok := s.lookup(testID, taker.Key); ok {
			return sess.View(), nil
		}
		return s.create(ctx, testID, taker)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionView), nil
}

// Resume 只恢复已存在的会话（进程内或持久化后端中），不会新建
func (s *ExamService) Resume(ctx context.Context, testID string, taker model.Taker) (*SessionView, error) {
	if sess, ok := s.lookup(testID, taker.Key); ok {
		return sess.View(), nil
	}
	if id, ok := s.closedResult(testID, taker.Key); ok {
		return nil, &SessionClosedError{ResultID: id}
	}
	_, ok, err := s.Backend.Get(ctx, model.SessionKey{TestID: testID, TakerKey: taker.Key, Purpose: model.PurposeAnswers})
	if err != nil {
		return nil, fmt.Errorf("check saved session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Open(ctx, testID, taker)
}

func (s *ExamService) create(ctx context.Context, testID string, taker model.Taker) (*SessionView, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	store := NewSessionStore(s.Backend, test.ID, taker.Key)
	recovery, err := store.Initialize(ctx, len(test.Questions), test.DurationSeconds(), s.Now())
	if err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	if recovery, err = s.discardCommitted(ctx, store, test, taker, recovery); err != nil {
		return nil, err
	}
	monitoring.SessionRecoveries.WithLabelValues(string(recovery)).Inc()
	if recovery == RecoveryReset {
		logger.Log.Warn("Saved answers do not match current questions, session reset",
			zap.String("testId", test.ID),
			zap.String("takerKey", taker.Key))
	}

	sess := newExamSession(test, taker, store, s.Pipeline, s.TickInterval, s.TickSource)
	sess.onCommitted = s.forget

	s.mu.Lock()
	s.sessions[sess.key()] = sess
	delete(s.closed, sess.key())
	s.mu.Unlock()
	monitoring.ActiveSessions.Inc()

	sess.Start()
	logger.Log.Info("Exam session opened",
		zap.String("testId", test.ID),
		zap.String("takerKey", taker.Key),
		zap.String("recovery", string(recovery)),
		zap.Int("timeLeft", store.TimeLeft()))

	view := sess.View()
	view.Recovery = recovery
	return view, nil
}

// discardCommitted 恢复出的状态若已对应一条成绩（提交后清理失败留下的残留），
// 清除后重新开始新的作答，不能把已提交的作答当作未完成恢复
func (s *ExamService) discardCommitted(ctx context.Context, store *SessionStore, test *model.Test, taker model.Taker, recovery Recovery) (Recovery, error) {
	key := IdempotencyKey(taker.Key, test.ID, store.StartedAt())
	existing, err := s.Results.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return recovery, nil
	}
	if err != nil {
		return "", fmt.Errorf("check submitted attempt: %w", err)
	}

	logger.Log.Warn("Saved session belongs to a submitted attempt, starting over",
		zap.String("testId", test.ID),
		zap.String("takerKey", taker.Key),
		zap.String("resultId", existing.ID))
	if err := store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clear submitted session: %w", err)
	}
	if _, err := store.Initialize(ctx, len(test.Questions), test.DurationSeconds(), s.Now()); err != nil {
		return "", fmt.Errorf("initialize session: %w", err)
	}
	return RecoveryFresh, nil
}

func (s *ExamService) forget(sess *ExamSession) {
	resultID := sess.ResultID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sess.key()]; ok && cur == sess {
		delete(s.sessions, sess.key())
		monitoring.ActiveSessions.Dec()
	}
	now := s.Now()
	for k, c := range s.closed {
		if now.Sub(c.at) > s.ClosedRetention {
			delete(s.closed, k)
		}
	}
	s.closed[sess.key()] = closedSession{resultID: resultID, at: now}
}

// session 已提交的会话在保留期内返回 SessionClosedError
func (s *ExamService) session(testID, takerKey string) (*ExamSession, error) {
	sess, ok := s.lookup(testID, takerKey)
	if ok {
		return sess, nil
	}
	if id, ok := s.closedResult(testID, takerKey); ok {
		return nil, &SessionClosedError{ResultID: id}
	}
	return nil, ErrSessionNotFound
}

func (s *ExamService) View(testID string, taker model.Taker) (*SessionView, error) {
	sess, err := s.session(testID, taker.Key)
	if err != nil {
		return nil, err
	}
	return sess.View(), nil
}

func (s *ExamService) SetAnswer(ctx context.Context, testID string, taker model.Taker, index int, option *int) error {
	sess, err := s.session(testID, taker.Key)
	if err != nil {
		return err
	}
	return sess.SetAnswer(ctx, index, option)
}

func (s *ExamService) ToggleReview(ctx context.Context, testID string, taker model.Taker, index int) (bool, error) {
	sess, err := s.session(testID, taker.Key)
	if err != nil {
		return false, err
	}
	return sess.ToggleReview(ctx, index)
}

// Submit 手动提交
func (s *ExamService) Submit(ctx context.Context, testID string, taker model.Taker) (string, error) {
	sess, err := s.session(testID, taker.Key)
	if err != nil {
		return "", err
	}
	return sess.Submit(ctx, model.TriggerManual)
}

func (s *ExamService) Subscribe(testID string, taker model.Taker) (<-chan SessionEvent, func(), error) {
	sess, err := s.session(testID, taker.Key)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.Subscribe()
	return ch, cancel, nil
}

func (s *ExamService) Result(ctx context.Context, id string) (*model.Result, error) {
	result, err := s.Results.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ExamService) History(ctx context.Context, takerKey string) ([]model.Result, error) {
	return s.Results.ListByTaker(ctx, takerKey)
}

// Owns 成绩是否属于该账号：练习按账号匹配，正式考试按报名记录匹配
func (s *ExamService) Owns(ctx context.Context, userID uint, result *model.Result) (bool, error) {
	if result.TakerKey == model.PracticeTaker(userID).Key {
		return true, nil
	}
	regNo, ok := model.RegistrationNoFromKey(result.TakerKey)
	if !ok {
		return false, nil
	}
	_, err := s.Identity.ResolveTaker(ctx, userID, result.TestID, regNo)
	if errors.Is(err, ErrRegistrationMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ExamService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown 停止所有计时器。未提交的会话状态已写入后端，重启后可恢复
func (s *ExamService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sess := range s.sessions {
		sess.stopTimer()
		delete(s.sessions, key)
		monitoring.ActiveSessions.Dec()
	}
}
