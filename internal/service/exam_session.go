package service

import (
	"context"
	"errors"
	"institute_backend/internal/model"
	"institute_backend/pkg/logger"
	"institute_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
)

type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateSubmitting SubmissionState = "submitting"
	StateCommitted  SubmissionState = "committed"
	// StateFailed 写入失败，可重试
	StateFailed SubmissionState = "failed"
)

type SessionEventType string

const (
	EventTick      SessionEventType = "tick"
	EventExpired   SessionEventType = "expired"
	EventSubmitted SessionEventType = "submitted"
	EventFailed    SessionEventType = "failed"
)

type SessionEvent struct {
	Type     SessionEventType `json:"type"`
	TimeLeft int              `json:"timeLeft"`
	ResultID string           `json:"resultId,omitempty"`
}

type SessionView struct {
	TestID          string                 `json:"testId"`
	TestTitle       string                 `json:"testTitle"`
	TakerKey        string                 `json:"takerKey"`
	Official        bool                   `json:"official"`
	Questions       []model.PublicQuestion `json:"questions"`
	Answers         []*int                 `json:"answers"`
	MarkedForReview []int                  `json:"markedForReview"`
	TimeLeftSeconds int                    `json:"timeLeftSeconds"`
	DurationSeconds int                    `json:"durationSeconds"`
	Status          SubmissionState        `json:"status"`
	ResultID        string                 `json:"resultId,omitempty"`
	Recovery        Recovery               `json:"recovery,omitempty"`
}

// ExamSession 一次作答。提交入口只有 Submit，手动提交与超时自动提交
// 谁先拿到 Submitting 状态谁执行，另一个直接丢弃。
type ExamSession struct {
	test     *model.Test
	taker    model.Taker
	store    *SessionStore
	timer    *Countdown
	pipeline *SubmissionPipeline

	mu       sync.Mutex
	state    SubmissionState
	resultID string

	subMu sync.Mutex
	subs  map[chan SessionEvent]struct{}

	onCommitted func(*ExamSession)
}

func newExamSession(test *model.Test, taker model.Taker, store *SessionStore, pipeline *SubmissionPipeline, interval time.Duration, source TickSource) *ExamSession {
	s := &ExamSession{
		test:     test,
		taker:    taker,
		store:    store,
		pipeline: pipeline,
		state:    StateIdle,
		subs:     make(map[chan SessionEvent]struct{}),
	}
	s.timer = NewCountdown(interval, source, s.tick, s.expire)
	return s
}

func (s *ExamSession) key() string {
	return sessionMapKey(s.test.ID, s.taker.Key)
}

// Start 仅在未提交且仍有剩余时间时计时
func (s *ExamSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting || s.state == StateCommitted {
		return
	}
	if s.store.TimeLeft() > 0 {
		s.timer.Start()
	}
}

// tick done 已关闭说明本轮计时在等锁期间被停止（例如提交失败后重新计时），丢弃该节拍
func (s *ExamSession) tick(done <-chan struct{}) (int, bool) {
	s.mu.Lock()
	select {
	case <-done:
		s.mu.Unlock()
		return 0, false
	default:
	}
	if s.state == StateSubmitting || s.state == StateCommitted {
		s.mu.Unlock()
		return 0, false
	}
	remaining, err := s.store.Tick(context.Background())
	s.mu.Unlock()
	if err != nil {
		logger.Log.Warn("Failed to persist remaining time",
			zap.String("testId", s.test.ID),
			zap.String("takerKey", s.taker.Key),
			zap.Error(err))
	}

	s.publish(SessionEvent{Type: EventTick, TimeLeft: remaining})
	return remaining, true
}

func (s *ExamSession) expire() {
	logger.Log.Info("Exam time expired, submitting automatically",
		zap.String("testId", s.test.ID),
		zap.String("takerKey", s.taker.Key))
	s.publish(SessionEvent{Type: EventExpired})

	_, err := s.Submit(context.Background(), model.TriggerAuto)
	if err != nil && !errors.Is(err, ErrSubmissionInProgress) && !errors.Is(err, ErrSessionClosed) {
		logger.Log.Error("Automatic submission failed",
			zap.String("testId", s.test.ID),
			zap.String("takerKey", s.taker.Key),
			zap.Error(err))
	}
}

// Submit 单入口状态机：Idle/Failed -> Submitting -> Committed | Failed
func (s *ExamSession) Submit(ctx context.Context, trigger model.SubmitTrigger) (string, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		monitoring.ExamSubmissions.WithLabelValues(string(trigger), "dropped").Inc()
		return "", ErrSubmissionInProgress
	case StateCommitted:
		id := s.resultID
		s.mu.Unlock()
		monitoring.ExamSubmissions.WithLabelValues(string(trigger), "dropped").Inc()
		return id, &SessionClosedError{ResultID: id}
	}
	s.state = StateSubmitting
	s.timer.Stop()
	in := SubmissionInput{
		Test:      s.test,
		Taker:     s.taker,
		Answers:   s.store.Answers(),
		TimeLeft:  s.store.TimeLeft(),
		StartedAt: s.store.StartedAt(),
		Trigger:   trigger,
	}
	s.mu.Unlock()

	// 客户端断开不应中断正在写入的成绩
	ctx = context.WithoutCancel(ctx)
	result, err := s.pipeline.Run(ctx, in)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		if s.store.TimeLeft() > 0 {
			s.timer.Start()
		}
		s.mu.Unlock()

		monitoring.ExamSubmissions.WithLabelValues(string(trigger), "failed").Inc()
		logger.Log.Error("Exam submission failed",
			zap.String("testId", s.test.ID),
			zap.String("takerKey", s.taker.Key),
			zap.String("trigger", string(trigger)),
			zap.Error(err))
		s.publish(SessionEvent{Type: EventFailed, TimeLeft: in.TimeLeft})
		return "", &SubmissionError{Err: err}
	}

	// 清理失败时残留的会话键由下一次 Open 按幂等键识别并丢弃
	if clearErr := s.store.Clear(ctx); clearErr != nil {
		logger.Log.Warn("Failed to clear session state after submission",
			zap.String("testId", s.test.ID),
			zap.String("takerKey", s.taker.Key),
			zap.Error(clearErr))
	}
	s.state = StateCommitted
	s.resultID = result.ID
	s.mu.Unlock()

	monitoring.ExamSubmissions.WithLabelValues(string(trigger), "committed").Inc()
	logger.Log.Info("Exam submitted",
		zap.String("testId", s.test.ID),
		zap.String("takerKey", s.taker.Key),
		zap.String("resultId", result.ID),
		zap.String("trigger", string(trigger)),
		zap.Int("score", result.Score))

	s.publish(SessionEvent{Type: EventSubmitted, ResultID: result.ID})
	s.closeSubscribers()
	if s.onCommitted != nil {
		s.onCommitted(s)
	}
	return result.ID, nil
}

func (s *ExamSession) frozenLocked() bool {
	return s.state == StateSubmitting || s.state == StateCommitted || s.store.TimeLeft() == 0
}

func (s *ExamSession) SetAnswer(ctx context.Context, index int, option *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozenLocked() {
		return ErrSessionFrozen
	}
	if index < 0 || index >= len(s.test.Questions) {
		return ErrInvalidIndex
	}
	if option != nil && (*option < 0 || *option >= len(s.test.Questions[index].Options)) {
		return ErrInvalidIndex
	}
	return s.store.SetAnswer(ctx, index, option)
}

func (s *ExamSession) ToggleReview(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozenLocked() {
		return false, ErrSessionFrozen
	}
	if index < 0 || index >= len(s.test.Questions) {
		return false, ErrInvalidIndex
	}
	return s.store.ToggleReview(ctx, index)
}

// ResultID 已提交时为成绩 ID
func (s *ExamSession) ResultID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultID
}

func (s *ExamSession) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ExamSession) View() *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]model.PublicQuestion, len(s.test.Questions))
	for i, q := range s.test.Questions {
		questions[i] = q.Public()
	}
	view := &SessionView{
		TestID:          s.test.ID,
		TestTitle:       s.test.Title,
		TakerKey:        s.taker.Key,
		Official:        s.taker.Kind == model.TakerOfficial,
		Questions:       questions,
		DurationSeconds: s.test.DurationSeconds(),
		Status:          s.state,
		ResultID:        s.resultID,
	}
	if s.state != StateCommitted {
		view.Answers = s.store.Answers()
		view.MarkedForReview = s.store.Reviewed()
		view.TimeLeftSeconds = s.store.TimeLeft()
	}
	return view
}

// Subscribe 订阅倒计时与提交事件，会话提交后通道关闭
func (s *ExamSession) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 16)
	s.subMu.Lock()
	if s.subs == nil {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *ExamSession) publish(ev SessionEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *ExamSession) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

func (s *ExamSession) stopTimer() {
	s.timer.Stop()
}
