package service

import (
	"context"
	"encoding/json"
	"fmt"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"sort"
	"strconv"
	"time"
)

// Recovery 描述会话初始化时从持久化状态恢复的情况，不属于错误
type Recovery string

const (
	RecoveryFresh   Recovery = "fresh"
	RecoveryResumed Recovery = "resumed"
	// RecoveryReset 题目数量与已保存答案长度不一致，整体重置
	RecoveryReset Recovery = "reset"
)

// SessionStore 保存单次作答的答案、标记与剩余时间。
// 所有修改同步写入后端；并发控制由 ExamSession 负责。
type SessionStore struct {
	backend  repository.SessionStateBackend
	testID   string
	takerKey string

	initialized bool
	duration    int
	answers     []*int
	review      map[int]struct{}
	timeLeft    int
	startedAt   time.Time
}

func NewSessionStore(backend repository.SessionStateBackend, testID, takerKey string) *SessionStore {
	return &SessionStore{
		backend:  backend,
		testID:   testID,
		takerKey: takerKey,
		review:   make(map[int]struct{}),
	}
}

func (s *SessionStore) key(p model.SessionPurpose) model.SessionKey {
	return model.SessionKey{TestID: s.testID, TakerKey: s.takerKey, Purpose: p}
}

// Initialize 同一进程内只生效一次
func (s *SessionStore) Initialize(ctx context.Context, questionCount, durationSeconds int, now time.Time) (Recovery, error) {
	if s.initialized {
		return RecoveryResumed, nil
	}
	s.duration = durationSeconds

	if err := s.loadTime(ctx); err != nil {
		return "", err
	}
	recovery, err := s.loadAnswers(ctx, questionCount)
	if err != nil {
		return "", err
	}
	if err := s.loadReview(ctx, questionCount); err != nil {
		return "", err
	}
	if err := s.loadStarted(ctx, now); err != nil {
		return "", err
	}

	s.initialized = true
	return recovery, nil
}

func (s *SessionStore) loadTime(ctx context.Context) error {
	raw, ok, err := s.backend.Get(ctx, s.key(model.PurposeTime))
	if err != nil {
		return err
	}
	if ok {
		if v, convErr := strconv.Atoi(raw); convErr == nil && v > 0 {
			s.timeLeft = min(v, s.duration)
			return nil
		}
	}
	s.timeLeft = s.duration
	return s.persistTime(ctx)
}

func (s *SessionStore) loadAnswers(ctx context.Context, questionCount int) (Recovery, error) {
	raw, ok, err := s.backend.Get(ctx, s.key(model.PurposeAnswers))
	if err != nil {
		return "", err
	}
	recovery := RecoveryFresh
	if ok {
		var saved []*int
		if jsonErr := json.Unmarshal([]byte(raw), &saved); jsonErr == nil && len(saved) == questionCount {
			s.answers = saved
			return RecoveryResumed, nil
		}
		// 题目版本变化时按位置无法对应，不做部分合并
		recovery = RecoveryReset
	}
	s.answers = make([]*int, questionCount)
	return recovery, s.persistAnswers(ctx)
}

func (s *SessionStore) loadReview(ctx context.Context, questionCount int) error {
	raw, ok, err := s.backend.Get(ctx, s.key(model.PurposeReview))
	if err != nil {
		return err
	}
	s.review = make(map[int]struct{})
	if !ok {
		return s.persistReview(ctx)
	}
	var saved []int
	if json.Unmarshal([]byte(raw), &saved) != nil {
		return s.persistReview(ctx)
	}
	for _, i := range saved {
		if i >= 0 && i < questionCount {
			s.review[i] = struct{}{}
		}
	}
	return nil
}

func (s *SessionStore) loadStarted(ctx context.Context, now time.Time) error {
	raw, ok, err := s.backend.Get(ctx, s.key(model.PurposeStarted))
	if err != nil {
		return err
	}
	if ok {
		if nanos, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && nanos > 0 {
			s.startedAt = time.Unix(0, nanos)
			return nil
		}
	}
	s.startedAt = now
	return s.backend.Set(ctx, s.key(model.PurposeStarted), strconv.FormatInt(now.UnixNano(), 10))
}

func (s *SessionStore) mustIndex(i int) {
	if i < 0 || i >= len(s.answers) {
		panic(fmt.Sprintf("session store: question index %d out of range [0,%d)", i, len(s.answers)))
	}
}

func (s *SessionStore) QuestionCount() int {
	return len(s.answers)
}

func (s *SessionStore) Answer(i int) *int {
	s.mustIndex(i)
	if s.answers[i] == nil {
		return nil
	}
	v := *s.answers[i]
	return &v
}

// Answers 返回答案副本
func (s *SessionStore) Answers() []*int {
	out := make([]*int, len(s.answers))
	for i := range s.answers {
		out[i] = s.Answer(i)
	}
	return out
}

func (s *SessionStore) SetAnswer(ctx context.Context, i int, option *int) error {
	s.mustIndex(i)
	prev := s.answers[i]
	if option != nil {
		v := *option
		option = &v
	}
	s.answers[i] = option
	if err := s.persistAnswers(ctx); err != nil {
		s.answers[i] = prev
		return err
	}
	return nil
}

// ToggleReview 返回切换后的标记状态
func (s *SessionStore) ToggleReview(ctx context.Context, i int) (bool, error) {
	s.mustIndex(i)
	_, marked := s.review[i]
	if marked {
		delete(s.review, i)
	} else {
		s.review[i] = struct{}{}
	}
	if err := s.persistReview(ctx); err != nil {
		if marked {
			s.review[i] = struct{}{}
		} else {
			delete(s.review, i)
		}
		return marked, err
	}
	return !marked, nil
}

func (s *SessionStore) IsReviewed(i int) bool {
	s.mustIndex(i)
	_, ok := s.review[i]
	return ok
}

func (s *SessionStore) Reviewed() []int {
	out := make([]int, 0, len(s.review))
	for i := range s.review {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (s *SessionStore) TimeLeft() int {
	return s.timeLeft
}

func (s *SessionStore) SetTimeLeft(ctx context.Context, seconds int) error {
	seconds = max(0, min(seconds, s.duration))
	prev := s.timeLeft
	s.timeLeft = seconds
	if err := s.persistTime(ctx); err != nil {
		s.timeLeft = prev
		return err
	}
	return nil
}

// Tick 剩余时间减一。写入失败时不回滚，计时不能因存储故障停住
func (s *SessionStore) Tick(ctx context.Context) (int, error) {
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	return s.timeLeft, s.persistTime(ctx)
}

func (s *SessionStore) Duration() int {
	return s.duration
}

func (s *SessionStore) StartedAt() time.Time {
	return s.startedAt
}

// Clear 删除该考生在该试卷下的全部会话键
func (s *SessionStore) Clear(ctx context.Context) error {
	keys := make([]model.SessionKey, 0, len(model.SessionPurposes))
	for _, p := range model.SessionPurposes {
		keys = append(keys, s.key(p))
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return err
	}
	s.initialized = false
	return nil
}

func (s *SessionStore) persistAnswers(ctx context.Context) error {
	b, err := json.Marshal(s.answers)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.key(model.PurposeAnswers), string(b))
}

func (s *SessionStore) persistReview(ctx context.Context) error {
	b, err := json.Marshal(s.Reviewed())
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.key(model.PurposeReview), string(b))
}

func (s *SessionStore) persistTime(ctx context.Context) error {
	return s.backend.Set(ctx, s.key(model.PurposeTime), strconv.Itoa(s.timeLeft))
}
