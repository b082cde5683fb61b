package service

import (
	"context"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(backend repository.SessionStateBackend) *SessionStore {
	return NewSessionStore(backend, "test-1", "user:1")
}

func storeKey(purpose model.SessionPurpose) model.SessionKey {
	return model.SessionKey{TestID: "test-1", TakerKey: "user:1", Purpose: purpose}
}

func TestInitializeFreshSeedsAbsentAnswers(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			backend := repository.NewMemorySessionStateRepository()
			s := newStore(backend)

			recovery, err := s.Initialize(context.Background(), n, 600, time.Now())
			require.NoError(t, err)
			assert.Equal(t, RecoveryFresh, recovery)
			assert.Len(t, s.Answers(), n)
			for i := 0; i < n; i++ {
				assert.Nil(t, s.Answer(i))
			}
			assert.Equal(t, 600, s.TimeLeft())
			assert.Empty(t, s.Reviewed())

			raw, ok, _ := backend.Get(context.Background(), storeKey(model.PurposeTime))
			require.True(t, ok)
			assert.Equal(t, "600", raw)
		})
	}
}

func TestInitializeDiscardsAnswersOfDifferentLength(t *testing.T) {
	ctx := context.Background()
	backend := repository.NewMemorySessionStateRepository()
	require.NoError(t, backend.Set(ctx, storeKey(model.PurposeAnswers), "[0,1,2]"))

	s := newStore(backend)
	recovery, err := s.Initialize(ctx, 5, 600, time.Now())
	require.NoError(t, err)

	assert.Equal(t, RecoveryReset, recovery)
	assert.Equal(t, []*int{nil, nil, nil, nil, nil}, s.Answers())

	raw, _, _ := backend.Get(ctx, storeKey(model.PurposeAnswers))
	assert.Equal(t, "[null,null,null,null,null]", raw)
}

func TestInitializeResumesPersistedState(t *testing.T) {
	ctx := context.Background()
	backend := repository.NewMemorySessionStateRepository()
	require.NoError(t, backend.Set(ctx, storeKey(model.PurposeAnswers), "[2,null,0]"))
	require.NoError(t, backend.Set(ctx, storeKey(model.PurposeReview), "[1,7,-1]"))
	require.NoError(t, backend.Set(ctx, storeKey(model.PurposeTime), "420"))
	started := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, backend.Set(ctx, storeKey(model.PurposeStarted), strconv.FormatInt(started.UnixNano(), 10)))

	s := newStore(backend)
	recovery, err := s.Initialize(ctx, 3, 600, time.Now())
	require.NoError(t, err)

	assert.Equal(t, RecoveryResumed, recovery)
	assert.Equal(t, []*int{intPtr(2), nil, intPtr(0)}, s.Answers())
	assert.Equal(t, []int{1}, s.Reviewed())
	assert.Equal(t, 420, s.TimeLeft())
	assert.True(t, s.StartedAt().Equal(started))
}

func TestInitializeSeedsInvalidTime(t *testing.T) {
	cases := map[string]int{
		"abc": 600,
		"0":   600,
		"-5":  600,
		"900": 600,
		"599": 599,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			ctx := context.Background()
			backend := repository.NewMemorySessionStateRepository()
			require.NoError(t, backend.Set(ctx, storeKey(model.PurposeTime), raw))

			s := newStore(backend)
			_, err := s.Initialize(ctx, 2, 600, time.Now())
			require.NoError(t, err)
			assert.Equal(t, want, s.TimeLeft())
		})
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(repository.NewMemorySessionStateRepository())
	_, err := s.Initialize(ctx, 3, 600, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.SetAnswer(ctx, 1, intPtr(3)))

	recovery, err := s.Initialize(ctx, 10, 60, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RecoveryResumed, recovery)
	assert.Equal(t, 3, s.QuestionCount())
	assert.Equal(t, intPtr(3), s.Answer(1))
	assert.Equal(t, 600, s.Duration())
}

func TestMutationsWriteThrough(t *testing.T) {
	ctx := context.Background()
	backend := repository.NewMemorySessionStateRepository()
	s := newStore(backend)
	_, err := s.Initialize(ctx, 3, 600, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.SetAnswer(ctx, 0, intPtr(1)))
	marked, err := s.ToggleReview(ctx, 2)
	require.NoError(t, err)
	assert.True(t, marked)
	require.NoError(t, s.SetTimeLeft(ctx, 300))

	raw, _, _ := backend.Get(ctx, storeKey(model.PurposeAnswers))
	assert.Equal(t, "[1,null,null]", raw)
	raw, _, _ = backend.Get(ctx, storeKey(model.PurposeReview))
	assert.Equal(t, "[2]", raw)
	raw, _, _ = backend.Get(ctx, storeKey(model.PurposeTime))
	assert.Equal(t, "300", raw)

	marked, err = s.ToggleReview(ctx, 2)
	require.NoError(t, err)
	assert.False(t, marked)
	assert.False(t, s.IsReviewed(2))
}

func TestSetTimeLeftClamps(t *testing.T) {
	ctx := context.Background()
	s := newStore(repository.NewMemorySessionStateRepository())
	_, err := s.Initialize(ctx, 1, 600, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.SetTimeLeft(ctx, 5000))
	assert.Equal(t, 600, s.TimeLeft())
	require.NoError(t, s.SetTimeLeft(ctx, -3))
	assert.Equal(t, 0, s.TimeLeft())
}

func TestFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemorySessionStateRepository: repository.NewMemorySessionStateRepository()}
	s := newStore(backend)
	_, err := s.Initialize(ctx, 2, 600, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.SetAnswer(ctx, 0, intPtr(1)))

	backend.setFail(true)
	assert.Error(t, s.SetAnswer(ctx, 0, intPtr(2)))
	assert.Equal(t, intPtr(1), s.Answer(0))

	_, err = s.ToggleReview(ctx, 1)
	assert.Error(t, err)
	assert.False(t, s.IsReviewed(1))

	assert.Error(t, s.SetTimeLeft(ctx, 10))
	assert.Equal(t, 600, s.TimeLeft())
}

func TestAnswerOutOfRangePanics(t *testing.T) {
	s := newStore(repository.NewMemorySessionStateRepository())
	_, err := s.Initialize(context.Background(), 2, 600, time.Now())
	require.NoError(t, err)

	assert.Panics(t, func() { s.Answer(2) })
	assert.Panics(t, func() { _ = s.SetAnswer(context.Background(), -1, nil) })
}

func TestClearRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	backend := repository.NewMemorySessionStateRepository()
	s := newStore(backend)
	_, err := s.Initialize(ctx, 2, 600, time.Now())
	require.NoError(t, err)
	_, err = s.ToggleReview(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	for _, p := range model.SessionPurposes {
		_, ok, _ := backend.Get(ctx, storeKey(p))
		assert.False(t, ok, p)
	}

	recovery, err := s.Initialize(ctx, 2, 600, time.Now())
	require.NoError(t, err)
	assert.Equal(t, RecoveryFresh, recovery)
}

func TestStoresAreIsolatedPerTakerAndTest(t *testing.T) {
	ctx := context.Background()
	backend := repository.NewMemorySessionStateRepository()
	a := NewSessionStore(backend, "test-1", "user:1")
	b := NewSessionStore(backend, "test-1", "reg:X-1")
	c := NewSessionStore(backend, "test-2", "user:1")
	for _, s := range []*SessionStore{a, b, c} {
		_, err := s.Initialize(ctx, 1, 600, time.Now())
		require.NoError(t, err)
	}

	require.NoError(t, a.SetAnswer(ctx, 0, intPtr(3)))

	b2 := NewSessionStore(backend, "test-1", "reg:X-1")
	_, err := b2.Initialize(ctx, 1, 600, time.Now())
	require.NoError(t, err)
	assert.Nil(t, b2.Answer(0))

	c2 := NewSessionStore(backend, "test-2", "user:1")
	_, err = c2.Initialize(ctx, 1, 600, time.Now())
	require.NoError(t, err)
	assert.Nil(t, c2.Answer(0))
}
