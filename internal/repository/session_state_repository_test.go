package repository

import (
	"context"
	"institute_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionState(t *testing.T) {
	ctx := context.Background()
	var backend SessionStateBackend = NewMemorySessionStateRepository()

	answers := model.SessionKey{TestID: "t1", TakerKey: "user:1", Purpose: model.PurposeAnswers}
	review := model.SessionKey{TestID: "t1", TakerKey: "user:1", Purpose: model.PurposeReview}
	other := model.SessionKey{TestID: "t1", TakerKey: "user:2", Purpose: model.PurposeAnswers}

	_, ok, err := backend.Get(ctx, answers)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, answers, "[null]"))
	require.NoError(t, backend.Set(ctx, review, "[]"))
	require.NoError(t, backend.Set(ctx, other, "[1]"))

	v, ok, err := backend.Get(ctx, answers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[null]", v)

	require.NoError(t, backend.Delete(ctx, answers, review))
	_, ok, _ = backend.Get(ctx, answers)
	assert.False(t, ok)
	_, ok, _ = backend.Get(ctx, review)
	assert.False(t, ok)

	v, ok, _ = backend.Get(ctx, other)
	assert.True(t, ok)
	assert.Equal(t, "[1]", v)
}
