package request

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_LatestWins(t *testing.T) {
	tr := NewTracker()
	state := ""

	first, firstCtx := tr.Begin(context.Background())
	second, secondCtx := tr.Begin(context.Background())

	assert.Error(t, firstCtx.Err(), "superseded request must be cancelled")
	assert.NoError(t, secondCtx.Err())
	assert.Greater(t, second.gen, first.gen)

	// The newer response arrives first, then the stale one.
	assert.True(t, second.Apply(func() { state = "second" }))
	assert.False(t, first.Apply(func() { state = "first" }))
	assert.Equal(t, "second", state)
	assert.True(t, second.Current())
	assert.False(t, first.Current())
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker()
	h, ctx := tr.Begin(context.Background())
	h.Cancel()

	assert.Error(t, ctx.Err())
	assert.False(t, h.Apply(func() { t.Fatal("cancelled handle applied") }))
}

func TestTracker_Stop(t *testing.T) {
	tr := NewTracker()
	h, ctx := tr.Begin(context.Background())
	tr.Stop()

	assert.Error(t, ctx.Err())
	assert.False(t, h.Apply(func() { t.Fatal("applied after stop") }))

	late, lateCtx := tr.Begin(context.Background())
	assert.Error(t, lateCtx.Err())
	assert.False(t, late.Current())
}

func TestTracker_ParentCancellation(t *testing.T) {
	tr := NewTracker()
	parent, cancel := context.WithCancel(context.Background())
	_, ctx := tr.Begin(parent)
	cancel()
	assert.Error(t, ctx.Err())
}
