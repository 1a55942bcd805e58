package loop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInlineRunsTaskThenApply(t *testing.T) {
	var steps []string
	Inline{}.Go("x", func(ctx context.Context) Apply {
		assert.NotNil(t, ctx)
		steps = append(steps, "task")
		return func() { steps = append(steps, "apply") }
	})
	assert.Equal(t, []string{"task", "apply"}, steps)
}

func TestInlineNilApply(t *testing.T) {
	ran := false
	Inline{Ctx: t.Context()}.Go("x", func(context.Context) Apply {
		ran = true
		return nil
	})
	assert.True(t, ran)
}

func TestManualOutOfOrder(t *testing.T) {
	m := &Manual{}
	var applied []string
	for _, name := range []string{"a", "b", "c"} {
		m.Go(name, func(context.Context) Apply {
			return func() { applied = append(applied, name) }
		})
	}

	assert.Equal(t, []string{"a", "b", "c"}, m.Pending())
	assert.Empty(t, applied, "nothing runs until resolved")

	m.Run(1)
	assert.True(t, m.RunNamed("c"))
	assert.False(t, m.RunNamed("missing"))
	m.RunAll()

	assert.Equal(t, []string{"b", "c", "a"}, applied)
	assert.Equal(t, 0, m.Len())
}

func TestManualRunAllIncludesChainedTasks(t *testing.T) {
	m := &Manual{}
	var applied []string
	m.Go("first", func(context.Context) Apply {
		return func() {
			applied = append(applied, "first")
			m.Go("second", func(context.Context) Apply {
				return func() { applied = append(applied, "second") }
			})
		}
	})

	m.RunAll()
	assert.Equal(t, []string{"first", "second"}, applied)
}

func TestManualRunPanicsOnBadIndex(t *testing.T) {
	assert.Panics(t, func() { (&Manual{}).Run(0) })
}
