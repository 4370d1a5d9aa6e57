package task

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	assert.Equal(t, "(110_load) Load", Task{Basename: "(110_load) Load"}.ID())
	assert.Equal(t, "(110_load) Load:only-ch4",
		Task{Basename: "(110_load) Load", Name: "only-ch4"}.ID())
}

func TestIsGroup(t *testing.T) {
	assert.True(t, Task{Basename: "header"}.IsGroup())
	assert.False(t, Task{Basename: "header", Name: "sub"}.IsGroup())
	assert.False(t, Task{
		Basename: "header",
		Actions:  []Action{NewFuncAction("noop", func(ctx context.Context) error { return nil })},
	}.IsGroup())
}

func TestFuncAction(t *testing.T) {
	ran := false
	action := NewFuncAction("flip the flag", func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.Equal(t, "flip the flag", action.Describe())
	require.NoError(t, action.Run(context.Background()))
	assert.True(t, ran)
}

func TestFuncActionPropagatesError(t *testing.T) {
	action := NewFuncAction("explode", func(ctx context.Context) error {
		return fmt.Errorf("boom")
	})
	assert.ErrorContains(t, action.Run(context.Background()), "boom")
}
