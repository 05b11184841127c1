package expander

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	answer string
	err    error
	calls  int
	system string
}

func (f *fakeLLM) Complete(_ context.Context, system, _ string) (string, error) {
	f.calls++
	f.system = system
	return f.answer, f.err
}

type mapCache struct {
	m      map[string][]string
	getErr error
}

func (c *mapCache) Get(_ context.Context, q string) ([]string, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.m[q]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, q string, v []string) error {
	c.m[q] = v
	return nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "numbered lines",
			answer: "1. What awards?\n2. Which prizes?\n3. Any honours?",
			want:   []string{"What awards?", "Which prizes?", "Any honours?"},
		},
		{
			name:   "single line",
			answer: "1. a 2. b",
			want:   []string{"a", "b"},
		},
		{name: "no numbering", answer: "just one", want: []string{"just one"}},
		{
			name:   "newline separated",
			answer: "What awards did she win?\nWhich prizes were received?\n\nWhat honors were given?\n",
			want:   []string{"What awards did she win?", "Which prizes were received?", "What honors were given?"},
		},
		{name: "empty", answer: "  ", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.answer))
		})
	}
}

func TestMultiQueryPromptAsksForNumberedList(t *testing.T) {
	assert.Contains(t, MultiQueryPrompt, `"1. <question>"`)
	assert.Len(t, Parse("1. a\n2. b\n3. c\n4. d\n5. e"), 5)
}

func TestExpandAppendsOriginalQuestion(t *testing.T) {
	llm := &fakeLLM{answer: "1. q1\n2. q2\n3. q3\n4. q4\n5. q5"}
	e := New(llm)

	got, err := e.Expand(context.Background(), " What research has she done? ")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5", "What research has she done?"}, got)
	assert.Contains(t, llm.system, "generate 5 different versions")
	assert.Contains(t, llm.system, "honest assistant")
}

func TestExpandPropagatesProviderError(t *testing.T) {
	boom := errors.New("provider down")
	_, err := New(&fakeLLM{err: boom}).Expand(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestExpandRejectsEmptyQuestion(t *testing.T) {
	llm := &fakeLLM{}
	_, err := New(llm).Expand(context.Background(), "  ")
	assert.Error(t, err)
	assert.Zero(t, llm.calls)
}

func TestExpandUsesCache(t *testing.T) {
	llm := &fakeLLM{answer: "1. alt"}
	cache := &mapCache{m: map[string][]string{}}
	e := New(llm, WithCache(cache))

	first, err := e.Expand(context.Background(), "q")
	require.NoError(t, err)
	second, err := e.Expand(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, llm.calls)
}

func TestExpandIgnoresCacheFailure(t *testing.T) {
	llm := &fakeLLM{answer: "1. alt"}
	e := New(llm, WithCache(&mapCache{m: map[string][]string{}, getErr: errors.New("redis down")}))

	got, err := e.Expand(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"alt", "q"}, got)
}
