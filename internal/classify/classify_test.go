package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/llm"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeFallback struct {
	payload *llm.Classification
	err     error
	calls   int
}

func (f *fakeFallback) Classify(ctx context.Context, text string) (*llm.Classification, error) {
	f.calls++
	return f.payload, f.err
}

func TestKeywordRules(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMods []domain.Module
		wantTags []domain.Tag
	}{
		{"exhibition vocabulary", "下午去佈展", []domain.Module{domain.ModuleWork}, []domain.Tag{domain.TagExhibition}},
		{"home compound rule", "在家澆花", []domain.Module{domain.ModuleHome}, []domain.Tag{domain.TagChore}},
		{"exercise", "早上去跑步", []domain.Module{domain.ModuleHealth}, []domain.Tag{domain.TagExercise}},
		{"meeting", "跟客戶開會", []domain.Module{domain.ModuleWork}, []domain.Tag{domain.TagMeeting}},
		{"reading", "晚上看書", []domain.Module{domain.ModuleLearning}, []domain.Tag{domain.TagReading}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeFallback{}
			c := New(fb, zap.NewNop())
			res := c.Classify(context.Background(), tt.input)
			assert.Equal(t, tt.wantMods, res.Modules)
			assert.Equal(t, tt.wantTags, res.Tags)
			assert.Zero(t, fb.calls, "keyword stage must short-circuit the collaborator")
		})
	}
}

func TestRulePriorityFirstMatchWins(t *testing.T) {
	// Contains both the exhibition vocabulary and a meeting keyword; the
	// earlier rule must win.
	c := New(&fakeFallback{}, zap.NewNop())
	res := c.Classify(context.Background(), "佈展前開會")
	assert.Equal(t, []domain.Tag{domain.TagExhibition}, res.Tags)
}

func TestFallbackValidPayload(t *testing.T) {
	fb := &fakeFallback{payload: &llm.Classification{
		Main: []string{"social", "health"},
		Tags: []string{"errand"},
	}}
	c := New(fb, zap.NewNop())

	res := c.Classify(context.Background(), "跟朋友去爬山")
	assert.Equal(t, []domain.Module{domain.ModuleSocial, domain.ModuleHealth}, res.Modules)
	assert.Equal(t, []domain.Tag{domain.TagErrand}, res.Tags)
	assert.Equal(t, 1, fb.calls)
}

func TestFallbackErrorGivesDefault(t *testing.T) {
	fb := &fakeFallback{err: fmt.Errorf("network down")}
	c := New(fb, zap.NewNop())

	res := c.Classify(context.Background(), "嗯嗯去了那裡")
	assert.Equal(t, []domain.Module{domain.ModuleOther}, res.Modules)
	assert.Equal(t, []domain.Tag{domain.TagMisc}, res.Tags)
}

func TestFallbackUnknownLabelRejectsWholePayload(t *testing.T) {
	fb := &fakeFallback{payload: &llm.Classification{
		Main: []string{"work", "finance"}, // finance is outside the vocabulary
		Tags: []string{"meeting"},
	}}
	c := New(fb, zap.NewNop())

	res := c.Classify(context.Background(), "整理帳單資料")
	assert.Equal(t, []domain.Module{domain.ModuleOther}, res.Modules)
	assert.Equal(t, []domain.Tag{domain.TagMisc}, res.Tags)
}

func TestFallbackEmptyMainGetsDefaultModule(t *testing.T) {
	fb := &fakeFallback{payload: &llm.Classification{Main: []string{}, Tags: []string{"misc"}}}
	c := New(fb, zap.NewNop())

	res := c.Classify(context.Background(), "那個東西")
	assert.Equal(t, []domain.Module{domain.ModuleOther}, res.Modules)
	assert.Equal(t, []domain.Tag{domain.TagMisc}, res.Tags)
}
