// Package classify assigns the two-level category taxonomy to activity text.
// A fixed, ordered keyword rule table is tried first; only when no rule
// matches is the text delegated to the LLM collaborator. The classifier never
// returns an error: any failure degrades to the catch-all category.
package classify

import (
	"context"
	"strings"

	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/llm"
	"go.uber.org/zap"
)

// Result is a classification outcome. Modules is never empty.
type Result struct {
	Modules []domain.Module
	Tags    []domain.Tag
}

// Fallback is the collaborator side of the two-stage pipeline.
type Fallback interface {
	Classify(ctx context.Context, text string) (*llm.Classification, error)
}

// rule is one entry of the deterministic stage. Rules are evaluated in table
// order and the first match wins outright.
type rule struct {
	name    string
	match   func(text string) bool
	modules []domain.Module
	tags    []domain.Tag
}

func anyOf(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

// The deterministic stage. Order matters: the exhibition vocabulary outranks
// the generic work-meeting rule, and compound rules outrank single-keyword
// ones that could also fire.
var rules = []rule{
	{
		name:    "exhibition-admin",
		match:   anyOf("佈展", "布展", "撤展", "展場", "展场", "策展", "exhibition", "gallery"),
		modules: []domain.Module{domain.ModuleWork},
		tags:    []domain.Tag{domain.TagExhibition},
	},
	{
		name: "home-chore",
		match: allOf(
			anyOf("家", "陽台", "阳台", "at home"),
			anyOf("打掃", "打扫", "澆花", "浇花", "洗衣", "洗碗", "整理", "clean", "water", "laundry"),
		),
		modules: []domain.Module{domain.ModuleHome},
		tags:    []domain.Tag{domain.TagChore},
	},
	{
		name:    "exercise",
		match:   anyOf("跑步", "健身", "瑜伽", "運動", "运动", "游泳", "workout", "jogging", "yoga"),
		modules: []domain.Module{domain.ModuleHealth},
		tags:    []domain.Tag{domain.TagExercise},
	},
	{
		name:    "meeting",
		match:   anyOf("開會", "开会", "會議", "会议", "meeting"),
		modules: []domain.Module{domain.ModuleWork},
		tags:    []domain.Tag{domain.TagMeeting},
	},
	{
		name:    "reading",
		match:   anyOf("看書", "看书", "讀書", "读书", "reading"),
		modules: []domain.Module{domain.ModuleLearning},
		tags:    []domain.Tag{domain.TagReading},
	},
}

// Classifier runs the two-stage pipeline.
type Classifier struct {
	fallback Fallback
	logger   *zap.Logger
}

// New creates a Classifier. fallback must not be nil; use llm.Unavailable
// when no collaborator is configured.
func New(fallback Fallback, logger *zap.Logger) *Classifier {
	return &Classifier{fallback: fallback, logger: logger}
}

// Classify categorizes text. It always returns a usable Result.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	for _, r := range rules {
		if r.match(text) {
			return Result{Modules: r.modules, Tags: r.tags}
		}
	}

	payload, err := c.fallback.Classify(ctx, text)
	if err != nil {
		c.logger.Warn("classification fallback failed", zap.Error(err))
		return defaultResult()
	}

	res, ok := validate(payload)
	if !ok {
		c.logger.Warn("classification payload outside closed vocabulary",
			zap.Strings("main", payload.Main),
			zap.Strings("tags", payload.Tags))
		return defaultResult()
	}
	return res
}

// validate checks every label against the closed vocabularies. A single
// unknown label rejects the whole payload; partial parses are forbidden by
// the collaborator contract.
func validate(p *llm.Classification) (Result, bool) {
	var res Result

	for _, s := range p.Main {
		m, ok := domain.ParseModule(s)
		if !ok {
			return Result{}, false
		}
		res.Modules = append(res.Modules, m)
	}
	for _, s := range p.Tags {
		t, ok := domain.ParseTag(s)
		if !ok {
			return Result{}, false
		}
		res.Tags = append(res.Tags, t)
	}

	// An empty main set is schema-legal but entries must always carry at
	// least one module.
	if len(res.Modules) == 0 {
		res.Modules = []domain.Module{domain.ModuleOther}
	}
	return res, true
}

func defaultResult() Result {
	return Result{
		Modules: []domain.Module{domain.ModuleOther},
		Tags:    []domain.Tag{domain.TagMisc},
	}
}
