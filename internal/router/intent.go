package router

import (
	"regexp"
	"strings"
	"time"

	"github.com/pbaille/jot/internal/summary"
	"github.com/pbaille/jot/internal/temporal"
)

// Intent is the single action resolved for one inbound message.
type Intent int

const (
	IntentUndo Intent = iota
	IntentBacklog
	IntentSummary
	IntentInstant
	IntentConversation
)

func (i Intent) String() string {
	switch i {
	case IntentUndo:
		return "undo"
	case IntentBacklog:
		return "backlog"
	case IntentSummary:
		return "summary"
	case IntentInstant:
		return "instant"
	default:
		return "conversation"
	}
}

// Decision carries the resolved intent plus whatever the matched rule
// extracted: the marker-stripped payload, an explicit undo token, or the
// summary range.
type Decision struct {
	Intent    Intent
	Payload   string
	UndoToken string
	Range     summary.Range
}

var undoTokens = []string{"刪除上一筆", "删除上一笔", "刪除紀錄", "删除记录", "撤銷", "撤销"}

// English undo must match as a standalone word so it cannot fire inside
// words like "undoubtedly".
var undoWordRe = regexp.MustCompile(`\bundo\b`)

var backlogMarkers = []string{"補記", "补记"}

var summaryKeywords = []string{"總結", "总结", "摘要", "summary"}

var weekKeywords = []string{"週", "周", "week"}

var monthKeywords = []string{"月", "month"}

// Non-log phrasing: opinion or request wording that disqualifies a message
// from the instant-log path even when it contains an action verb.
var nonLogPhrases = []string{
	"我覺得", "我觉得", "你覺得", "你觉得", "請問", "请问", "幫我", "帮我",
	"怎麼", "怎么", "為什麼", "为什么", "如何", "可以嗎", "可以吗", "應該", "应该",
	"what do you think", "please", "how do", "why ", "should i",
}

var actionVerbs = []string{
	"澆花", "浇花", "打掃", "打扫", "整理", "洗", "煮", "吃", "買", "买",
	"看", "寫", "写", "做", "去", "完成", "開會", "开会", "運動", "运动",
	"跑步", "睡", "起床", "佈展", "布展", "撤展",
	"watered", "cleaned", "bought", "finished", "wrote", "went", "ate", "did",
}

var firstPersonMarkers = []string{"我", "I ", "i "}

var aspectualMarkers = []string{"剛剛", "刚刚", "剛", "刚", "正在", "just ", "currently"}

var trailingTimestampRe = regexp.MustCompile(`[0-9]`)

// intentRule is one row of the ordered dispatch table. Rules are tried in
// table order and the first match wins; the ordering is a deliberate
// disambiguation policy, not an optimization.
type intentRule struct {
	name  string
	match func(text string, now time.Time) (Decision, bool)
}

var intentRules = []intentRule{
	{"undo", matchUndo},
	{"backlog", matchBacklog},
	{"summary", matchSummary},
	{"instant", matchInstant},
}

// Detect classifies trimmed message text into exactly one action.
// Conversation is the default and always succeeds.
func Detect(text string, now time.Time) Decision {
	text = strings.TrimSpace(text)
	for _, r := range intentRules {
		if d, ok := r.match(text, now); ok {
			return d
		}
	}
	return Decision{Intent: IntentConversation, Payload: text}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func matchUndo(text string, _ time.Time) (Decision, bool) {
	end := -1
	for _, kw := range undoTokens {
		if idx := strings.Index(text, kw); idx >= 0 {
			end = idx + len(kw)
			break
		}
	}
	if end < 0 {
		if loc := undoWordRe.FindStringIndex(text); loc != nil {
			end = loc[1]
		}
	}
	if end < 0 {
		return Decision{}, false
	}

	d := Decision{Intent: IntentUndo}

	// A trailing timestamp after the keyword pins the target entry. It must
	// contain a digit to count as a timestamp; anything else is ignored and
	// the fallback target applies.
	rest := strings.TrimSpace(text[end:])
	if rest != "" && trailingTimestampRe.MatchString(rest) {
		d.UndoToken = rest
	}
	return d, true
}

func matchBacklog(text string, _ time.Time) (Decision, bool) {
	for _, marker := range backlogMarkers {
		if !strings.HasPrefix(text, marker) {
			continue
		}
		rest := strings.TrimPrefix(text, marker)
		rest = strings.TrimPrefix(rest, ":")
		rest = strings.TrimPrefix(rest, "：")
		return Decision{Intent: IntentBacklog, Payload: strings.TrimSpace(rest)}, true
	}
	return Decision{}, false
}

// matchSummary resolves the range with fixed priority: explicit day, then
// week keyword, then month keyword, then today.
func matchSummary(text string, now time.Time) (Decision, bool) {
	if !containsAny(text, summaryKeywords) {
		return Decision{}, false
	}

	d := Decision{Intent: IntentSummary}
	switch {
	case hasMonthDay(text):
		m, day, _ := temporal.MonthDay(text)
		d.Range = summary.Day(now, m, day)
	case containsAny(text, weekKeywords):
		d.Range = summary.Week(now)
	case containsAny(text, monthKeywords):
		d.Range = summary.Month(now)
	default:
		d.Range = summary.Today(now)
	}
	return d, true
}

func hasMonthDay(text string) bool {
	_, _, ok := temporal.MonthDay(text)
	return ok
}

// matchInstant gates the loggable path: question-marked or opinion/request
// phrasing falls through to conversation; otherwise an action verb, a
// first-person opening, or an aspectual marker accepts the message.
func matchInstant(text string, _ time.Time) (Decision, bool) {
	if strings.HasSuffix(text, "?") || strings.HasSuffix(text, "？") {
		return Decision{}, false
	}
	if containsAny(text, nonLogPhrases) {
		return Decision{}, false
	}

	if containsAny(text, actionVerbs) {
		return Decision{Intent: IntentInstant, Payload: text}, true
	}
	for _, m := range firstPersonMarkers {
		if strings.HasPrefix(text, m) {
			return Decision{Intent: IntentInstant, Payload: text}, true
		}
	}
	if containsAny(text, aspectualMarkers) {
		return Decision{Intent: IntentInstant, Payload: text}, true
	}
	return Decision{}, false
}
