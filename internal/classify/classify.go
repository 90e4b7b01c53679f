// Package classify turns a raw utterance into a structured task record. The
// fast path is a fixed "ss:" prefix grammar that needs no model call; free
// text goes to the model classifier, which degrades to a regex heuristic when
// the model is unreachable.
package classify

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidInput marks an utterance that is not an actionable task. The
// runner and app handlers raise it so shells can print Guidance instead of
// a bare failure.
var ErrInvalidInput = errors.New("invalid input")

// Guidance is shown alongside ErrInvalidInput.
const Guidance = `无法理解该任务。试试这些形式:
  ss:张三:你好              给联系人发消息
  ss:朋友圈:今天天气真好     发一条文字朋友圈
  打开微信                  自然语言任务`

// TaskType is the classifier's structured verdict.
type TaskType string

const (
	TypeSendMsg    TaskType = "send_msg"
	TypeMomentText TaskType = "post_moment_only_text"
	TypeOthers     TaskType = "others"
	TypeInvalid    TaskType = "invalid"
)

// Class folds types into the coarse buckets the runner switches on.
type Class string

const (
	ClassSimple  Class = "simple"
	ClassComplex Class = "complex"
	ClassInvalid Class = "invalid"
)

// Parsed is a classified utterance. Recipient is empty for moments posts;
// Content may be empty for search-like tasks.
type Parsed struct {
	Type      TaskType
	Recipient string
	Content   string
}

// Class maps the parsed type onto the coarse task class.
func (p Parsed) Class() Class {
	switch p.Type {
	case TypeSendMsg, TypeMomentText:
		return ClassSimple
	case TypeOthers:
		return ClassComplex
	default:
		return ClassInvalid
	}
}

// sendSynonyms and momentSynonyms are the accepted first fields of the fixed
// grammar. Matching is case-insensitive for the latin entries.
var sendSynonyms = map[string]bool{
	"消息": true, "发消息": true, "xx": true, "msg": true, "message": true,
}

var momentSynonyms = map[string]bool{
	"朋友圈": true, "pyq": true,
}

// Normalize trims the utterance and folds full-width colons to ASCII so the
// prefix grammar sees one colon form.
func Normalize(utterance string) string {
	return strings.TrimSpace(strings.ReplaceAll(utterance, "：", ":"))
}

// HasFastPrefix reports whether the utterance starts with the fixed "ss:"
// prefix, either colon width, any case.
func HasFastPrefix(utterance string) bool {
	u := Normalize(utterance)
	return len(u) >= 3 && strings.EqualFold(u[:2], "ss") && u[2] == ':'
}

// ParseFast parses the fixed-form grammar:
//
//	ss:<type>:<recipient>:<content...>   explicit type synonym
//	ss:<recipient>:<content...>          shorthand for send_msg
//	ss:朋友圈:<content...>               moments post, no recipient
//
// Excess colons are preserved inside the final content field.
//
// Returns:
//   - Parsed: The structured record
//   - bool: false when the utterance does not satisfy the grammar
func ParseFast(utterance string) (Parsed, bool) {
	u := Normalize(utterance)
	if !HasFastPrefix(u) {
		return Parsed{}, false
	}
	parts := strings.Split(u[3:], ":")
	if len(parts) == 0 {
		return Parsed{}, false
	}

	head := strings.ToLower(strings.TrimSpace(parts[0]))
	switch {
	case momentSynonyms[head]:
		content := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if content == "" {
			return Parsed{}, false
		}
		return Parsed{Type: TypeMomentText, Content: content}, true

	case sendSynonyms[head]:
		if len(parts) < 3 {
			return Parsed{}, false
		}
		recipient := strings.TrimSpace(parts[1])
		content := strings.TrimSpace(strings.Join(parts[2:], ":"))
		if recipient == "" || content == "" {
			return Parsed{}, false
		}
		return Parsed{Type: TypeSendMsg, Recipient: recipient, Content: content}, true

	default:
		// Shorthand: first field is the recipient.
		if len(parts) < 2 {
			return Parsed{}, false
		}
		recipient := strings.TrimSpace(parts[0])
		content := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if recipient == "" || content == "" {
			return Parsed{}, false
		}
		return Parsed{Type: TypeSendMsg, Recipient: recipient, Content: content}, true
	}
}

// StripFastPrefix removes the "ss:" prefix for reclassification of a
// malformed fixed-form utterance.
func StripFastPrefix(utterance string) string {
	u := Normalize(utterance)
	if HasFastPrefix(u) {
		return strings.TrimSpace(u[3:])
	}
	return u
}

// Render writes a parsed record back in canonical fixed form. Canonical form
// uses the short latin synonyms so any accepted spelling renders the same.
func Render(p Parsed) string {
	switch p.Type {
	case TypeSendMsg:
		return "ss:msg:" + p.Recipient + ":" + p.Content
	case TypeMomentText:
		return "ss:pyq:" + p.Content
	default:
		return ""
	}
}

// IsBlank reports whether an utterance is empty or too short to mean
// anything: only one or two whitespace or punctuation characters.
func IsBlank(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return true
	}
	runes := []rune(trimmed)
	if len(runes) > 2 {
		return false
	}
	for _, r := range runes {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// connectives flag multi-step intent in free text.
var connectives = []string{
	"然后", "再", "接着", "之后", "完成后", "并且", "同时", "顺便", "截图", "保存",
}

// actionWords count distinct operations mentioned in free text.
var actionWords = []string{
	"发", "打开", "搜索", "点击", "发送", "查看", "关闭", "拨打", "浏览", "安装", "下载", "分享",
}

// ClassifyRegex is the last-resort heuristic when no model is reachable. It
// only distinguishes simple from complex; it never produces a parsed record.
func ClassifyRegex(utterance string) Class {
	u := Normalize(utterance)
	if IsBlank(u) {
		return ClassInvalid
	}
	for _, c := range connectives {
		if strings.Contains(u, c) {
			return ClassComplex
		}
	}
	actions := 0
	for _, a := range actionWords {
		if strings.Contains(u, a) {
			actions++
		}
	}
	if actions >= 2 {
		return ClassComplex
	}
	return ClassSimple
}
