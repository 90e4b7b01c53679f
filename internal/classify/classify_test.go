package classify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
)

func TestParseFastShorthand(t *testing.T) {
	p, ok := ParseFast("ss:张三:你好")
	if !ok {
		t.Fatal("shorthand form should parse")
	}
	if p.Type != TypeSendMsg || p.Recipient != "张三" || p.Content != "你好" {
		t.Errorf("parsed = %+v", p)
	}
}

func TestParseFastExplicitType(t *testing.T) {
	cases := []struct {
		in        string
		typ       TaskType
		recipient string
		content   string
	}{
		{"ss:msg:张华:下午见", TypeSendMsg, "张华", "下午见"},
		{"ss:消息:李四:在吗", TypeSendMsg, "李四", "在吗"},
		{"SS:MSG:bob:hello", TypeSendMsg, "bob", "hello"},
		{"ss:朋友圈:今天天气真好", TypeMomentText, "", "今天天气真好"},
		{"ss:pyq:周末愉快", TypeMomentText, "", "周末愉快"},
		{"ss：朋友圈：全角冒号", TypeMomentText, "", "全角冒号"},
	}
	for _, c := range cases {
		p, ok := ParseFast(c.in)
		if !ok {
			t.Errorf("ParseFast(%q) failed", c.in)
			continue
		}
		if p.Type != c.typ || p.Recipient != c.recipient || p.Content != c.content {
			t.Errorf("ParseFast(%q) = %+v", c.in, p)
		}
	}
}

func TestParseFastExcessColonsStayInContent(t *testing.T) {
	p, ok := ParseFast("ss:msg:张三:时间:下午3:30")
	if !ok {
		t.Fatal("should parse")
	}
	if p.Content != "时间:下午3:30" {
		t.Errorf("content = %q, want colons preserved", p.Content)
	}
}

func TestParseFastRejects(t *testing.T) {
	for _, in := range []string{
		"ss:李四",     // too few fields
		"ss",        // bare prefix, no colon
		"打开微信",      // no prefix
		"ss:msg:张三", // explicit type but no content
		"ss:朋友圈:",   // empty content
		"",
	} {
		if _, ok := ParseFast(in); ok {
			t.Errorf("ParseFast(%q) parsed, want reject", in)
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	// Any accepted spelling must render to one canonical form, and that
	// form must parse back to itself.
	for _, in := range []string{"ss:张三:你好", "ss:msg:张三:你好", "ss:消息:张三:你好"} {
		p, ok := ParseFast(in)
		if !ok {
			t.Fatalf("ParseFast(%q) failed", in)
		}
		canonical := Render(p)
		if canonical != "ss:msg:张三:你好" {
			t.Errorf("Render(parse(%q)) = %q", in, canonical)
		}
		p2, ok := ParseFast(canonical)
		if !ok || p2 != p {
			t.Errorf("round trip of %q: %+v vs %+v", in, p, p2)
		}
	}
	if got := Render(Parsed{Type: TypeMomentText, Content: "晚安"}); got != "ss:pyq:晚安" {
		t.Errorf("moments render = %q", got)
	}
}

func TestStripFastPrefix(t *testing.T) {
	if got := StripFastPrefix("ss:李四"); got != "李四" {
		t.Errorf("StripFastPrefix = %q", got)
	}
	if got := StripFastPrefix("打开微信"); got != "打开微信" {
		t.Errorf("no-prefix strip = %q", got)
	}
}

func TestIsBlank(t *testing.T) {
	for _, in := range []string{"", "  ", ".", "??", "。"} {
		if !IsBlank(in) {
			t.Errorf("IsBlank(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"aaa", "打开微信", "hi"} {
		if IsBlank(in) {
			t.Errorf("IsBlank(%q) = true, want false", in)
		}
	}
}

func TestClassifyRegex(t *testing.T) {
	cases := map[string]Class{
		"发消息给张三然后截图":  ClassComplex, // connective
		"打开微信搜索联系人":   ClassComplex, // two action words
		"打开微信":        ClassSimple,
		"给妈妈打电话说晚点回家": ClassSimple,
	}
	for in, want := range cases {
		if got := ClassifyRegex(in); got != want {
			t.Errorf("ClassifyRegex(%q) = %s, want %s", in, got, want)
		}
	}
}

func modelServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newModelClassifier(url string) *Classifier {
	return New(llm.NewClient(config.LLM{
		Provider: "custom", BaseURL: url, APIKey: "k",
		Model: "m", MaxTokens: 256, Timeout: 5 * time.Second,
	}), config.ClassifierModeLLM)
}

func TestClassifyModelPath(t *testing.T) {
	srv := modelServer(t, `{"type": "send_msg", "recipient": "王五", "content": "生日快乐"}`, http.StatusOK)
	c := newModelClassifier(srv.URL)

	res, err := c.Classify(context.Background(), "给王五发生日快乐")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasParsed || res.Parsed.Type != TypeSendMsg || res.Parsed.Recipient != "王五" {
		t.Errorf("result = %+v", res)
	}
	if res.Class != ClassSimple {
		t.Errorf("class = %s", res.Class)
	}
}

func TestClassifyDegradesToRegexOnModelError(t *testing.T) {
	srv := modelServer(t, "", http.StatusInternalServerError)
	c := newModelClassifier(srv.URL)

	res, err := c.Classify(context.Background(), "发消息然后截图")
	if err != nil {
		t.Fatal(err)
	}
	if res.HasParsed {
		t.Error("degraded path must not claim a parsed record")
	}
	if res.Class != ClassComplex {
		t.Errorf("class = %s, want complex", res.Class)
	}
}

func TestClassifyDegradesOnGarbageReply(t *testing.T) {
	srv := modelServer(t, "I think you want to send a message!", http.StatusOK)
	c := newModelClassifier(srv.URL)

	res, err := c.Classify(context.Background(), "打开微信")
	if err != nil {
		t.Fatal(err)
	}
	if res.HasParsed || res.Class != ClassSimple {
		t.Errorf("result = %+v", res)
	}
}

func TestClassifyBlankIsInvalid(t *testing.T) {
	c := New(nil, config.ClassifierModeLLM)
	res, err := c.Classify(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Parsed.Type != TypeInvalid || res.Class != ClassInvalid {
		t.Errorf("result = %+v", res)
	}
}
