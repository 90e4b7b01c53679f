package classify

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
)

// Result is a full classification outcome. Parsed is meaningful only when
// HasParsed is set; the regex degradation path yields a Class alone.
type Result struct {
	Parsed    Parsed
	Class     Class
	HasParsed bool
}

// Classifier resolves free-text utterances through the model, degrading to
// the regex heuristic when the model is unreachable or talks nonsense.
type Classifier struct {
	client *llm.Client
	mode   string
}

// New builds a classifier. client may be nil, forcing regex mode.
func New(client *llm.Client, mode string) *Classifier {
	if client == nil {
		mode = config.ClassifierModeRegex
	}
	return &Classifier{client: client, mode: mode}
}

const classifySystem = `Output only JSON. Classify the user's phone automation request.
Fields: type, recipient, content.
type must be one of: send_msg, post_moment_only_text, others, invalid.
send_msg: sending a chat message; recipient and content required.
post_moment_only_text: posting a text moments update; content required.
others: a real task that is neither of the above.
invalid: not an actionable phone task.
Example: {"type": "send_msg", "recipient": "张三", "content": "你好"}`

// Classify resolves an utterance that did not match the fast grammar.
//
// Parameters:
//   - utterance: The raw input, prefix already stripped if it had one
//
// Returns:
//   - Result: The classification; HasParsed is false on the regex path
//   - error: Set only when even the degraded path cannot decide
func (c *Classifier) Classify(ctx context.Context, utterance string) (Result, error) {
	u := Normalize(utterance)
	if IsBlank(u) {
		return Result{
			Parsed:    Parsed{Type: TypeInvalid},
			Class:     ClassInvalid,
			HasParsed: true,
		}, nil
	}

	if c.mode != config.ClassifierModeRegex {
		if res, err := c.classifyModel(ctx, u); err == nil {
			return res, nil
		} else {
			log.Warn("model classifier failed, degrading to regex", "err", err)
		}
	}

	return Result{Class: ClassifyRegex(u)}, nil
}

func (c *Classifier) classifyModel(ctx context.Context, utterance string) (Result, error) {
	reply, err := c.client.Chat(ctx, classifySystem, utterance, nil, true)
	if err != nil {
		return Result{}, err
	}
	obj, ok := llm.ExtractJSON(reply)
	if !ok {
		return Result{}, fmt.Errorf("classifier reply is not JSON: %.120s", reply)
	}

	t := TaskType(obj.Get("type").String())
	switch t {
	case TypeSendMsg, TypeMomentText, TypeOthers, TypeInvalid:
	default:
		return Result{}, fmt.Errorf("classifier returned unknown type %q", t)
	}

	p := Parsed{
		Type:      t,
		Recipient: obj.Get("recipient").String(),
		Content:   obj.Get("content").String(),
	}
	return Result{Parsed: p, Class: p.Class(), HasParsed: true}, nil
}
