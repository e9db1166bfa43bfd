package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/shared"
)

// Completer is a text-completion oracle: system instructions plus user text in, one string out.
// No streaming and no multi-turn state.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classifier maps free text to exactly one [EditCommand].
type Classifier interface {
	Classify(ctx context.Context, text string) (EditCommand, error)
}

// CompleterFunc adapts a function to [Completer].
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// LLMClassifier classifies commands by sending them with the taxonomy prompt to a [Completer]
// and parsing the first JSON object in the response.
//
// There is no retry and no fallback: a failed call or unusable response is an [ErrClassification],
// and a well-formed response naming an unknown type or action fails with
// [ErrUnknownCommandType] or [ErrUnknownAction].
type LLMClassifier struct {
	completer Completer
	prompt    string
}

// NewLLMClassifier creates an [LLMClassifier] backed by completer.
func NewLLMClassifier(completer Completer) *LLMClassifier {
	return &LLMClassifier{completer: completer, prompt: ClassifierPrompt()}
}

// Classify implements [Classifier].
func (c *LLMClassifier) Classify(ctx context.Context, text string) (EditCommand, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty command", ErrClassification)
	}
	if c.completer == nil {
		return nil, fmt.Errorf("%w: no completion service configured", ErrClassification)
	}

	resp, err := c.completer.Complete(ctx, c.prompt, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	raw, err := DecodeRawCommand(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	return ParseCommand(raw)
}

// timeoutClassifier bounds each classification call.
type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds every Classify call on c to d. A non-positive d returns c unchanged.
//
// An expired deadline surfaces as [ErrClassification] wrapping [shared.ErrTimeout].
func WithTimeout(c Classifier, d time.Duration) Classifier {
	if d <= 0 || c == nil {
		return c
	}
	return &timeoutClassifier{next: c, timeout: d}
}

func (c *timeoutClassifier) Classify(ctx context.Context, text string) (EditCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd, err := c.next.Classify(ctx, text)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w after %s", ErrClassification, shared.ErrTimeout, c.timeout)
	}
	return cmd, err
}

// DecodeRawCommand parses the first JSON object in s as a [RawCommand].
//
// Prose or code fences around the object are ignored. Numbers are kept as [json.Number].
func DecodeRawCommand(s string) (RawCommand, error) {
	type wire struct {
		Type       string         `json:"type"`
		Action     string         `json:"action"`
		Parameters map[string]any `json:"parameters"`
		Params     map[string]any `json:"params"`
	}

	w, err := firstJSONObject[wire](s)
	if err != nil {
		return RawCommand{}, err
	}
	if w.Type == "" && w.Action == "" {
		return RawCommand{}, fmt.Errorf("response JSON has no type or action")
	}
	if w.Parameters == nil {
		w.Parameters = w.Params
	}
	return RawCommand{Type: w.Type, Action: w.Action, Parameters: w.Parameters}, nil
}

// firstJSONObject decodes the first position in s that holds a complete JSON object of type T.
func firstJSONObject[T any](s string) (T, error) {
	var zero T
	for i := strings.IndexByte(s, '{'); i >= 0; {
		var v T
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil {
			return v, nil
		}

		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return zero, fmt.Errorf("no JSON object in response")
}

// ClassifierPrompt renders the fixed instruction prompt enumerating every type, action and parameter shape.
func ClassifierPrompt() string {
	var b strings.Builder
	b.WriteString("You classify natural-language playlist edit commands.\n")
	b.WriteString("Respond with exactly one JSON object and nothing else, shaped as:\n")
	b.WriteString(`{"type": "<type>", "action": "<action>", "parameters": {...}}`)
	b.WriteString("\n\nCommand types and their actions:\n")

	for _, t := range commandTypes {
		fmt.Fprintf(&b, "%s:\n", t)
		for _, entry := range vocabulary[t] {
			fmt.Fprintf(&b, "  - %s %s: %s\n", entry.Action, entry.Parameters, entry.Description)
		}
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Use only the types and actions listed above.\n")
	b.WriteString("- Durations are in seconds; \"under 2:30\" means min_duration 150.\n")
	b.WriteString("- Years are four-digit numbers; \"only 90s songs\" means after_year 1990 and before_year 1999.\n")
	b.WriteString("- Omit parameters you cannot infer; defaults apply.\n")
	return b.String()
}
