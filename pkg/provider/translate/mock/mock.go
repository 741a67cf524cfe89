// Package mock provides a scripted translate.Translator for tests.
package mock

import (
	"context"
	"sync"

	"github.com/govorun-bot/govorun/pkg/provider/translate"
)

// Call records one Translate invocation.
type Call struct {
	Text   string
	Source string
	Target string
}

// Translator is a scripted translate.Translator. When Err is set every
// call fails with it; otherwise Result is returned (or the input text when
// Result is empty). Safe for concurrent use.
type Translator struct {
	mu     sync.Mutex
	Result string
	Err    error
	Calls  []Call
}

var _ translate.Translator = (*Translator)(nil)

func (m *Translator) Translate(_ context.Context, text, source, target string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Text: text, Source: source, Target: target})
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.Result == "" {
		return text, nil
	}
	return m.Result, nil
}

// CallCount returns how many times Translate has been invoked.
func (m *Translator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
