// Package mock provides a scripted stt.Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

// Call records one Transcribe invocation.
type Call struct {
	WavPath  string
	Language string
}

// Response scripts the outcome of one Transcribe invocation.
type Response struct {
	Text string
	Err  error
}

// Transcriber is a scripted stt.Transcriber. Responses are consumed in
// order; when the script runs out the last response repeats. Safe for
// concurrent use.
type Transcriber struct {
	mu        sync.Mutex
	Responses []Response
	Calls     []Call
	next      int
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and replays the next scripted response.
// A nil or empty script yields an empty transcript.
func (m *Transcriber) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &stt.TransientError{Reason: "context cancelled", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{WavPath: wavPath, Language: language})

	if len(m.Responses) == 0 {
		return "", nil
	}
	r := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return r.Text, r.Err
}

// CallCount returns how many times Transcribe has been invoked.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
