package testsupport

import (
	"context"
	"errors"
	"sync"

	"podcaster/internal/llm"
)

// ErrStubExhausted is returned once every scripted reply has been consumed.
var ErrStubExhausted = errors.New("stub completer: no scripted replies left")

// CompleterCall records one Complete invocation.
type CompleterCall struct {
	Prompt string
	Stop   string
}

type stubReply struct {
	units []llm.TextUnit
	err   error
}

// StubCompleter replays scripted replies in order and records every call.
type StubCompleter struct {
	mu      sync.Mutex
	replies []stubReply
	calls   []CompleterCall
	// Func, when set, answers every call instead of the scripted replies.
	Func func(prompt, stop string) ([]llm.TextUnit, error)
}

// NewStubCompleter scripts one single-unit reply per text.
func NewStubCompleter(texts ...string) *StubCompleter {
	s := &StubCompleter{}
	for _, text := range texts {
		s.Reply(text)
	}
	return s
}

// Reply scripts a reply with one unit per text; no texts scripts an empty reply.
func (s *StubCompleter) Reply(texts ...string) *StubCompleter {
	units := make([]llm.TextUnit, 0, len(texts))
	for _, text := range texts {
		units = append(units, llm.TextUnit{Text: text, FinishReason: "stop"})
	}
	s.mu.Lock()
	s.replies = append(s.replies, stubReply{units: units})
	s.mu.Unlock()
	return s
}

// Fail scripts an error reply.
func (s *StubCompleter) Fail(err error) *StubCompleter {
	s.mu.Lock()
	s.replies = append(s.replies, stubReply{err: err})
	s.mu.Unlock()
	return s
}

// Complete implements llm.Completer.
func (s *StubCompleter) Complete(ctx context.Context, prompt, stop string) ([]llm.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, CompleterCall{Prompt: prompt, Stop: stop})
	fn := s.Func
	if fn != nil {
		s.mu.Unlock()
		return fn(prompt, stop)
	}
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return nil, ErrStubExhausted
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next.units, next.err
}

// Calls returns a copy of the recorded invocations.
func (s *StubCompleter) Calls() []CompleterCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompleterCall(nil), s.calls...)
}
