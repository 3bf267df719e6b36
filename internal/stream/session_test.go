package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// collect runs a session and records every emitted event in order.
func collect(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	s.Run(context.Background(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type()
	}
	return out
}

func TestSessionMockPathProtocol(t *testing.T) {
	t.Parallel()
	s := &Session{Mode: "analyze", Prompt: "review the contract", ChunkDelay: time.Millisecond}
	events := collect(t, s)

	if len(events) < 3 {
		t.Fatalf("expected at least connected, analysis and complete, got %v", eventTypes(events))
	}
	if events[0].Type() != EventConnected {
		t.Fatalf("first event = %s, want %s", events[0].Type(), EventConnected)
	}
	last := events[len(events)-1]
	if last.Type() != EventComplete {
		t.Fatalf("last event = %s, want %s", last.Type(), EventComplete)
	}
	complete, ok := last.(Complete)
	if !ok {
		t.Fatalf("terminal event has wrong concrete type %T", last)
	}
	if complete.Mode != "mock" {
		t.Fatalf("scripted path must report mock mode, got %q", complete.Mode)
	}

	var chunks, analyses int
	for _, ev := range events {
		switch ev.Type() {
		case EventChunk:
			chunks++
		case EventAnalysis:
			analyses++
		case EventError:
			t.Fatalf("unexpected error event in %v", eventTypes(events))
		}
	}
	if chunks == 0 || analyses != 1 {
		t.Fatalf("expected streamed chunks and exactly one analysis, got %d chunks, %d analyses", chunks, analyses)
	}
}

func TestSessionMockProgressCadence(t *testing.T) {
	t.Parallel()
	body := strings.Repeat("line of scripted analysis output\n", 12)
	s := &Session{Mode: "analyze", Prompt: "p", MockBody: body, ChunkDelay: time.Millisecond}
	events := collect(t, s)

	var progress []int
	chunksSeen := 0
	for _, ev := range events {
		switch e := ev.(type) {
		case Chunk:
			chunksSeen++
		case Progress:
			// every 5th chunk produces one progress event
			if chunksSeen%5 != 0 {
				t.Fatalf("progress emitted after %d chunks", chunksSeen)
			}
			progress = append(progress, e.Percent)
		}
	}
	if len(progress) != 2 {
		t.Fatalf("12 chunks should yield 2 progress events, got %d", len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %v", progress)
		}
	}
}

func TestSessionValidationFailure(t *testing.T) {
	t.Parallel()
	s := &Session{Mode: "analyze"}
	events := collect(t, s)

	got := eventTypes(events)
	want := []EventType{EventConnected, EventError, EventComplete}
	if len(got) != len(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSessionLivePath(t *testing.T) {
	t.Parallel()
	deltas := []string{"The ", "notice ", "period ", "is ", "thirty ", "days."}
	s := &Session{
		Mode:   "chat",
		Prompt: "what is the notice period",
		Generate: func(ctx context.Context, onDelta func(string) error) (string, error) {
			var full strings.Builder
			for _, d := range deltas {
				if err := onDelta(d); err != nil {
					return "", err
				}
				full.WriteString(d)
			}
			return full.String(), nil
		},
		Finalize: func(full string, n int) any {
			return map[string]any{"answer": full, "deltas": n}
		},
	}
	events := collect(t, s)

	var chunkSeq []int
	var analysis *Analysis
	for _, ev := range events {
		switch e := ev.(type) {
		case Chunk:
			chunkSeq = append(chunkSeq, e.Seq)
		case Analysis:
			a := e
			analysis = &a
		}
	}
	if len(chunkSeq) != len(deltas) {
		t.Fatalf("expected %d chunk events, got %d", len(deltas), len(chunkSeq))
	}
	for i, seq := range chunkSeq {
		if seq != i+1 {
			t.Fatalf("chunk sequence broken at %d: %v", i, chunkSeq)
		}
	}
	if analysis == nil {
		t.Fatalf("missing analysis event")
	}
	if analysis.Text != "The notice period is thirty days." {
		t.Fatalf("analysis text = %q", analysis.Text)
	}
	if analysis.Result == nil {
		t.Fatalf("finalize result not attached")
	}

	last := events[len(events)-1].(Complete)
	if last.Mode != "chat" {
		t.Fatalf("live path keeps the requested mode, got %q", last.Mode)
	}
	if last.Deltas != len(deltas) || last.ResponseLength != len(analysis.Text) {
		t.Fatalf("complete stats = %d deltas, %d length", last.Deltas, last.ResponseLength)
	}
}

func TestSessionLiveProgressMilestones(t *testing.T) {
	t.Parallel()
	s := &Session{
		Mode:   "analyze",
		Prompt: "p",
		Generate: func(ctx context.Context, onDelta func(string) error) (string, error) {
			for i := 0; i < 25; i++ {
				if err := onDelta("x"); err != nil {
					return "", err
				}
			}
			return strings.Repeat("x", 25), nil
		},
	}
	events := collect(t, s)

	var progress []int
	for _, ev := range events {
		if p, ok := ev.(Progress); ok {
			progress = append(progress, p.Percent)
		}
	}
	// 10 at start, 30 on first delta, then 40 and 50 at deltas 10 and 20
	want := []int{10, 30, 40, 50}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress = %v, want %v", progress, want)
		}
	}
	for _, p := range progress {
		if p > 90 {
			t.Fatalf("live progress must cap at 90, got %d", p)
		}
	}
}

func TestSessionGenerationFailure(t *testing.T) {
	t.Parallel()
	s := &Session{
		Mode:   "analyze",
		Prompt: "p",
		Generate: func(ctx context.Context, onDelta func(string) error) (string, error) {
			_ = onDelta("partial ")
			return "", errors.New("provider exploded")
		},
	}
	events := collect(t, s)

	types := eventTypes(events)
	if types[len(types)-1] != EventComplete {
		t.Fatalf("failed session must still terminate with complete, got %v", types)
	}
	var sawError bool
	for _, ev := range events {
		if e, ok := ev.(Error); ok {
			sawError = true
			if !strings.Contains(e.Message, "provider exploded") {
				t.Fatalf("error message = %q", e.Message)
			}
		}
	}
	if !sawError {
		t.Fatalf("expected an error event before complete, got %v", types)
	}
}

func TestSessionConsumerDisconnect(t *testing.T) {
	t.Parallel()
	s := &Session{Mode: "analyze", Prompt: "p", ChunkDelay: time.Millisecond}
	var events []Event
	s.Run(context.Background(), func(ev Event) error {
		if len(events) >= 2 {
			return errors.New("write failed")
		}
		events = append(events, ev)
		return nil
	})

	// once the sink rejects a write nothing further may be emitted
	for _, ev := range events {
		if ev.Type() == EventComplete || ev.Type() == EventError {
			t.Fatalf("terminal events must not be forced on a gone consumer: %v", eventTypes(events))
		}
	}
}

func TestSessionContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{Mode: "analyze", Prompt: "p", ChunkDelay: 50 * time.Millisecond}

	var events []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, func(ev Event) error {
			events = append(events, ev)
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled session did not stop")
	}
}
