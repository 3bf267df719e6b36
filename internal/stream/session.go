package stream

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"
)

// ErrConsumerGone signals that the event sink rejected an emission, typically
// because the consumer disconnected. It is a cancellation, not a failure.
var ErrConsumerGone = errors.New("stream consumer disconnected")

// DefaultChunkDelay paces scripted mock output to simulate incremental typing.
const DefaultChunkDelay = 50 * time.Millisecond

// mockProgressEvery emits a scripted progress event every N chunks.
const mockProgressEvery = 5

// GenerateFunc produces text incrementally, calling onDelta per fragment and
// returning the accumulated full text. When nil the session takes the
// scripted mock path.
type GenerateFunc func(ctx context.Context, onDelta func(delta string) error) (string, error)

// Session wraps one generation in an incremental event protocol. Events for a
// session are emitted strictly in order; independent sessions share no state.
type Session struct {
	Mode    string
	Prompt  string
	CaseRef string

	// Generate streams real completions; nil selects the scripted mock path.
	Generate GenerateFunc

	// Finalize, when set, converts the accumulated text into the structured
	// result attached to the analysis event.
	Finalize func(full string, deltas int) any

	// MockBody is the canned analysis streamed on the mock path. Empty
	// selects the built-in template for Mode.
	MockBody   string
	ChunkDelay time.Duration

	Logger *log.Logger
}

// Run drives the session: connected, then progress/chunk events, one
// analysis, and a guaranteed terminal complete. Any failure surfaces as a
// single error event before complete. If emit returns an error the consumer
// is gone and production stops without further output.
func (s *Session) Run(ctx context.Context, emit func(Event) error) {
	logger := s.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[STREAM] ", log.LstdFlags)
	}

	if err := emit(Connected{Mode: s.Mode, Timestamp: time.Now()}); err != nil {
		return
	}

	if strings.TrimSpace(s.Prompt) == "" && strings.TrimSpace(s.CaseRef) == "" {
		if err := emit(Error{Message: "prompt or case reference required", Timestamp: time.Now()}); err != nil {
			return
		}
		_ = emit(Complete{Mode: s.Mode, Timestamp: time.Now()})
		return
	}

	deltas, length, err := s.produce(ctx, emit)
	if err != nil {
		if errors.Is(err, ErrConsumerGone) || ctx.Err() != nil {
			return
		}
		logger.Printf("session failed: %v", err)
		if e := emit(Error{Message: err.Error(), Timestamp: time.Now()}); e != nil {
			return
		}
	}
	// terminal teardown runs regardless of which state was reached
	mode := s.Mode
	if s.Generate == nil {
		mode = "mock"
	}
	_ = emit(Complete{Deltas: deltas, ResponseLength: length, Mode: mode, Timestamp: time.Now()})
}

func (s *Session) produce(ctx context.Context, emit func(Event) error) (int, int, error) {
	if s.Generate == nil {
		return s.produceMock(ctx, emit)
	}
	return s.produceLive(ctx, emit)
}

// produceMock streams the canned analysis body split into whole-line chunks,
// sleeping briefly between chunks, with a progress event every few chunks.
func (s *Session) produceMock(ctx context.Context, emit func(Event) error) (int, int, error) {
	body := s.MockBody
	if body == "" {
		body = MockAnalysis(s.Mode)
	}
	delay := s.ChunkDelay
	if delay <= 0 {
		delay = DefaultChunkDelay
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		if err := emit(Chunk{Text: line + "\n", Seq: i + 1, Timestamp: time.Now()}); err != nil {
			return i, 0, ErrConsumerGone
		}
		done := i + 1
		if done%mockProgressEvery == 0 {
			pct := int(math.Round(float64(done) / float64(len(lines)) * 100))
			if err := emit(Progress{Percent: pct, Timestamp: time.Now()}); err != nil {
				return done, 0, ErrConsumerGone
			}
		}
		select {
		case <-ctx.Done():
			return done, 0, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err := emit(Analysis{Text: body, Deltas: len(lines), Timestamp: time.Now()}); err != nil {
		return len(lines), 0, ErrConsumerGone
	}
	return len(lines), len(body), nil
}

// produceLive streams provider deltas with progress milestones: 10% on start,
// 30% once generation begins, then every 10th delta up to 90%.
func (s *Session) produceLive(ctx context.Context, emit func(Event) error) (int, int, error) {
	if err := emit(Progress{Percent: 10, Timestamp: time.Now()}); err != nil {
		return 0, 0, ErrConsumerGone
	}

	deltas := 0
	started := false
	full, err := s.Generate(ctx, func(delta string) error {
		if !started {
			started = true
			if err := emit(Progress{Percent: 30, Timestamp: time.Now()}); err != nil {
				return ErrConsumerGone
			}
		}
		deltas++
		if err := emit(Chunk{Text: delta, Seq: deltas, Timestamp: time.Now()}); err != nil {
			return ErrConsumerGone
		}
		if deltas%10 == 0 {
			pct := 30 + 10*(deltas/10)
			if pct > 90 {
				pct = 90
			}
			if err := emit(Progress{Percent: pct, Timestamp: time.Now()}); err != nil {
				return ErrConsumerGone
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConsumerGone) {
			return deltas, 0, ErrConsumerGone
		}
		return deltas, 0, err
	}

	analysis := Analysis{Text: full, Deltas: deltas, Timestamp: time.Now()}
	if s.Finalize != nil {
		analysis.Result = s.Finalize(full, deltas)
	}
	if err := emit(analysis); err != nil {
		return deltas, 0, ErrConsumerGone
	}
	return deltas, len(full), nil
}
