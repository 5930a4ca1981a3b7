// Package timer implements the pomodoro phase state machine.
//
// The engine never reads a wall clock: every operation takes the current time
// as a parameter, so state transitions are deterministic under test. Elapsed
// phases are detected lazily, before any command is handled, which means even
// a read-only status query can observe and report an automatic transition.
package timer

import (
	"fmt"
	"time"

	"github.com/pomidoro/pomidoro/internal/protocol"
)

// Phase is the timer's current mode.
type Phase int

const (
	// PhaseIdle means no phase is in progress.
	PhaseIdle Phase = iota
	// PhaseWorking is a focus phase.
	PhaseWorking
	// PhaseOnBreak is a rest phase.
	PhaseOnBreak
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWorking:
		return "working"
	case PhaseOnBreak:
		return "on_break"
	default:
		return "unknown"
	}
}

// ParsePhase parses the wire representation of a phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "idle":
		return PhaseIdle, nil
	case "working":
		return PhaseWorking, nil
	case "on_break":
		return PhaseOnBreak, nil
	}
	return PhaseIdle, fmt.Errorf("unknown phase %q", s)
}

// Durations holds the configured phase lengths.
type Durations struct {
	Work  time.Duration
	Break time.Duration
}

// State is a snapshot of the engine after a command was applied.
type State struct {
	Phase     Phase
	Remaining time.Duration
	Duration  time.Duration // full planned length of the current phase
	Paused    bool
}

// Percent returns phase completion in 0..100.
func (s State) Percent() int {
	if s.Duration <= 0 {
		return 0
	}
	elapsed := s.Duration - s.Remaining
	return int(elapsed * 100 / s.Duration)
}

// Proto converts the snapshot into its wire representation.
func (s State) Proto() *protocol.StateData {
	return &protocol.StateData{
		Phase:     s.Phase.String(),
		Remaining: s.Remaining,
		Duration:  s.Duration,
		Paused:    s.Paused,
		Percent:   s.Percent(),
	}
}

// Completion records a phase that ended, either by running out or by being
// cut short with Stop or Skip. The server persists these into history.
type Completion struct {
	Phase     Phase
	StartedAt time.Time
	Planned   time.Duration
	Spent     time.Duration
	Completed bool
}

// RejectError is a semantic rejection of a command given the current phase.
// It is returned as data to the client, never treated as a server failure.
type RejectError struct {
	Kind protocol.ErrorKind
}

func (e *RejectError) Error() string {
	return string(e.Kind)
}

// Engine is the single source of truth for the current phase. It is owned by
// the server's request path and is not safe for unsynchronized concurrent use.
type Engine struct {
	durations Durations

	phase     Phase
	enteredAt time.Time     // instant the phase began, for history records
	startedAt time.Time     // start of the current running stretch
	left      time.Duration // length of the current running stretch
	planned   time.Duration // full phase length, for percent reporting
	paused    bool
	frozen    time.Duration // remaining time captured at pause
}

// New creates an idle engine with the given phase durations.
func New(d Durations) *Engine {
	return &Engine{durations: d}
}

// SetDurations replaces the configured durations. The change applies to
// phases started afterwards; an in-progress phase keeps the length it was
// given when it began.
func (e *Engine) SetDurations(d Durations) {
	e.durations = d
}

// Durations returns the currently configured phase lengths.
func (e *Engine) Durations() Durations {
	return e.durations
}

// Apply advances the engine to now and then applies cmd. It returns the
// resulting snapshot and any phases that ended during the call. A *RejectError
// is returned when the command does not fit the current phase; the snapshot is
// still valid in that case and reflects the untouched state.
func (e *Engine) Apply(cmd protocol.Command, now time.Time) (State, []Completion, error) {
	done := e.advance(now)

	switch cmd {
	case protocol.CommandStart:
		if e.phase != PhaseIdle {
			return e.snapshot(now), done, &RejectError{Kind: protocol.ErrAlreadyRunning}
		}
		e.enter(PhaseWorking, e.durations.Work, now)

	case protocol.CommandStop:
		if e.phase == PhaseIdle {
			return e.snapshot(now), done, &RejectError{Kind: protocol.ErrNotRunning}
		}
		done = append(done, e.interrupt(now))
		e.reset()

	case protocol.CommandToggle:
		if e.phase == PhaseIdle {
			return e.snapshot(now), done, &RejectError{Kind: protocol.ErrNotRunning}
		}
		if e.paused {
			e.startedAt = now
			e.left = e.frozen
			e.paused = false
			e.frozen = 0
		} else {
			e.frozen = e.remaining(now)
			e.paused = true
		}

	case protocol.CommandSkip:
		if e.phase == PhaseIdle {
			return e.snapshot(now), done, &RejectError{Kind: protocol.ErrNotRunning}
		}
		done = append(done, Completion{
			Phase:     e.phase,
			StartedAt: e.enteredAt,
			Planned:   e.planned,
			Spent:     e.planned - e.remaining(now),
			Completed: true,
		})
		if e.phase == PhaseWorking {
			e.enter(PhaseOnBreak, e.durations.Break, now)
		} else {
			e.reset()
		}

	case protocol.CommandStatus:
		// Read-only; the advance above already did any pending transition.

	default:
		return e.snapshot(now), done, &RejectError{Kind: protocol.ErrMalformedRequest}
	}

	return e.snapshot(now), done, nil
}

// advance performs pending auto-transitions up to now. A long gap can elapse
// both a work phase and the break that follows it, so the check cascades.
func (e *Engine) advance(now time.Time) []Completion {
	var done []Completion
	for e.phase != PhaseIdle && !e.paused {
		end := e.startedAt.Add(e.left)
		if now.Before(end) {
			break
		}
		done = append(done, Completion{
			Phase:     e.phase,
			StartedAt: e.enteredAt,
			Planned:   e.planned,
			Spent:     e.planned,
			Completed: true,
		})
		if e.phase == PhaseWorking {
			// The break began the instant the work phase ran out.
			e.enter(PhaseOnBreak, e.durations.Break, end)
		} else {
			e.reset()
		}
	}
	return done
}

func (e *Engine) enter(p Phase, d time.Duration, at time.Time) {
	e.phase = p
	e.enteredAt = at
	e.startedAt = at
	e.left = d
	e.planned = d
	e.paused = false
	e.frozen = 0
}

func (e *Engine) reset() {
	e.phase = PhaseIdle
	e.enteredAt = time.Time{}
	e.startedAt = time.Time{}
	e.left = 0
	e.planned = 0
	e.paused = false
	e.frozen = 0
}

func (e *Engine) interrupt(now time.Time) Completion {
	return Completion{
		Phase:     e.phase,
		StartedAt: e.enteredAt,
		Planned:   e.planned,
		Spent:     e.planned - e.remaining(now),
		Completed: false,
	}
}

func (e *Engine) remaining(now time.Time) time.Duration {
	if e.phase == PhaseIdle {
		return 0
	}
	if e.paused {
		return e.frozen
	}
	left := e.left - now.Sub(e.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (e *Engine) snapshot(now time.Time) State {
	return State{
		Phase:     e.phase,
		Remaining: e.remaining(now),
		Duration:  e.planned,
		Paused:    e.paused,
	}
}
